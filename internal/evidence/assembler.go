// Package evidence gathers extracted page text for a control's linked
// documents into fragments the scoring engine can consume.
package evidence

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/store"
)

// Assembler builds evidence fragments from linked documents.
type Assembler struct {
	store store.Store
}

// NewAssembler returns an Assembler backed by the given store.
func NewAssembler(s store.Store) *Assembler {
	return &Assembler{store: s}
}

// Assemble collects extracted pages for every document linked to the control
// within the org, in link order then page order. Pages with blank text are
// skipped. No linked documents, or no extracted text, yields an empty slice,
// not an error.
func (a *Assembler) Assemble(ctx context.Context, orgID, controlID string) ([]model.EvidenceFragment, error) {
	links, err := a.store.ListEvidenceLinks(ctx, orgID, controlID)
	if err != nil {
		return nil, eris.Wrapf(err, "evidence: list links for control %s", controlID)
	}

	var fragments []model.EvidenceFragment
	for _, link := range links {
		pages, err := a.store.ListDocumentPages(ctx, link.DocumentID)
		if err != nil {
			return nil, eris.Wrapf(err, "evidence: list pages for document %s", link.DocumentID)
		}
		for _, p := range pages {
			if strings.TrimSpace(p.Text) == "" {
				continue
			}
			fragments = append(fragments, model.EvidenceFragment{
				DocumentID:   link.DocumentID,
				DocumentName: link.DocumentName,
				PageNum:      p.PageNum,
				Text:         p.Text,
			})
		}
	}

	zap.L().Debug("evidence assembled",
		zap.String("org_id", orgID),
		zap.String("control_id", controlID),
		zap.Int("links", len(links)),
		zap.Int("fragments", len(fragments)),
	)

	return fragments, nil
}
