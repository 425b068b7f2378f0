package extract

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/storage"
	"github.com/attestix/compliance-cli/internal/store"
)

// Coordinator runs text extraction for a single document: download the
// raw bytes, extract page texts, and persist the page rows atomically.
type Coordinator struct {
	store     store.Store
	storage   storage.Storage
	extractor Extractor
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(st store.Store, blob storage.Storage, ex Extractor) *Coordinator {
	return &Coordinator{store: st, storage: blob, extractor: ex}
}

// Run extracts text for the given document. The page rows and the
// document's extracted status commit together; a failure at any point
// after the document load marks it failed in its own commit and returns
// the error for the dispatch layer to classify.
func (c *Coordinator) Run(ctx context.Context, documentID string) (*model.ExtractionSummary, error) {
	doc, err := c.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: load document %s", documentID)
	}

	log := zap.L().With(zap.String("document_id", doc.ID), zap.String("filename", doc.Filename))
	log.Info("extract: starting text extraction")

	if err := c.store.SetDocumentExtractionStatus(ctx, doc.ID, model.ExtractionStatusProcessing); err != nil {
		return nil, eris.Wrap(err, "extract: mark processing")
	}

	summary, err := c.run(ctx, doc)
	if err != nil {
		log.Error("extract: extraction failed", zap.Error(err))
		if statusErr := c.store.SetDocumentExtractionStatus(ctx, doc.ID, model.ExtractionStatusFailed); statusErr != nil {
			log.Warn("extract: failed to mark document failed", zap.Error(statusErr))
		}
		return nil, err
	}

	log.Info("extract: extraction complete", zap.Int("pages", summary.PagesExtracted))
	return summary, nil
}

func (c *Coordinator) run(ctx context.Context, doc *model.Document) (*model.ExtractionSummary, error) {
	data, err := c.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: download %s", doc.StorageKey)
	}

	pages, err := c.extractor.Extract(ctx, data, doc.Filename, doc.MimeType)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: extract text from %s", doc.Filename)
	}

	rows := make([]model.DocumentPage, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, model.DocumentPage{
			DocumentID: doc.ID,
			PageNum:    p.PageNum,
			Text:       p.Text,
		})
	}

	if err := c.store.SavePages(ctx, doc.ID, rows); err != nil {
		return nil, eris.Wrapf(err, "extract: save pages for document %s", doc.ID)
	}

	return &model.ExtractionSummary{DocumentID: doc.ID, PagesExtracted: len(pages)}, nil
}
