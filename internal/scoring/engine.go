// Package scoring evaluates a control's evidence against its requirements
// with an AI model and returns loosely-typed findings for normalization.
package scoring

import (
	"context"

	"github.com/attestix/compliance-cli/internal/model"
)

// Engine scores a control's requirements against assembled evidence.
type Engine interface {
	ScanControl(ctx context.Context, control model.Control, requirements []model.Requirement, evidence []model.EvidenceFragment) (*Result, error)
}

// Result is the raw engine output. Fields the model populates freely are
// typed any and flattened later by the normalize package.
type Result struct {
	Requirements []RequirementScore `json:"requirements"`
	Gaps         []GapFinding       `json:"gaps"`
}

// RequirementScore is the model's judgment for a single requirement.
type RequirementScore struct {
	RequirementID string `json:"requirement_id"`
	Outcome       string `json:"outcome"`
	Confidence    any    `json:"confidence"`
	Rationale     any    `json:"rationale"`
	Citations     any    `json:"citations"`
}

// GapFinding is a deficiency the model identified.
type GapFinding struct {
	RequirementID      string `json:"requirement_id"`
	Summary            string `json:"summary"`
	RecommendedActions any    `json:"recommended_actions"`
}
