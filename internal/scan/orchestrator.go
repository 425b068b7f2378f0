// Package scan drives the scan lifecycle: claim the scan, assemble evidence,
// score it, persist normalized output, and settle a terminal status.
package scan

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/normalize"
	"github.com/attestix/compliance-cli/internal/scoring"
	"github.com/attestix/compliance-cli/internal/store"
)

// EvidenceSource assembles evidence fragments for a control.
type EvidenceSource interface {
	Assemble(ctx context.Context, orgID, controlID string) ([]model.EvidenceFragment, error)
}

// Orchestrator runs one scan end to end.
type Orchestrator struct {
	store         store.Store
	evidence      EvidenceSource
	engine        scoring.Engine
	modelID       string
	promptVersion string
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(s store.Store, ev EvidenceSource, eng scoring.Engine, modelID, promptVersion string) *Orchestrator {
	return &Orchestrator{
		store:         s,
		evidence:      ev,
		engine:        eng,
		modelID:       modelID,
		promptVersion: promptVersion,
	}
}

// Run processes the scan with the given ID. The processing status and run
// metadata are committed before any external call, so observers see the scan
// claimed even if scoring later fails. Any failure after the claim settles
// the scan as failed in its own commit before the error is returned; the
// results transaction, if any, has already rolled back by then.
func (o *Orchestrator) Run(ctx context.Context, scanID string) (*model.ScanSummary, error) {
	log := zap.L().With(zap.String("scan_id", scanID))

	scan, err := o.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: load %s", scanID)
	}

	if err := o.store.StartScanRun(ctx, scanID, o.modelID, o.promptVersion); err != nil {
		return nil, eris.Wrapf(err, "scan: claim %s", scanID)
	}
	log.Info("scan processing", zap.String("control_id", scan.ControlID))

	summary, err := o.process(ctx, log, scan)
	if err != nil {
		o.markFailed(ctx, log, scanID)
		return nil, err
	}

	return summary, nil
}

func (o *Orchestrator) process(ctx context.Context, log *zap.Logger, scan *model.Scan) (*model.ScanSummary, error) {
	control, err := o.store.GetControl(ctx, scan.ControlID)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: load control %s", scan.ControlID)
	}

	requirements, err := o.store.ListRequirements(ctx, control.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: list requirements for %s", control.ID)
	}

	fragments, err := o.evidence.Assemble(ctx, scan.OrgID, control.ID)
	if err != nil {
		return nil, eris.Wrap(err, "scan: assemble evidence")
	}

	// No evidence is a legitimate completed outcome, not a failure. The
	// engine is never called and no result rows are written.
	if len(fragments) == 0 {
		if err := o.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusCompleted); err != nil {
			return nil, eris.Wrapf(err, "scan: complete %s", scan.ID)
		}
		log.Info("scan completed without evidence")
		return &model.ScanSummary{
			ScanID:  scan.ID,
			Status:  model.ScanStatusCompleted,
			Message: "no evidence linked to control",
		}, nil
	}

	scored, err := o.engine.ScanControl(ctx, *control, requirements, fragments)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: score control %s", control.ID)
	}

	results, gaps := flatten(scan.ID, scored)

	if err := o.store.SaveScanOutput(ctx, scan.ID, results, gaps); err != nil {
		return nil, eris.Wrapf(err, "scan: save output for %s", scan.ID)
	}

	if err := o.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusCompleted); err != nil {
		return nil, eris.Wrapf(err, "scan: complete %s", scan.ID)
	}

	log.Info("scan completed",
		zap.Int("requirements", len(results)),
		zap.Int("gaps", len(gaps)),
	)

	return &model.ScanSummary{
		ScanID:                scan.ID,
		Status:                model.ScanStatusCompleted,
		RequirementsProcessed: len(results),
		GapsFound:             len(gaps),
	}, nil
}

// markFailed settles the scan as failed in its own commit. Best effort: the
// original error matters more than a failure to record the failure.
func (o *Orchestrator) markFailed(ctx context.Context, log *zap.Logger, scanID string) {
	if err := o.store.UpdateScanStatus(context.WithoutCancel(ctx), scanID, model.ScanStatusFailed); err != nil {
		log.Error("could not mark scan failed", zap.Error(err))
	}
}

// flatten converts engine output into persisted rows, normalizing the
// loosely-typed fields into stable string columns.
func flatten(scanID string, scored *scoring.Result) ([]model.ScanResult, []model.Gap) {
	results := make([]model.ScanResult, 0, len(scored.Requirements))
	for _, r := range scored.Requirements {
		results = append(results, model.ScanResult{
			ScanID:        scanID,
			RequirementID: r.RequirementID,
			Outcome:       r.Outcome,
			Confidence:    normalize.Confidence(r.Confidence),
			RationaleJSON: normalize.Rationale(r.Rationale),
			CitationsJSON: normalize.JSONText(r.Citations),
		})
	}

	gaps := make([]model.Gap, 0, len(scored.Gaps))
	for _, g := range scored.Gaps {
		gaps = append(gaps, model.Gap{
			ScanID:                 scanID,
			RequirementID:          g.RequirementID,
			Summary:                g.Summary,
			RecommendedActionsJSON: normalize.JSONText(g.RecommendedActions),
		})
	}

	return results, gaps
}
