// Package model defines the persisted entities of the compliance scan pipeline.
package model

import "time"

// ScanStatus is the lifecycle state of a Scan. Transitions are monotonic
// forward: queued -> processing -> completed|failed. A scan never re-enters
// queued.
type ScanStatus string

const (
	ScanStatusQueued     ScanStatus = "queued"
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// ExtractionStatus tracks text extraction progress on a Document.
type ExtractionStatus string

const (
	ExtractionStatusPending    ExtractionStatus = "pending"
	ExtractionStatusProcessing ExtractionStatus = "processing"
	ExtractionStatusExtracted  ExtractionStatus = "extracted"
	ExtractionStatusFailed     ExtractionStatus = "failed"
)

// Outcome values assigned to a requirement by the scoring engine. The column
// is free text; these are the values the prompt asks for.
const (
	OutcomePass    = "pass"
	OutcomeFail    = "fail"
	OutcomePartial = "partial"
)

// Document is an uploaded evidence file. Immutable after creation except for
// the derived extraction status.
type Document struct {
	ID               string           `json:"id"`
	OrgID            string           `json:"org_id"`
	Filename         string           `json:"filename"`
	MimeType         string           `json:"mime_type"`
	StorageKey       string           `json:"storage_key"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// DocumentPage is one page of extracted text. Created only by the extraction
// coordinator and never mutated. Page numbers are not unique-constrained; a
// redelivered extraction task may append duplicates.
type DocumentPage struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	PageNum    int       `json:"page_num"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// EvidenceLink declares a document as evidence for a control within an org.
type EvidenceLink struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	DocumentID string    `json:"document_id"`
	ControlID  string    `json:"control_id"`
	CreatedAt  time.Time `json:"created_at"`

	// DocumentName is joined from the documents table on read.
	DocumentName string `json:"document_name"`
}

// Control is a named compliance control owning zero or more requirements.
type Control struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Requirement is an individually scorable clause under a control.
type Requirement struct {
	ID        string `json:"id"`
	ControlID string `json:"control_id"`
	Code      string `json:"code"`
	Text      string `json:"text"`
}

// Scan is one request to evaluate a control's evidence against its
// requirements. Created queued by the intake surface; mutated exclusively
// by the scan orchestrator.
type Scan struct {
	ID            string     `json:"id"`
	OrgID         string     `json:"org_id"`
	ControlID     string     `json:"control_id"`
	Status        ScanStatus `json:"status"`
	Model         string     `json:"model,omitempty"`
	PromptVersion string     `json:"prompt_version,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ScanResult is the scored outcome for one requirement in a scan.
// CitationsJSON always holds valid JSON text; RationaleJSON holds free text
// when the engine rationale was a plain string.
type ScanResult struct {
	ID            string    `json:"id"`
	ScanID        string    `json:"scan_id"`
	RequirementID string    `json:"requirement_id"`
	Outcome       string    `json:"outcome"`
	Confidence    string    `json:"confidence"`
	RationaleJSON string    `json:"rationale_json"`
	CitationsJSON string    `json:"citations_json"`
	CreatedAt     time.Time `json:"created_at"`
}

// Gap records a deficiency found for a requirement, with remediation
// suggestions. RecommendedActionsJSON always holds valid JSON text.
type Gap struct {
	ID                     string    `json:"id"`
	ScanID                 string    `json:"scan_id"`
	RequirementID          string    `json:"requirement_id"`
	Summary                string    `json:"summary"`
	RecommendedActionsJSON string    `json:"recommended_actions_json"`
	CreatedAt              time.Time `json:"created_at"`
}

// EvidenceFragment is one page of evidence text handed to the scoring
// engine, in link order then page order.
type EvidenceFragment struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	PageNum      int    `json:"page_num"`
	Text         string `json:"text"`
}

// ExtractionSummary is returned by a completed extraction task.
type ExtractionSummary struct {
	DocumentID     string `json:"document_id"`
	PagesExtracted int    `json:"pages_extracted"`
}

// ScanSummary is returned by a completed scan-processing task.
type ScanSummary struct {
	ScanID                string     `json:"scan_id"`
	Status                ScanStatus `json:"status"`
	RequirementsProcessed int        `json:"requirements_processed"`
	GapsFound             int        `json:"gaps_found"`
	Message               string     `json:"message,omitempty"`
}
