package scoring

import (
	"fmt"
	"strings"

	"github.com/attestix/compliance-cli/internal/model"
)

// systemPrompt is the shared system instruction for compliance scoring.
const systemPrompt = `You are a compliance auditor evaluating evidence documents against control requirements.

Your role is to judge, for each requirement, whether the provided evidence demonstrates that the requirement is satisfied.

Rules:
- Judge ONLY based on the evidence excerpts provided
- Return valid JSON for every response
- Outcome must be exactly one of: "pass", "fail", "partial"
- Confidence should be 0.0-1.0 based on how directly the evidence addresses the requirement
- Cite the document name and page number for every claim you rely on
- If evidence is silent on a requirement, that is a "fail" with appropriate gaps, not a "pass"
- Be precise and factual; this output feeds an audit record`

// SystemPrompt returns the system instruction with the control framed in.
func SystemPrompt(control model.Control) string {
	return fmt.Sprintf(`%s

Control under evaluation: %s (%s)
%s`, systemPrompt, control.Name, control.Code, control.Description)
}

// BuildUserMessage constructs the user message carrying the requirements and
// evidence excerpts, with the expected response schema.
func BuildUserMessage(requirements []model.Requirement, evidence []model.EvidenceFragment) string {
	var sb strings.Builder

	sb.WriteString("Requirements to evaluate:\n")
	for _, r := range requirements {
		sb.WriteString(fmt.Sprintf("- [%s] (%s): %s\n", r.ID, r.Code, r.Text))
	}

	sb.WriteString("\nEvidence excerpts:\n")
	for _, f := range evidence {
		sb.WriteString(fmt.Sprintf("\n--- %s, page %d ---\n%s\n", f.DocumentName, f.PageNum, f.Text))
	}

	sb.WriteString(`
Respond with ONLY valid JSON in this format:
{
  "requirements": [
    {
      "requirement_id": "<id from the list above>",
      "outcome": "pass" | "fail" | "partial",
      "confidence": <0.0 to 1.0>,
      "rationale": "<brief explanation grounded in the evidence>",
      "citations": [{"document": "<document name>", "page": <page number>, "quote": "<supporting excerpt>"}]
    }
  ],
  "gaps": [
    {
      "requirement_id": "<id of the deficient requirement>",
      "summary": "<what is missing or insufficient>",
      "recommended_actions": ["<concrete remediation step>"]
    }
  ]
}

Include a requirements entry for every requirement listed. Include a gaps entry for every requirement whose outcome is "fail" or "partial".`)

	return sb.String()
}
