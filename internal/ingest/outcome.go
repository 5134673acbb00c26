package ingest

import "github.com/zombor/betslip-tracker/internal/betslip"

// Outcome is the terminal state of one ingestion
type Outcome int

const (
	// OutcomeInternal is an unexpected failure, including recovered panics
	OutcomeInternal Outcome = iota
	// OutcomeLinkRequired means the user must (re)link their account
	OutcomeLinkRequired
	// OutcomeFetchFailed means the image could not be downloaded
	OutcomeFetchFailed
	// OutcomeOCRFailed means the model call failed
	OutcomeOCRFailed
	// OutcomeUnreadable means the model answer did not follow the expected layout
	OutcomeUnreadable
	// OutcomeAuthUnavailable means the identity provider could not refresh the credential right now
	OutcomeAuthUnavailable
	// OutcomeWriteFailed means the sheet backend rejected the write
	OutcomeWriteFailed
	// OutcomeWritten means the record was appended
	OutcomeWritten
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLinkRequired:
		return "link_required"
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeOCRFailed:
		return "ocr_failed"
	case OutcomeUnreadable:
		return "unreadable"
	case OutcomeAuthUnavailable:
		return "auth_unavailable"
	case OutcomeWriteFailed:
		return "write_failed"
	case OutcomeWritten:
		return "written"
	default:
		return "internal"
	}
}

// Outcomes lists every outcome, in declaration order
var Outcomes = []Outcome{
	OutcomeInternal, OutcomeLinkRequired, OutcomeFetchFailed, OutcomeOCRFailed,
	OutcomeUnreadable, OutcomeAuthUnavailable, OutcomeWriteFailed, OutcomeWritten,
}

// Result is what the transport renders for one upload
type Result struct {
	Outcome Outcome
	// LinkURL is set for OutcomeLinkRequired
	LinkURL string
	// SheetURL is set for OutcomeWritten
	SheetURL string
	// Record is set once extraction succeeded
	Record *betslip.Record
	Err    error
}
