package sheets

import (
	"context"

	"github.com/zombor/betslip-tracker/internal/credential"
)

// RangeValues is one A1 range and the rows written into it
type RangeValues struct {
	Range  string
	Values [][]string
}

// Backend is the tabular storage service for one user's account
type Backend interface {
	// FindSpreadsheet looks up a spreadsheet by exact title. The first match wins.
	FindSpreadsheet(ctx context.Context, title string) (id string, found bool, err error)
	// CreateSpreadsheet creates an empty spreadsheet
	CreateSpreadsheet(ctx context.Context, title string) (string, error)
	// ReadRows reads every row in the range in one call
	ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error)
	// BatchWrite writes all ranges in a single request
	BatchWrite(ctx context.Context, spreadsheetID string, data []RangeValues) error
}

// Connector opens a Backend acting with the given credential
type Connector interface {
	Connect(ctx context.Context, cred *credential.Credential) (Backend, error)
}
