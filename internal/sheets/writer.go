package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/zombor/betslip-tracker/internal/betslip"
	"github.com/zombor/betslip-tracker/internal/credential"
)

const (
	sheetName = "Sheet1"
	lastCol   = "M"
	// dataRange covers the 13 record columns
	dataRange = sheetName + "!A1:" + lastCol
)

// WriteError is a backend failure while appending a record
type WriteError struct {
	Detail string
	Err    error
}

func (e *WriteError) Error() string {
	return "sheet write failed: " + e.Detail
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// CredentialSource yields a credential that is valid at call time.
// ForceRefresh replaces an access token the API has rejected.
type CredentialSource interface {
	LoadValid(ctx context.Context, userID string) (*credential.Credential, error)
	ForceRefresh(ctx context.Context, userID string) (*credential.Credential, error)
}

// Writer appends betting slip records to each user's track-record sheet
type Writer struct {
	creds     CredentialSource
	connector Connector
}

// NewWriter creates a Writer
func NewWriter(creds CredentialSource, connector Connector) *Writer {
	return &Writer{creds: creds, connector: connector}
}

// Title is the spreadsheet title for userID
func Title(userID string) string {
	return "Track_record_" + userID
}

// Link is the browser URL of a spreadsheet
func Link(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

func rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheetName, row, lastCol, row)
}

// connect resolves the credential through load and opens the backend.
// Credential problems come back as *credential.AuthRequiredError.
func (w *Writer) connect(ctx context.Context, userID string, load credentialLoader) (Backend, error) {
	cred, err := load(ctx, userID)
	if err != nil {
		return nil, err
	}
	backend, err := w.connector.Connect(ctx, cred)
	if err != nil {
		return nil, &WriteError{Detail: err.Error(), Err: err}
	}
	return backend, nil
}

type credentialLoader func(ctx context.Context, userID string) (*credential.Credential, error)

// withBackend runs op against userID's backend. When the API rejects the
// access token, the credential is refreshed once and op runs again; a
// second rejection leaves the stored credential in place.
func (w *Writer) withBackend(ctx context.Context, userID string, op func(Backend) error) error {
	backend, err := w.connect(ctx, userID, w.creds.LoadValid)
	if err != nil {
		return err
	}
	err = op(backend)
	if !unauthenticated(err) {
		return err
	}

	slog.Warn("Access token rejected, refreshing", "user_id", userID, "error", err)
	backend, err = w.connect(ctx, userID, w.creds.ForceRefresh)
	if err != nil {
		return err
	}
	err = op(backend)
	if unauthenticated(err) {
		return &credential.AuthRequiredError{Reason: credential.ReasonUnavailable, Cause: err}
	}
	return err
}

// unauthenticated reports whether the API rejected the access token
func unauthenticated(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized
}

// classify turns a backend error into AuthRequired or WriteError
func classify(err error) error {
	if credential.IsPermanentDenial(err) {
		return &credential.AuthRequiredError{Reason: credential.ReasonRevoked, Cause: err}
	}
	return &WriteError{Detail: err.Error(), Err: err}
}

// AppendRecord writes rec as the next row of userID's sheet, creating the
// sheet and its header on first use. It returns the sheet link.
//
// The row count is read then written without a lock; two concurrent
// uploads from one user can target the same row.
func (w *Writer) AppendRecord(ctx context.Context, userID string, rec betslip.Record) (string, error) {
	start := time.Now()

	var (
		link    string
		nextRow int
	)
	err := w.withBackend(ctx, userID, func(backend Backend) error {
		title := Title(userID)
		id, found, err := backend.FindSpreadsheet(ctx, title)
		if err != nil {
			return classify(err)
		}
		if !found {
			id, err = backend.CreateSpreadsheet(ctx, title)
			if err != nil {
				return classify(err)
			}
			slog.Info("Created track record sheet", "user_id", userID, "spreadsheet_id", id)
		}

		rows, err := backend.ReadRows(ctx, id, dataRange)
		if err != nil {
			return classify(err)
		}

		nextRow = len(rows) + 1
		var batch []RangeValues
		if len(rows) == 0 {
			batch = append(batch, RangeValues{Range: rowRange(1), Values: [][]string{betslip.Header}})
			nextRow = 2
		}
		batch = append(batch, RangeValues{Range: rowRange(nextRow), Values: [][]string{rec.Row()}})

		if err := backend.BatchWrite(ctx, id, batch); err != nil {
			return classify(err)
		}
		link = Link(id)
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("Sheet update finished", "user_id", userID, "row", nextRow, "duration", time.Since(start))
	return link, nil
}

// SheetLink returns the link of userID's sheet, if it exists
func (w *Writer) SheetLink(ctx context.Context, userID string) (string, bool, error) {
	var (
		id    string
		found bool
	)
	err := w.withBackend(ctx, userID, func(backend Backend) error {
		var err error
		id, found, err = backend.FindSpreadsheet(ctx, Title(userID))
		if err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}
	return Link(id), true, nil
}

// Rows returns every row of userID's sheet, header included. A user
// without a sheet has no rows.
func (w *Writer) Rows(ctx context.Context, userID string) ([][]string, error) {
	var rows [][]string
	err := w.withBackend(ctx, userID, func(backend Backend) error {
		id, found, err := backend.FindSpreadsheet(ctx, Title(userID))
		if err != nil {
			return classify(err)
		}
		if !found {
			rows = nil
			return nil
		}
		rows, err = backend.ReadRows(ctx, id, dataRange)
		if err != nil {
			return classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
