package sheets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/zombor/betslip-tracker/internal/credential"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleConnector connects to Google Sheets and Drive
type GoogleConnector struct {
	opts []option.ClientOption
}

// NewGoogleConnector creates a connector; opts are appended to every client
func NewGoogleConnector(opts ...option.ClientOption) *GoogleConnector {
	return &GoogleConnector{opts: opts}
}

// Connect builds Sheets and Drive clients. The token source is static:
// refreshing is the credential manager's job.
func (c *GoogleConnector) Connect(ctx context.Context, cred *credential.Credential) (Backend, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(cred.Token())),
	}, c.opts...)

	sheetsSvc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &GoogleBackend{sheets: sheetsSvc, drive: driveSvc}, nil
}

// GoogleBackend implements Backend with the Sheets v4 and Drive v3 APIs
type GoogleBackend struct {
	sheets *gsheets.Service
	drive  *drive.Service
}

// driveQuery builds a Drive search for a live spreadsheet titled title
func driveQuery(title string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(title)
	return fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escaped, spreadsheetMimeType)
}

// FindSpreadsheet searches Drive by name
func (b *GoogleBackend) FindSpreadsheet(ctx context.Context, title string) (string, bool, error) {
	list, err := b.drive.Files.List().
		Q(driveQuery(title)).
		Spaces("drive").
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("searching drive: %w", err)
	}
	for _, f := range list.Files {
		if f.Name == title {
			return f.Id, true, nil
		}
	}
	return "", false, nil
}

// CreateSpreadsheet creates a spreadsheet with the given title
func (b *GoogleBackend) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	ss, err := b.sheets.Spreadsheets.Create(&gsheets.Spreadsheet{
		Properties: &gsheets.SpreadsheetProperties{Title: title},
	}).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating spreadsheet: %w", err)
	}
	return ss.SpreadsheetId, nil
}

// ReadRows reads the range and stringifies every cell
func (b *GoogleBackend) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	vr, err := b.sheets.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading range %s: %w", readRange, err)
	}
	rows := make([][]string, 0, len(vr.Values))
	for _, row := range vr.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// BatchWrite issues one values.batchUpdate with RAW input
func (b *GoogleBackend) BatchWrite(ctx context.Context, spreadsheetID string, data []RangeValues) error {
	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for _, d := range data {
		values := make([][]interface{}, len(d.Values))
		for i, row := range d.Values {
			values[i] = make([]interface{}, len(row))
			for j, cell := range row {
				values[i][j] = cell
			}
		}
		req.Data = append(req.Data, &gsheets.ValueRange{Range: d.Range, Values: values})
	}

	if _, err := b.sheets.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("batch updating values: %w", err)
	}
	return nil
}
