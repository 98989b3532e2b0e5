// Package sheetsapi wraps the Google Sheets v4 service with
// service-account auth, client-side pacing, and rate-limit retries. The
// submission store talks to this package only; nothing above it sees the
// generated API types.
package sheetsapi

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/clubmint/allowgate/internal/observability"
)

// Config carries the remote store coordinates and credentials.
type Config struct {
	SpreadsheetID       string
	ServiceAccountEmail string
	// PrivateKey is the PEM service-account key, already un-escaped.
	PrivateKey string
	// RequestsPerMinute paces outgoing calls; zero applies the default
	// matching the per-user read quota.
	RequestsPerMinute int
}

const defaultRequestsPerMinute = 55

// Client is a thin, retried facade over the spreadsheet the bot persists
// to. All values are read and written RAW.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	retry         *retrier
}

// NewClient authenticates with the service account and builds the client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger, metrics observability.SheetsMetrics) (*Client, error) {
	auth := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(cfg.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(auth.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to build sheets service: %w", err)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = defaultRequestsPerMinute
	}

	return &Client{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		retry:         newRetrier(logger, metrics),
	}, nil
}

// SheetTitles returns every worksheet title mapped to its sheet ID.
func (c *Client) SheetTitles(ctx context.Context) (map[string]int64, error) {
	var spreadsheet *sheets.Spreadsheet
	err := c.retry.do(ctx, "spreadsheets.get", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		spreadsheet, err = c.service.Spreadsheets.Get(c.spreadsheetID).
			Fields("sheets.properties").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("spreadsheets.get: %w", err)
	}

	titles := make(map[string]int64, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = s.Properties.SheetId
		}
	}
	return titles, nil
}

// AddSheets creates one worksheet per title.
func (c *Client) AddSheets(ctx context.Context, titles []string) error {
	if len(titles) == 0 {
		return nil
	}

	requests := make([]*sheets.Request, 0, len(titles))
	for _, title := range titles {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		})
	}

	err := c.retry.do(ctx, "spreadsheets.batchUpdate", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("spreadsheets.batchUpdate add sheets: %w", err)
	}
	return nil
}

// GetValues reads a range as strings. Missing trailing cells stay absent;
// callers handle short rows.
func (c *Client) GetValues(ctx context.Context, rng string) ([][]string, error) {
	var valueRange *sheets.ValueRange
	err := c.retry.do(ctx, "values.get", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		valueRange, err = c.service.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("values.get %s: %w", rng, err)
	}

	rows := make([][]string, 0, len(valueRange.Values))
	for _, raw := range valueRange.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UpdateValues overwrites a range in place.
func (c *Client) UpdateValues(ctx context.Context, rng string, rows [][]string) error {
	err := c.retry.do(ctx, "values.update", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rng, &sheets.ValueRange{
			Values: toCells(rows),
		}).ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("values.update %s: %w", rng, err)
	}
	return nil
}

// AppendValues appends rows after the last data row of the range's table.
func (c *Client) AppendValues(ctx context.Context, rng string, rows [][]string) error {
	err := c.retry.do(ctx, "values.append", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, rng, &sheets.ValueRange{
			Values: toCells(rows),
		}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("values.append %s: %w", rng, err)
	}
	return nil
}

// DeleteRows removes the half-open row interval [start, end) from the
// worksheet, zero-based.
func (c *Client) DeleteRows(ctx context.Context, sheetID, start, end int64) error {
	err := c.retry.do(ctx, "spreadsheets.batchUpdate", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: start,
						EndIndex:   end,
					},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("spreadsheets.batchUpdate delete rows: %w", err)
	}
	return nil
}

func toCells(rows [][]string) [][]any {
	cells := make([][]any, 0, len(rows))
	for _, row := range rows {
		cellRow := make([]any, 0, len(row))
		for _, v := range row {
			cellRow = append(cellRow, v)
		}
		cells = append(cells, cellRow)
	}
	return cells
}
