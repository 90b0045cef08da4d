package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"promoreg/internal/registration/models"
)

// The assigned_destination and destination_history columns are L and M in
// the 13-column layout.
const assignmentFirstColumn = "L"
const assignmentLastColumn = "M"
const lastColumn = "M"

// SheetsConfig configures the Google Sheets backend.
type SheetsConfig struct {
	// CredentialsB64 is the base64-encoded service account JSON, the format
	// the campaign has always used for shipping credentials through the
	// environment.
	CredentialsB64 string
	SpreadsheetID  string

	// WorksheetPrefix names the data worksheets: the first is the prefix
	// itself, overflow worksheets are "<prefix>_2", "<prefix>_3", ...
	WorksheetPrefix string

	// MaxRows is the per-worksheet row cap (including the header) before
	// rolling over to a fresh worksheet.
	MaxRows int

	// IdleRefresh rebuilds the API client after this much idle time.
	// Zero disables refreshing.
	IdleRefresh time.Duration
}

// SheetsStore persists records in a Google spreadsheet, rolling over to a new
// worksheet when the current one fills up. Worksheets are append-only; rows
// are never deleted.
type SheetsStore struct {
	cfg    SheetsConfig
	loc    *time.Location
	logger *slog.Logger

	creds []byte

	mu       sync.Mutex
	svc      *sheets.Service
	current  string
	index    int
	rowCount int
	lastUsed time.Time
}

// NewSheets builds the store and discovers (or creates) the active worksheet.
func NewSheets(ctx context.Context, cfg SheetsConfig, loc *time.Location, logger *slog.Logger) (*SheetsStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.WorksheetPrefix == "" {
		return nil, fmt.Errorf("worksheet prefix is required")
	}
	if cfg.MaxRows <= 1 {
		cfg.MaxRows = 50000
	}
	if loc == nil {
		loc = time.UTC
	}

	creds, err := base64.StdEncoding.DecodeString(cfg.CredentialsB64)
	if err != nil {
		return nil, fmt.Errorf("decode sheets credentials: %w", err)
	}

	s := &SheetsStore{cfg: cfg, loc: loc, logger: logger, creds: creds}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCurrentLocked(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SheetsStore) connect(ctx context.Context) error {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(s.creds),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return fmt.Errorf("create sheets client: %w", err)
	}
	s.mu.Lock()
	s.svc = svc
	s.lastUsed = time.Now()
	s.mu.Unlock()
	return nil
}

// serviceLocked returns a working API handle, rebuilding it after an idle
// interval. Callers must hold s.mu.
func (s *SheetsStore) serviceLocked(ctx context.Context) (*sheets.Service, error) {
	if s.cfg.IdleRefresh > 0 && time.Since(s.lastUsed) > s.cfg.IdleRefresh {
		svc, err := sheets.NewService(ctx,
			option.WithCredentialsJSON(s.creds),
			option.WithScopes(sheets.SpreadsheetsScope),
		)
		if err != nil {
			return nil, fmt.Errorf("refresh sheets client: %w", err)
		}
		s.svc = svc
	}
	s.lastUsed = time.Now()
	return s.svc, nil
}

// worksheetNumber extracts the rollover index from a worksheet title.
// The bare prefix counts as 1.
func (s *SheetsStore) worksheetNumber(title string) int {
	if title == s.cfg.WorksheetPrefix {
		return 1
	}
	suffix := strings.TrimPrefix(title, s.cfg.WorksheetPrefix+"_")
	if n, err := strconv.Atoi(suffix); err == nil {
		return n
	}
	return 1
}

// dataWorksheets lists the data worksheet titles sorted by rollover index.
func (s *SheetsStore) dataWorksheetsLocked(ctx context.Context) ([]string, error) {
	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return nil, err
	}
	ss, err := svc.Spreadsheets.Get(s.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list worksheets: %w", err)
	}

	var titles []string
	for _, sheet := range ss.Sheets {
		if sheet.Properties == nil {
			continue
		}
		title := sheet.Properties.Title
		if title == s.cfg.WorksheetPrefix || strings.HasPrefix(title, s.cfg.WorksheetPrefix+"_") {
			titles = append(titles, title)
		}
	}
	sort.Slice(titles, func(i, j int) bool {
		return s.worksheetNumber(titles[i]) < s.worksheetNumber(titles[j])
	})
	return titles, nil
}

// checkCurrentLocked finds the latest data worksheet, creating the first one
// when the spreadsheet is empty, and rolls over when the latest is full.
func (s *SheetsStore) checkCurrentLocked(ctx context.Context) error {
	titles, err := s.dataWorksheetsLocked(ctx)
	if err != nil {
		return err
	}

	if len(titles) == 0 {
		s.index = 0
		return s.createNextLocked(ctx)
	}

	latest := titles[len(titles)-1]
	s.current = latest
	s.index = s.worksheetNumber(latest)

	count, err := s.rowCountLocked(ctx, latest)
	if err != nil {
		return err
	}
	s.rowCount = count

	if s.rowCount >= s.cfg.MaxRows {
		return s.createNextLocked(ctx)
	}
	return nil
}

func (s *SheetsStore) rowCountLocked(ctx context.Context, title string) (int, error) {
	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return 0, err
	}
	resp, err := svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, title+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", title, err)
	}
	return len(resp.Values), nil
}

// createNextLocked adds a fresh worksheet with the header row and makes it
// current.
func (s *SheetsStore) createNextLocked(ctx context.Context) error {
	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return err
	}

	s.index++
	title := s.cfg.WorksheetPrefix
	if s.index > 1 {
		title = fmt.Sprintf("%s_%d", s.cfg.WorksheetPrefix, s.index)
	}

	_, err = svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					GridProperties: &sheets.GridProperties{
						// Buffer beyond the cap so the rollover check, not
						// the grid size, decides when a worksheet is full.
						RowCount:    int64(s.cfg.MaxRows + 1000),
						ColumnCount: 20,
					},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create worksheet %s: %w", title, err)
	}

	header := make([]interface{}, len(models.ColumnHeader))
	for i, h := range models.ColumnHeader {
		header[i] = h
	}
	_, err = svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID,
		fmt.Sprintf("%s!A1:%s1", title, lastColumn),
		&sheets.ValueRange{Values: [][]interface{}{header}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", title, err)
	}

	s.current = title
	s.rowCount = 1
	if s.logger != nil {
		s.logger.Info("created new worksheet", "worksheet", title)
	}
	return nil
}

// Append adds the record to the current worksheet, rolling over first if it
// is full. Failures come back as *WriteError.
func (s *SheetsStore) Append(ctx context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rowCount >= s.cfg.MaxRows {
		if s.logger != nil {
			s.logger.Info("worksheet full, rolling over", "worksheet", s.current, "rows", s.rowCount)
		}
		if err := s.createNextLocked(ctx); err != nil {
			return NewWriteError(classifySheetsError(err), err)
		}
	}

	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return NewWriteError(KindUnavailable, err)
	}

	row := make([]interface{}, 0, len(models.ColumnHeader))
	for _, col := range record.Columns() {
		row = append(row, col)
	}
	_, err = svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID,
		s.current+"!A1",
		&sheets.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return NewWriteError(classifySheetsError(err), fmt.Errorf("append row: %w", err))
	}

	s.rowCount++
	return nil
}

// FindLatestByUserID searches all data worksheets newest-first and, within a
// worksheet, bottom-up, so the first hit is the most recently created record.
func (s *SheetsStore) FindLatestByUserID(ctx context.Context, userID string) (*Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles, err := s.dataWorksheetsLocked(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(titles) - 1; i >= 0; i-- {
		title := titles[i]
		resp, err := svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID,
			fmt.Sprintf("%s!A:%s", title, lastColumn),
		).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("read worksheet %s: %w", title, err)
		}

		for r := len(resp.Values) - 1; r >= 1; r-- { // row 0 is the header
			cols := stringifyRow(resp.Values[r])
			if len(cols) > models.UserIDColumn && cols[models.UserIDColumn] == userID {
				return &Row{
					Record:    models.FromColumns(cols, s.loc),
					Worksheet: title,
					Position:  int64(r + 1),
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

// UpdateAssignment rewrites the assignment columns of the located row.
func (s *SheetsStore) UpdateAssignment(ctx context.Context, row *Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return NewWriteError(KindUnavailable, err)
	}

	rng := fmt.Sprintf("%s!%s%d:%s%d",
		row.Worksheet, assignmentFirstColumn, row.Position, assignmentLastColumn, row.Position)
	_, err = svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, rng,
		&sheets.ValueRange{Values: [][]interface{}{{
			row.Record.AssignedDestination,
			row.Record.HistoryColumn(),
		}}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return NewWriteError(classifySheetsError(err), fmt.Errorf("update assignment: %w", err))
	}
	return nil
}

// Stats reports per-worksheet usage, excluding header rows from record counts.
func (s *SheetsStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	titles, err := s.dataWorksheetsLocked(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Backend: "sheets", CurrentWorksheet: s.current}
	for _, title := range titles {
		count, err := s.rowCountLocked(ctx, title)
		if err != nil {
			return nil, err
		}
		records := count - 1
		if records < 0 {
			records = 0
		}
		stats.TotalRecords += records
		stats.Worksheets = append(stats.Worksheets, WorksheetStats{
			Name:        title,
			Rows:        records,
			CapacityPct: float64(count) / float64(s.cfg.MaxRows) * 100,
		})
	}
	return stats, nil
}

// HealthCheck fetches spreadsheet metadata with a short timeout.
func (s *SheetsStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	svc, err := s.serviceLocked(ctx)
	if err != nil {
		return err
	}
	if _, err := svc.Spreadsheets.Get(s.cfg.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets metadata fetch: %w", err)
	}
	return nil
}

func stringifyRow(values []interface{}) []string {
	cols := make([]string, len(values))
	for i, v := range values {
		cols[i] = fmt.Sprint(v)
	}
	return cols
}

// classifySheetsError maps Google API status codes onto retry semantics.
func classifySheetsError(err error) ErrorKind {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return KindUnavailable
	}
	switch {
	case apiErr.Code == 429:
		return KindRateLimited
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return KindInvalid
	default:
		return KindUnavailable
	}
}
