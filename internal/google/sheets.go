// Package google stores the timetable sheets in a Google Sheets spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"gymschedule/internal/model"
	"gymschedule/internal/sheet"
	"gymschedule/internal/slots"
)

const (
	maxAttempts  = 4
	retryBackoff = 500 * time.Millisecond
)

// SheetsService implements the member and reservation sheets on one
// spreadsheet. Calls are throttled to stay under the Sheets API quota.
type SheetsService struct {
	api           *sheets.Service
	spreadsheetID string
	schedule      *slots.Schedule
	limiter       *rate.Limiter
	backoff       time.Duration
	logger        *zerolog.Logger
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(
	ctx context.Context,
	credentialsFile, spreadsheetID string,
	requestsPerMinute int,
	schedule *slots.Schedule,
	logger *zerolog.Logger,
) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return NewSheetsServiceWithOptions(ctx, spreadsheetID, requestsPerMinute, schedule, logger, option.WithCredentials(creds))
}

// NewSheetsServiceWithOptions builds the client from explicit client options.
func NewSheetsServiceWithOptions(
	ctx context.Context,
	spreadsheetID string,
	requestsPerMinute int,
	schedule *slots.Schedule,
	logger *zerolog.Logger,
	opts ...option.ClientOption,
) (*SheetsService, error) {
	api, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &SheetsService{
		api:           api,
		spreadsheetID: spreadsheetID,
		schedule:      schedule,
		limiter:       rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		backoff:       retryBackoff,
		logger:        logger,
	}, nil
}

// sheetRange addresses a whole sheet in A1 notation.
func sheetRange(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

// call runs fn under the rate limiter, retrying quota and server errors.
func (s *SheetsService) call(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if werr := s.limiter.Wait(ctx); werr != nil {
			return werr
		}
		if err = fn(); err == nil || !retryable(err) || attempt == maxAttempts {
			break
		}

		wait := s.backoff * time.Duration(1<<(attempt-1))
		s.logger.Warn().Err(err).Str("call", what).Int("attempt", attempt).Dur("wait", wait).Msg("Sheets API call failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (s *SheetsService) sheetTitles(ctx context.Context) (map[string]bool, error) {
	var resp *sheets.Spreadsheet
	err := s.call(ctx, "get spreadsheet", func() error {
		var err error
		resp, err = s.api.Spreadsheets.Get(s.spreadsheetID).
			Fields("sheets.properties.title").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	titles := make(map[string]bool, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles[sh.Properties.Title] = true
		}
	}
	return titles, nil
}

func (s *SheetsService) readValues(ctx context.Context, name string) ([][]string, error) {
	var resp *sheets.ValueRange
	err := s.call(ctx, "read "+name, func() error {
		var err error
		resp, err = s.api.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(name)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toStrings(resp.Values), nil
}

// writeValues clears a sheet and writes rows from A1.
func (s *SheetsService) writeValues(ctx context.Context, name string, rows [][]string) error {
	err := s.call(ctx, "clear "+name, func() error {
		_, err := s.api.Spreadsheets.Values.Clear(s.spreadsheetID, sheetRange(name), &sheets.ClearValuesRequest{}).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return err
	}

	body := &sheets.ValueRange{Values: toValues(rows)}
	err = s.call(ctx, "write "+name, func() error {
		_, err := s.api.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange(name), body).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Debug().Str("sheet", name).Int("rows", len(rows)-1).Msg("Sheet written")
	return nil
}

func (s *SheetsService) addSheet(ctx context.Context, name string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}
	return s.call(ctx, "add sheet "+name, func() error {
		_, err := s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

func (s *SheetsService) LoadMembers(ctx context.Context) ([]model.Member, error) {
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	if !titles[sheet.MembersSheet] {
		return nil, nil
	}
	rows, err := s.readValues(ctx, sheet.MembersSheet)
	if err != nil {
		return nil, err
	}
	return sheet.ParseMembers(rows, s.schedule)
}

func (s *SheetsService) SaveMembers(ctx context.Context, members []model.Member) error {
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if !titles[sheet.MembersSheet] {
		if err := s.addSheet(ctx, sheet.MembersSheet); err != nil {
			return err
		}
	}
	return s.writeValues(ctx, sheet.MembersSheet, sheet.FormatMembers(members))
}

func (s *SheetsService) LoadMonth(ctx context.Context, year, month int) ([]model.Reservation, error) {
	name := sheet.MonthSheet(year, month)
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return nil, err
	}
	if !titles[name] {
		return nil, &model.SheetMissingError{Month: name}
	}
	rows, err := s.readValues(ctx, name)
	if err != nil {
		return nil, err
	}
	return sheet.ParseReservations(rows, s.schedule, year, month)
}

func (s *SheetsService) SaveMonth(ctx context.Context, year, month int, rows []model.Reservation) error {
	name := sheet.MonthSheet(year, month)
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if !titles[name] {
		return &model.SheetMissingError{Month: name}
	}
	return s.writeValues(ctx, name, sheet.FormatReservations(rows))
}

func (s *SheetsService) CreateMonth(ctx context.Context, year, month int, rows []model.Reservation) error {
	name := sheet.MonthSheet(year, month)
	titles, err := s.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if titles[name] {
		return fmt.Errorf("sheet %s already exists", name)
	}
	if err := s.addSheet(ctx, name); err != nil {
		return err
	}
	return s.writeValues(ctx, name, sheet.FormatReservations(rows))
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
