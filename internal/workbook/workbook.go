// Package workbook stores the timetable sheets in a local .xlsx file.
package workbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"gymschedule/internal/model"
	"gymschedule/internal/sheet"
	"gymschedule/internal/slots"
)

const defaultSheet = "Sheet1"

// Workbook implements the member and reservation sheets on top of one file.
// Every call opens and closes the file.
type Workbook struct {
	path     string
	schedule *slots.Schedule
	logger   *zerolog.Logger
}

func New(path string, schedule *slots.Schedule, logger *zerolog.Logger) *Workbook {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Workbook{path: path, schedule: schedule, logger: logger}
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	return f, nil
}

func (w *Workbook) save(f *excelize.File) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// read returns the rows of a sheet; ok is false when the sheet does not exist.
func (w *Workbook) read(name string) (rows [][]string, ok bool, err error) {
	f, err := w.open()
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	if !hasSheet(f, name) {
		return nil, false, nil
	}
	rows, err = f.GetRows(name)
	if err != nil {
		return nil, true, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return rows, true, nil
}

// write replaces the content of a sheet. With mustExist unset a missing
// sheet is created.
func (w *Workbook) write(name string, rows [][]string, mustExist bool) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	exists := hasSheet(f, name)
	if !exists && mustExist {
		return &model.SheetMissingError{Month: name}
	}
	if !exists {
		if err := addSheet(f, name); err != nil {
			return err
		}
	}

	old, err := f.GetRows(name)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", name, err)
	}
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("write sheet %s: %w", name, err)
		}
	}
	for r := len(old); r > len(rows); r-- {
		if err := f.RemoveRow(name, r); err != nil {
			return fmt.Errorf("trim sheet %s: %w", name, err)
		}
	}

	if len(rows) > 0 {
		styleHeader(f, name, len(rows[0]))
	}
	if err := w.save(f); err != nil {
		return err
	}

	w.logger.Debug().Str("sheet", name).Int("rows", len(rows)-1).Msg("Sheet written")
	return nil
}

func addSheet(f *excelize.File, name string) error {
	// A fresh workbook carries an empty default sheet; reuse it.
	if list := f.GetSheetList(); len(list) == 1 && list[0] == defaultSheet {
		if rows, _ := f.GetRows(defaultSheet); len(rows) == 0 {
			return f.SetSheetName(defaultSheet, name)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return nil
}

func styleHeader(f *excelize.File, name string, columns int) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return
	}
	endCell, _ := excelize.CoordinatesToCellName(columns, 1)
	_ = f.SetCellStyle(name, "A1", endCell, style)
}

// LoadMembers returns the roster. A workbook without a member sheet has no members.
func (w *Workbook) LoadMembers(_ context.Context) ([]model.Member, error) {
	rows, _, err := w.read(sheet.MembersSheet)
	if err != nil {
		return nil, err
	}
	return sheet.ParseMembers(rows, w.schedule)
}

func (w *Workbook) SaveMembers(_ context.Context, members []model.Member) error {
	return w.write(sheet.MembersSheet, sheet.FormatMembers(members), false)
}

func (w *Workbook) LoadMonth(_ context.Context, year, month int) ([]model.Reservation, error) {
	name := sheet.MonthSheet(year, month)
	rows, ok, err := w.read(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &model.SheetMissingError{Month: name}
	}
	return sheet.ParseReservations(rows, w.schedule, year, month)
}

func (w *Workbook) SaveMonth(_ context.Context, year, month int, rows []model.Reservation) error {
	return w.write(sheet.MonthSheet(year, month), sheet.FormatReservations(rows), true)
}

func (w *Workbook) CreateMonth(_ context.Context, year, month int, rows []model.Reservation) error {
	name := sheet.MonthSheet(year, month)
	_, ok, err := w.read(name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("sheet %s already exists", name)
	}
	return w.write(name, sheet.FormatReservations(rows), false)
}
