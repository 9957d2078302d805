package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/devcon26/registration-api/models"
	"github.com/devcon26/registration-api/repositories"
)

const (
	ExportFormatCSV   = "csv"
	ExportFormatExcel = "excel"

	exportSheetName = "Registrations"
	exportBaseName  = "devcon26_registrations"
)

var exportHeader = []string{"Full Name", "Email", "University", "Track", "Team", "Payment Status"}

type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

type ExportService interface {
	ExportRegistrations(ctx context.Context, format string) (*ExportFile, error)
}

type exportService struct {
	participantRepo repositories.ParticipantRepository
}

func NewExportService(participantRepo repositories.ParticipantRepository) ExportService {
	return &exportService{participantRepo: participantRepo}
}

// ExportRegistrations выгружает всех участников в CSV (по умолчанию) или XLSX.
func (s *exportService) ExportRegistrations(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatExcel {
		return nil, ErrUnsupportedExportFormat
	}

	rows, err := s.participantRepo.ListRegistrationRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, registrationRecord(r))
	}

	if format == ExportFormatExcel {
		data, err := renderXLSX(records)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			FileName:    exportBaseName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	}

	data, err := renderCSV(records)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		FileName:    exportBaseName + ".csv",
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

func registrationRecord(r models.RegistrationRow) []string {
	team := "Individual"
	if r.TeamName != nil {
		team = *r.TeamName
	}
	payment := "No Payment"
	if r.PaymentStatus != nil {
		payment = string(*r.PaymentStatus)
	}
	return []string{r.FullName, r.Email, r.University, string(r.Track), team, payment}
}

func renderCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(records [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, exportSheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(exportHeader)); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, toCells(rec)); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
