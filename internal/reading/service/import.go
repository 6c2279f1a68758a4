package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxImportRows = 20000

// importRow is one data line of an import file. Line is 1-based and counts
// the header.
type importRow struct {
	Line        int
	HouseID     string
	MohallaCode string
	HouseNumber string
	Period      string
	Import      string
	Export      string
	Water       string
}

var importColumns = map[string]func(*importRow, string){
	"house_id":       func(r *importRow, v string) { r.HouseID = v },
	"mohalla_code":   func(r *importRow, v string) { r.MohallaCode = v },
	"house_number":   func(r *importRow, v string) { r.HouseNumber = v },
	"period":         func(r *importRow, v string) { r.Period = v },
	"import_reading": func(r *importRow, v string) { r.Import = v },
	"export_reading": func(r *importRow, v string) { r.Export = v },
	"water_reading":  func(r *importRow, v string) { r.Water = v },
}

// Import upserts every row of a CSV or XLSX file. Rows are applied oldest
// month first so each month sees its predecessor; a bad row is reported and
// skipped.
func (s *Service) Import(ctx context.Context, req readingdomain.ImportRequest) (*readingdomain.ImportResponse, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if req.Body == nil {
		return nil, readingdomain.ErrEmptyImport
	}

	var (
		records [][]string
		err     error
	)
	switch format {
	case readingdomain.FormatCSV:
		records, err = readCSV(req.Body)
	case readingdomain.FormatXLSX:
		records, err = readXLSX(req.Body)
	default:
		return nil, readingdomain.ErrInvalidFormat
	}
	if err != nil {
		return nil, err
	}

	rows, err := parseRows(records)
	if err != nil {
		return nil, err
	}

	defaultPeriod := strings.TrimSpace(req.Period)
	if defaultPeriod != "" {
		if _, err := billingrules.ParsePeriod(defaultPeriod); err != nil {
			return nil, readingdomain.ErrInvalidPeriod
		}
	}
	for i := range rows {
		if rows[i].Period == "" {
			rows[i].Period = defaultPeriod
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		pi, _ := billingrules.ParsePeriod(rows[i].Period)
		pj, _ := billingrules.ParsePeriod(rows[j].Period)
		return pi.Before(pj)
	})

	resp := &readingdomain.ImportResponse{Errors: []readingdomain.ImportRowError{}}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.importRow(ctx, row); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, readingdomain.ImportRowError{Row: row.Line, Message: err.Error()})
			continue
		}
		resp.Imported++
	}

	s.metrics.RecordReadingsImported(ctx, format, resp.Imported)
	s.log.Info("readings imported",
		zap.String("format", format),
		zap.Int("imported", resp.Imported),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

func (s *Service) importRow(ctx context.Context, row importRow) error {
	houseID := row.HouseID
	if houseID == "" {
		if row.MohallaCode == "" || row.HouseNumber == "" {
			return readingdomain.ErrInvalidHouse
		}
		id, err := s.repo.FindHouseID(ctx, s.db, row.MohallaCode, row.HouseNumber)
		if err != nil {
			return err
		}
		if id == 0 {
			return readingdomain.ErrHouseNotFound
		}
		houseID = id.String()
	}

	importReading, err := parseReading(row.Import, true)
	if err != nil {
		return err
	}
	exportReading, err := parseReading(row.Export, false)
	if err != nil {
		return err
	}
	waterReading, err := parseReading(row.Water, true)
	if err != nil {
		return err
	}

	_, err = s.Upsert(ctx, readingdomain.UpsertRequest{
		HouseID:       houseID,
		Period:        row.Period,
		ImportReading: importReading,
		ExportReading: exportReading,
		WaterReading:  waterReading,
	})
	return err
}

func parseReading(value string, required bool) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return nil, readingdomain.ErrInvalidReading
		}
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return nil, readingdomain.ErrInvalidReading
	}
	return &d, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", readingdomain.ErrInvalidFormat, err)
		}
		records = append(records, record)
		if len(records) > maxImportRows+1 {
			return nil, fmt.Errorf("%w: more than %d rows", readingdomain.ErrInvalidFormat, maxImportRows)
		}
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", readingdomain.ErrInvalidFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, readingdomain.ErrEmptyImport
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", readingdomain.ErrInvalidFormat, err)
	}
	if len(rows) > maxImportRows+1 {
		return nil, fmt.Errorf("%w: more than %d rows", readingdomain.ErrInvalidFormat, maxImportRows)
	}
	return rows, nil
}

// parseRows maps records to rows by their header line. Blank lines are
// skipped.
func parseRows(records [][]string) ([]importRow, error) {
	if len(records) < 2 {
		return nil, readingdomain.ErrEmptyImport
	}

	setters := make([]func(*importRow, string), len(records[0]))
	known := 0
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if set, ok := importColumns[key]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("%w: no recognised columns in header", readingdomain.ErrInvalidFormat)
	}

	rows := make([]importRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row := importRow{Line: i + 2}
		blank := true
		for col, value := range record {
			if col >= len(setters) || setters[col] == nil {
				continue
			}
			value = strings.TrimSpace(value)
			if value != "" {
				blank = false
			}
			setters[col](&row, value)
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, readingdomain.ErrEmptyImport
	}
	return rows, nil
}
