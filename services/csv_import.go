package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/princinho/dashbackend/logging"
	"github.com/princinho/dashbackend/models"
)

// CSVImporter merges uploaded CSV files into a serial collection.
type CSVImporter struct {
	resources *ResourceService
	log       logging.Logger
}

func NewCSVImporter(resources *ResourceService, log logging.Logger) *CSVImporter {
	if log == nil {
		log = logging.Discard()
	}
	return &CSVImporter{resources: resources, log: log}
}

// ImportFile parses the CSV at path and appends its rows to the named
// collection. The file is removed afterwards whatever the outcome.
func (i *CSVImporter) ImportFile(ctx context.Context, name, path string) ([]models.Item, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			i.log.Warn(ctx, "could not remove uploaded csv", "path", path, "err", err)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return i.Import(ctx, name, data)
}

// Import parses csv and appends the rows as-is, numbering any row that has no
// sr of its own. Nothing is merged unless the whole file parses.
func (i *CSVImporter) Import(ctx context.Context, name string, data []byte) ([]models.Item, error) {
	if _, err := i.resources.Collection(name); err != nil {
		return nil, err
	}
	rows, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	stored, err := i.resources.AppendRaw(ctx, name, rows)
	if err != nil {
		return nil, err
	}
	i.log.Info(ctx, "csv imported", "resource", name, "rows", len(stored))
	return stored, nil
}

// ParseCSV reads a header line followed by records and returns one Item per
// record keyed by header name. Short records simply lack the trailing
// columns; surplus fields are dropped.
func ParseCSV(r io.Reader) ([]models.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []models.Item{}, nil
	}
	if err != nil {
		return nil, NewParseError(fmt.Sprintf("invalid csv: %v", err))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := []models.Item{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewParseError(fmt.Sprintf("invalid csv: %v", err))
		}
		row := models.Item{}
		for j, v := range rec {
			if j >= len(header) || header[j] == "" {
				continue
			}
			row[header[j]] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
