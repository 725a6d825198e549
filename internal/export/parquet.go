package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/anatomist/internal/models"
)

// Row is one labeled image in the export file.
type Row struct {
	SessionID    string   `parquet:"session_id"`
	Filename     string   `parquet:"filename"`
	Position     int32    `parquet:"position"`
	Original     string   `parquet:"original"`
	Organ        string   `parquet:"organ"`
	Labels       []string `parquet:"labels,list"`
	ReferenceURL string   `parquet:"reference_url,optional"`
	Status       string   `parquet:"status"`
}

// Rows flattens labeled results of a session.
func Rows(sessionID, filename string, labeled []models.LabeledImage) []Row {
	rows := make([]Row, 0, len(labeled))
	for i, l := range labeled {
		labels := l.Labels
		if labels == nil {
			labels = []string{}
		}
		rows = append(rows, Row{
			SessionID:    sessionID,
			Filename:     filename,
			Position:     int32(i + 1),
			Original:     l.Original,
			Organ:        l.Organ,
			Labels:       labels,
			ReferenceURL: l.ReferenceURL,
			Status:       l.Status,
		})
	}
	return rows
}

// WriteParquet writes rows as a single parquet file.
func WriteParquet(w io.Writer, rows []Row) error {
	writer := parquet.NewGenericWriter[Row](w)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	slog.Debug("Wrote parquet export", "rows", len(rows))
	return nil
}

// ReadParquet reads back a file written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var records []Row
	batch := make([]Row, 64)
	for {
		n, err := reader.Read(batch)
		records = append(records, batch[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return records, nil
}
