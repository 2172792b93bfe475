// Package export writes pages of model rows as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rebelice/lazyadmin/internal/jsonb"
	"github.com/rebelice/lazyadmin/internal/models"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" and "json" in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Write exports data in the given format
func Write(w io.Writer, f Format, data *models.TableData) error {
	if f == FormatJSON {
		return WriteJSON(w, data)
	}
	return WriteCSV(w, data)
}

// WriteCSV writes a header row of column names followed by one line per row.
// NULL values are written as NULL.
func WriteCSV(w io.Writer, data *models.TableData) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(data.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i := range record {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			record[i] = formatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the rows as a pretty-printed array of objects keyed by
// column name
func WriteJSON(w io.Writer, data *models.TableData) error {
	objects := make([]map[string]interface{}, 0, len(data.Rows))
	for _, row := range data.Rows {
		obj := make(map[string]interface{}, len(data.Columns))
		for i, col := range data.Columns {
			if i < len(row) {
				obj[col] = row[i]
			} else {
				obj[col] = nil
			}
		}
		objects = append(objects, obj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(objects); err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	return nil
}

// ExportToFile writes data to path in the given format
func ExportToFile(data *models.TableData, f Format, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := Write(file, f, data); err != nil {
		return err
	}
	return file.Close()
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case json.RawMessage, map[string]interface{}, []interface{}:
		out, err := jsonb.Compact(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}
