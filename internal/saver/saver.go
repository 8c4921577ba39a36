package saver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/taylorsk/volatility-analysis/internal/model"
)

// Row is one accuracy sample in flat form for export.
type Row struct {
	Series string  `json:"series" parquet:"series"`
	Date   string  `json:"date" parquet:"date"`
	Error  float64 `json:"error" parquet:"error"`
}

// SeriesSaver writes accuracy rows to a file.
type SeriesSaver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// NewSeriesSaver returns the saver for format (csv, parquet, json), or nil if unsupported.
func NewSeriesSaver(format string) SeriesSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// Rows flattens the given series in order, samples keeping their series order.
func Rows(series ...model.AccuracySeries) []Row {
	var n int
	for _, s := range series {
		n += len(s.Samples)
	}
	rows := make([]Row, 0, n)
	for _, s := range series {
		for _, smp := range s.Samples {
			rows = append(rows, Row{Series: s.Name, Date: smp.Date.String(), Error: smp.Error})
		}
	}
	return rows
}

// Export writes the series with s, replacing the extension of path with the saver's own.
// It returns the path written.
func Export(s SeriesSaver, path string, series ...model.AccuracySeries) (string, error) {
	out := strings.TrimSuffix(path, filepath.Ext(path)) + "." + s.Extension()
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := s.Save(Rows(series...), out); err != nil {
		return "", fmt.Errorf("save %s: %w", s.Extension(), err)
	}
	return out, nil
}
