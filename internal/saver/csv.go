package saver

import (
	"encoding/csv"
	"os"
	"strconv"
)

// CSVSaver writes rows as CSV (header: series,date,error).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"series", "date", "error"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Series, r.Date, strconv.FormatFloat(r.Error, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
