package db

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ExportOutcomes writes one CSV row per verified record.
func (db *DB) ExportOutcomes(exportFile string) error {
	if err := os.MkdirAll(filepath.Dir(exportFile), 0o755); err != nil {
		return errors.Wrap(err, "couldn't create export directory")
	}

	csvFile, err := os.Create(exportFile)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	csvWriter := csv.NewWriter(csvFile)

	if err := csvWriter.Write([]string{
		"Set",
		"Case",
		"Row",
		"Key",
		"ID",
		"Step",
		"Status",
		"Reason",
	}); err != nil {
		return err
	}

	db.Lock()
	records := append([]*Info(nil), db.records...)
	db.Unlock()

	for _, r := range records {
		err = csvWriter.Write([]string{
			r.Set,
			r.Case,
			strconv.Itoa(r.Row),
			r.Key,
			r.ID,
			r.Step,
			r.Status,
			strings.Join(r.Reasons, "; "),
		})
		if err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
