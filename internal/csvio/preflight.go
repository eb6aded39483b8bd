// Package csvio validates transaction CSV files before they are uploaded.
// The backend remains the authority on what imports; the preflight exists
// so an unusable file is rejected locally and row counts are known up
// front.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cashops/atmctl/internal/common"
	"github.com/cashops/atmctl/internal/model"
)

// RequiredColumns are the columns an import file must declare.
var RequiredColumns = []string{"atm_id", "vault_id", "amount", "transaction_type", "timestamp"}

// timestampLayouts are the formats accepted for the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Preflight is the result of validating a CSV file locally.
type Preflight struct {
	Columns   []string
	RowErrors []string
	DataRows  int
}

// Check reads the whole file and validates its structure. A missing or
// malformed header is an error: the file cannot be imported at all.
// Malformed data rows are not errors; they are collected in RowErrors so
// the caller can warn before uploading, mirroring the backend's
// partial-success contract.
func Check(r io.Reader) (*Preflight, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", common.ErrInvalidCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidCSV, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s",
			common.ErrInvalidCSV, strings.Join(missing, ", "))
	}

	result := &Preflight{Columns: header}

	// Row numbers are 1-based and count the header, matching how the
	// backend reports row errors.
	row := 1
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		row++
		result.DataRows++

		if readErr != nil {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("row %d: %v", row, readErr))
			continue
		}
		if rowErr := checkRow(columns, record); rowErr != nil {
			result.RowErrors = append(result.RowErrors,
				fmt.Sprintf("row %d: %v", row, rowErr))
		}
	}

	return result, nil
}

func checkRow(columns map[string]int, record []string) error {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	if _, err := strconv.Atoi(field("atm_id")); err != nil {
		return fmt.Errorf("invalid atm_id %q", field("atm_id"))
	}
	if _, err := strconv.Atoi(field("vault_id")); err != nil {
		return fmt.Errorf("invalid vault_id %q", field("vault_id"))
	}

	amount, err := strconv.ParseFloat(field("amount"), 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", field("amount"))
	}
	if amount < 0 {
		return fmt.Errorf("negative amount %v", amount)
	}

	txType := model.TransactionType(field("transaction_type"))
	if !txType.Valid() {
		return fmt.Errorf("unknown transaction_type %q", field("transaction_type"))
	}

	ts := field("timestamp")
	if !validTimestamp(ts) {
		return fmt.Errorf("unparseable timestamp %q", ts)
	}

	return nil
}

func validTimestamp(value string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}
