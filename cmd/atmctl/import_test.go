package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashops/atmctl/internal/csvio"
)

func TestPreflightReport_WarnsPerBadRow(t *testing.T) {
	csvFile := strings.NewReader(
		"atm_id,vault_id,amount,transaction_type,timestamp\n" +
			"1,2,100.50,withdrawal,2025-06-01 10:30:00\n" +
			"1,2,not-a-number,withdrawal,2025-06-01 11:00:00\n" +
			"1,2,50.00,deposit,2025-06-01 12:00:00\n")

	preflight, err := csvio.Check(csvFile)
	require.NoError(t, err)

	lines := preflightReport(preflight)
	require.Len(t, lines, 2, "one warning plus the count line")
	assert.Contains(t, lines[0], "row 3")
	assert.Contains(t, lines[1], "3 data rows, 1 with problems")
}

func TestPreflightReport_CleanFile(t *testing.T) {
	csvFile := strings.NewReader(
		"atm_id,vault_id,amount,transaction_type,timestamp\n" +
			"1,2,100.50,withdrawal,2025-06-01 10:30:00\n")

	preflight, err := csvio.Check(csvFile)
	require.NoError(t, err)

	lines := preflightReport(preflight)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "1 data rows, 0 with problems")
}
