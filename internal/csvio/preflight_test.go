package csvio

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cashops/atmctl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "atm_id,vault_id,amount,transaction_type,timestamp,notes\n"

func validRow(i int) string {
	return fmt.Sprintf("%d,1,%d.50,withdrawal,2025-04-01 10:0%d:00,\n", i, 100+i, i%10)
}

func TestCheck_ValidFile(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := 1; i <= 5; i++ {
		b.WriteString(validRow(i))
	}

	result, err := Check(strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 5, result.DataRows)
	assert.Empty(t, result.RowErrors)
}

func TestCheck_OneMalformedRowOfTen(t *testing.T) {
	var b strings.Builder
	b.WriteString(header)
	for i := 1; i <= 10; i++ {
		if i == 4 {
			b.WriteString("4,1,not-a-number,withdrawal,2025-04-01 10:00:00,\n")
			continue
		}
		b.WriteString(validRow(i))
	}

	result, err := Check(strings.NewReader(b.String()))
	require.NoError(t, err, "malformed rows are reported, not fatal")

	assert.Equal(t, 10, result.DataRows)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], "row 5", "row numbers count the header")
	assert.Contains(t, result.RowErrors[0], "amount")
}

func TestCheck_MissingRequiredColumn(t *testing.T) {
	input := "atm_id,vault_id,amount,timestamp\n1,1,100,2025-04-01\n"

	_, err := Check(strings.NewReader(input))

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidCSV)
	assert.Contains(t, err.Error(), "transaction_type")
}

func TestCheck_EmptyFile(t *testing.T) {
	_, err := Check(strings.NewReader(""))

	assert.ErrorIs(t, err, common.ErrInvalidCSV)
}

func TestCheck_NotesColumnOptional(t *testing.T) {
	input := "atm_id,vault_id,amount,transaction_type,timestamp\n" +
		"1,1,100,deposit,2025-04-01\n"

	result, err := Check(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 1, result.DataRows)
	assert.Empty(t, result.RowErrors)
}

func TestCheck_RowValidation(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"bad atm id", "x,1,100,withdrawal,2025-04-01,", "atm_id"},
		{"bad vault id", "1,x,100,withdrawal,2025-04-01,", "vault_id"},
		{"negative amount", "1,1,-5,withdrawal,2025-04-01,", "negative"},
		{"unknown type", "1,1,100,transfer,2025-04-01,", "transaction_type"},
		{"bad timestamp", "1,1,100,withdrawal,yesterday,", "timestamp"},
		{"short row", "1,1,100\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Check(strings.NewReader(header + tt.row + "\n"))
			require.NoError(t, err)
			require.Len(t, result.RowErrors, 1)
			if tt.want != "" {
				assert.Contains(t, result.RowErrors[0], tt.want)
			}
		})
	}
}
