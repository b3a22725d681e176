package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{
		Headers: []string{"Entry", "Exp"},
		Totals:  map[string]string{"Entry": "Total", "Exp": "0"},
		Numeric: []string{"Exp"},
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{"Entry": fmt.Sprint(i + 1), "Exp": "10"})
	}
	return data
}

func TestCSVExporterWritesTotalsLast(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(2))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Entry", "Exp"},
		{"1", "10"},
		{"2", "10"},
		{"Total", "0"},
	}, records)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	short, err := NewPDFExporter().Render(sampleDataset(1), "Statement")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(short, []byte("%PDF")))

	long, err := NewPDFExporter().Render(sampleDataset(120), "Statement")
	require.NoError(t, err)
	assert.Greater(t, len(long), len(short))

	_, err = NewPDFExporter().Render(Dataset{}, "")
	assert.Error(t, err)
}
