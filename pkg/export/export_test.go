package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageDataset() Dataset {
	return Dataset{
		Title:       "Storage usage",
		GeneratedAt: time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC),
		Headers:     []string{"metric", "value"},
		Rows: []map[string]string{
			{"metric": "used_bytes", "value": "18253611008"},
			{"metric": "used_percent", "value": "85.00"},
			{"metric": "note"},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	file, err := Render(FormatCSV, "storage-usage", usageDataset())
	require.NoError(t, err)
	assert.Equal(t, "storage-usage-20240501-083000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "metric,value\nused_bytes,18253611008\nused_percent,85.00\nnote,\n", string(file.Data))
}

func TestRenderPDF(t *testing.T) {
	file, err := Render(FormatPDF, "storage-usage", usageDataset())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, "empty", Dataset{})
	assert.Error(t, err)
	_, err = Render(FormatPDF, "empty", Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestRenderCSVNeutralisesFormulas(t *testing.T) {
	file, err := Render(FormatCSV, "usage", Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Note", "Value": "=HYPERLINK(\"http://x\")"},
			{"Metric": "Last alert sent", "Value": "-"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), `Note,"'=HYPERLINK(""http://x"")"`)
	assert.Contains(t, string(file.Data), "Last alert sent,-\n")
	assert.ErrorIs(t, func() error { _, err := NewCSVExporter().Render(Dataset{}); return err }(), errNoHeaders)
}
