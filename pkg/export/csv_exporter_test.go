package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	data := Dataset{
		Headers: []string{"Student", "Grade"},
		Rows: []map[string]string{
			{"Student": "Ada Lovelace", "Grade": "92.5"},
			{"Student": "Alan Turing", "Grade": "88.0"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Student,Grade\nAda Lovelace,92.5\nAlan Turing,88.0\n", string(out))
}

func TestCSVExporterRenderMissingCell(t *testing.T) {
	exporter := NewCSVExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Grade"},
		Rows:    []map[string]string{{"Student": "Ada Lovelace"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Student,Grade\nAda Lovelace,\n", string(out))
}

func TestCSVExporterRenderNoHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()

	out, err := exporter.Render(Dataset{
		Headers: []string{"Student", "Grade"},
		Rows:    []map[string]string{{"Student": "Ada Lovelace", "Grade": "92.5"}},
	}, "CS101 roster")
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}
