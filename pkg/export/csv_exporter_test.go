package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Code", "Name", "Grade"},
		Rows: [][]string{
			{"MATH101", "Calculus I", "8.75"},
			{"PHYS201", "Mechanics"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Code,Name,Grade", strings.TrimSpace(lines[0]))
	assert.Equal(t, "MATH101,Calculus I,8.75", strings.TrimSpace(lines[1]))
	assert.Equal(t, "PHYS201,Mechanics,", strings.TrimSpace(lines[2]))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Code", "Name"},
		Rows:    [][]string{{"MATH101", "Calculus I"}},
	}, "Transcript 2026-0001")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}
