package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	ds := Dataset{
		Headers: []string{"enrollment_no", "full_name", "status"},
		Rows: []map[string]string{
			{"enrollment_no": "20250001", "full_name": "Raj Patel", "status": "active"},
			{"enrollment_no": "20250002", "full_name": "Meera Shah"},
		},
	}

	out, err := NewCSVExporter().Render(ds)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM), "output should carry a UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"enrollment_no", "full_name", "status"}, records[0])
	assert.Equal(t, []string{"20250001", "Raj Patel", "active"}, records[1])
	assert.Equal(t, []string{"20250002", "Meera Shah", ""}, records[2], "missing cells render empty")
}

func TestCSVExporterRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
