package reports

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kswpuk/portal-api/internal/apperr"
)

func sampleTable() Table {
	return Table{
		Headers: []string{"membershipNumber", "firstName", "surname"},
		Rows: [][]string{
			{"100001", "Robin", "Hood"},
			{"100002", "Maid", "Marian"},
		},
	}
}

func TestExportCSV(t *testing.T) {
	data, filename, contentType, err := Export(sampleTable(), FormatCSV, "members")
	require.NoError(t, err)

	assert.Equal(t, "text/csv", contentType)
	assert.True(t, strings.HasPrefix(filename, "members_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "membershipNumber,firstName,surname", lines[0])
	assert.Equal(t, "100001,Robin,Hood", lines[1])
}

func TestExportXLSX(t *testing.T) {
	data, filename, contentType, err := Export(sampleTable(), FormatXLSX, "members")
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", contentType)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))
	assert.NotEmpty(t, data)
	// xlsx files are zip archives
	assert.Equal(t, []byte{'P', 'K'}, data[:2])
}

func TestExportPDF(t *testing.T) {
	data, filename, contentType, err := Export(sampleTable(), FormatPDF, "members")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, _, _, err := Export(sampleTable(), "docx", "members")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
