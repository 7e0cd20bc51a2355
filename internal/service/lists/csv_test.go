package lists

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVStandardHeaders(t *testing.T) {
	in := "Company Name,First Name,Job Title\nAcme,Jamie,CTO\nGlobex,Sam,VP Sales\n"

	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalRecords)
	require.Len(t, got.Preview, 2)
	assert.Equal(t, "Acme", got.Preview[0].AccountName)
	assert.Equal(t, "Jamie", got.Preview[0].ProspectName)
	assert.Equal(t, "CTO", got.Preview[0].JobTitle)
}

func TestParseCSVHeaderSynonyms(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"crm export", "Organization,Contact,Role"},
		{"prospect style", "account,prospect,position"},
		{"mixed case", "COMPANY,NAME,TITLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.header + "\nAcme,Jamie,CTO\n"
			got, err := ParseCSV(strings.NewReader(in))
			require.NoError(t, err)
			require.Len(t, got.Preview, 1)
			assert.Equal(t, "Acme", got.Preview[0].AccountName)
			assert.Equal(t, "Jamie", got.Preview[0].ProspectName)
			assert.Equal(t, "CTO", got.Preview[0].JobTitle)
		})
	}
}

func TestParseCSVUnknownColumnsStillCount(t *testing.T) {
	in := "foo,bar\n1,2\n3,4\n"

	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalRecords)
	assert.Empty(t, got.Preview[0].AccountName)
	assert.Empty(t, got.Preview[0].ProspectName)
}

func TestParseCSVSkipsBlankRows(t *testing.T) {
	in := "Company,Name,Title\nAcme,Jamie,CTO\n,,\n\nGlobex,Sam,VP\n"

	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalRecords)
}

func TestParseCSVCapsPreviewAtHundredRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("Company,Name,Title\n")
	for i := 0; i < 250; i++ {
		b.WriteString("Acme,Jamie,CTO\n")
	}

	got, err := ParseCSV(strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Equal(t, 250, got.TotalRecords)
	assert.Len(t, got.Preview, 100)
}

func TestParseCSVRejectsEmptyInput(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("Company,Name,Title\n"))
	assert.Error(t, err)
}

func TestParseCSVRaggedRows(t *testing.T) {
	in := "Company,Name,Title\nAcme,Jamie\nGlobex,Sam,VP,extra\n"

	got, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalRecords)
	assert.Equal(t, "", got.Preview[0].JobTitle)
	assert.Equal(t, "VP", got.Preview[1].JobTitle)
}
