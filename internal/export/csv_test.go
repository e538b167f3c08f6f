package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCSV_EmptyInput(t *testing.T) {
	out, err := ToCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "url,logo,title,hasNewsletter\r\n", string(out))
}

func TestToCSV_RowsInOrder(t *testing.T) {
	var records []Record
	require.NoError(t, json.Unmarshal([]byte(`[
		{"url": "https://a.example", "logo": "a.svg", "title": "Shop, A", "hasNewsletter": "Yes"},
		{"title": "Only a title"},
		{"url": "https://c.example", "hasNewsletter": true, "logo": null, "extra": "ignored"}
	]`), &records))

	out, err := ToCSV(records)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"url", "logo", "title", "hasNewsletter"},
		{"https://a.example", "a.svg", "Shop, A", "Yes"},
		{"", "", "Only a title", ""},
		{"https://c.example", "", "", "true"},
	}, rows)
}

func TestCell_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		raw      string
		expected Cell
	}{
		{raw: `"plain"`, expected: "plain"},
		{raw: `"with \"quotes\""`, expected: `with "quotes"`},
		{raw: `null`, expected: ""},
		{raw: `false`, expected: "false"},
		{raw: `12.5`, expected: "12.5"},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			var c Cell
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &c))
			assert.Equal(t, tc.expected, c)
		})
	}
}
