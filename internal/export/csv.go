package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Filename is the attachment name of a downloaded export.
const Filename = "newsletter_search_results.csv"

// Header is the fixed column order of an export.
var Header = []string{"url", "logo", "title", "hasNewsletter"}

// Cell is one exported value. Strings are kept verbatim, null or absent
// values are empty and any other JSON value is written as its JSON text.
type Cell string

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cell(s)
		return nil
	}
	*c = Cell(trimmed)
	return nil
}

// Record is one row of an export. Fields absent from the payload stay empty.
type Record struct {
	URL           Cell `json:"url"`
	Logo          Cell `json:"logo"`
	Title         Cell `json:"title"`
	HasNewsletter Cell `json:"hasNewsletter"`
}

// ToCSV renders records as a complete CSV document: the header row followed
// by one row per record, in input order.
func ToCSV(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, r := range records {
		if err := w.Write([]string{string(r.URL), string(r.Logo), string(r.Title), string(r.HasNewsletter)}); err != nil {
			return nil, fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
