package verify

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoURLColumn is returned when an upload has no "url" or "website" column.
var ErrNoURLColumn = errors.New("No URL column found in CSV")

// ReadURLs reads the URL list out of an uploaded CSV. The first header named
// "url" or "website" (any case) is used; blank cells are skipped.
func ReadURLs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoURLColumn
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	column := -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name == "url" || name == "website" {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, ErrNoURLColumn
	}

	var urls []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		if column >= len(row) {
			continue
		}
		if u := strings.TrimSpace(row[column]); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}
