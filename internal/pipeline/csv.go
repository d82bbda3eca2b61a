package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/founder-scout/internal/search"
)

// ReadFoundersCSV reads founder rows and precomputes each record's search
// query against the target domain. Headers are matched case-insensitively
// with spaces/underscores ignored; fully empty rows are skipped.
func ReadFoundersCSV(r io.Reader, domain, exclude string) ([]InputRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[normalizeHeader(col)] = i
	}
	for _, required := range []string{"firstname", "lastname", "company", "email"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var records []InputRecord
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		get := func(col string) string {
			i := index[col]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		first := get("firstname")
		last := get("lastname")
		company := get("company")
		email := get("email")
		if first == "" && last == "" && company == "" && email == "" {
			continue
		}

		records = append(records, InputRecord{
			FounderName: strings.TrimSpace(first + " " + last),
			CompanyName: company,
			Email:       email,
			SearchQuery: search.BuildQuery(first, last, company, domain, exclude),
		})
	}
	return records, nil
}

func normalizeHeader(col string) string {
	col = strings.ToLower(strings.TrimSpace(col))
	col = strings.ReplaceAll(col, " ", "")
	col = strings.ReplaceAll(col, "_", "")
	return col
}
