package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is a single CSV record keyed by normalised header name.
// Headers are lowercased with spaces folded to underscores, so the
// columns "Enrollment No", "enrollment_no" and "ENROLLMENT NO" all
// resolve to the same key. Line is the 1-based data row number.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the first non-empty value among the given column aliases.
func (r Row) Get(aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := r.values[normalise(alias)]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Int parses the first non-empty alias as an integer, falling back to def.
func (r Row) Int(def int, aliases ...string) int {
	raw := r.Get(aliases...)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// Float parses the first non-empty alias as a float, falling back to def.
func (r Row) Float(def float64, aliases ...string) float64 {
	raw := r.Get(aliases...)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return f
}

// Bool parses the first non-empty alias as a boolean, falling back to def.
// Accepts true/1/yes/y and false/0/no/n in any case.
func (r Row) Bool(def bool, aliases ...string) bool {
	raw := strings.ToLower(strings.TrimSpace(r.Get(aliases...)))
	switch raw {
	case "true", "1", "yes", "y":
		return true
	case "false", "0", "no", "n":
		return false
	}
	return def
}

// Has reports whether any of the aliases maps to a non-empty value.
func (r Row) Has(aliases ...string) bool {
	return r.Get(aliases...) != ""
}

// ReadAll consumes a CSV stream into header-keyed rows. Records with a
// column count different from the header are kept; missing cells read
// as empty strings.
func ReadAll(src io.Reader) ([]Row, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalise(h)
	}

	var rows []Row
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", line+1, err)
		}
		line++

		values := make(map[string]string, len(keys))
		for i, key := range keys {
			if i < len(record) {
				values[key] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, Row{Line: line, values: values})
	}

	return rows, nil
}

func normalise(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	return key
}
