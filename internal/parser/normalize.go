// Package parser reads tabular source files into normalized raw rows.
package parser

import (
	"strings"
	"unicode"
)

// NormalizeColumn canonicalizes a source column header: trimmed, lowercased,
// punctuation stripped, interior whitespace collapsed to single underscores.
// "Material ID " and "material_id" normalize to the same key.
func NormalizeColumn(name string) string {
	var b strings.Builder
	lastUnderscore := true // suppress leading separator
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r) || r == '_' || r == '-' || r == '/':
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		default:
			// punctuation like "(" or "?" is dropped entirely
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// normalizeRow builds a payload map from a header and one data row. Cells
// beyond the header are dropped; missing trailing cells become empty strings.
// Columns normalizing to an empty key are skipped.
func normalizeRow(header []string, cells []string) map[string]any {
	payload := make(map[string]any, len(header))
	for i, col := range header {
		key := NormalizeColumn(col)
		if key == "" {
			continue
		}
		val := ""
		if i < len(cells) {
			val = strings.TrimSpace(cells[i])
		}
		payload[key] = val
	}
	return payload
}

// rowEmpty reports whether every cell in the row is blank.
func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
