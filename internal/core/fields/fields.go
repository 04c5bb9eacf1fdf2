// Package fields recovers vaccine certificate fields from linear OCR text.
package fields

import (
	"strings"

	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

// Extract runs DefaultRules over text. It never fails: fields no rule finds stay empty.
func Extract(text string) entity.VaccineDraft {
	return ExtractWith(DefaultRules, text)
}

// ExtractWith runs a caller-supplied rule list. Each field takes the capture of
// the first rule that matches and ignores the rest of its chain, even when the
// captured date does not parse.
func ExtractWith(rules []Rule, text string) entity.VaccineDraft {
	var d entity.VaccineDraft
	seen := make(map[Field]bool, 4)
	for _, r := range rules {
		if seen[r.Field] {
			continue
		}
		v, ok := capture(r, text)
		if !ok {
			continue
		}
		seen[r.Field] = true
		switch r.Field {
		case FieldName:
			d.Name = v
		case FieldDate:
			if t, ok := ParseDate(v); ok {
				d.Date = &t
			}
		case FieldProvider:
			d.Provider = v
		case FieldBatchNumber:
			d.BatchNumber = v
		}
	}
	return d
}

// capture returns the trimmed first group. A match whose group trims to empty
// does not count as a hit.
func capture(r Rule, text string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}
