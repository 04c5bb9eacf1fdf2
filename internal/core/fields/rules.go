package fields

import "regexp"

// Field names a slot of a vaccine draft.
type Field string

const (
	FieldName        Field = "name"
	FieldDate        Field = "date"
	FieldProvider    Field = "provider"
	FieldBatchNumber Field = "batch_number"
)

// Rule is one pattern in a field's priority chain. The first capture group of
// the first rule that matches is the field value.
type Rule struct {
	Field   Field
	Pattern *regexp.Regexp
}

// Captures never cross a line break: OCR output keeps one label per line.
const (
	sep      = `[ \t]*:[ \t]*`
	wordish  = `([A-Za-z][A-Za-z \t-]*)`
	// a bare name ends on a letter and may run straight into its label
	bareName = `([A-Za-z](?:[A-Za-z \t-]*[A-Za-z])?)[ \t-]*`
	dateTok  = `(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`
	batchTok = `([A-Z0-9][A-Z0-9-]*)`
)

// DefaultRules lists every rule in priority order, labeled forms first.
var DefaultRules = []Rule{
	{FieldName, regexp.MustCompile(`(?i)\b(?:vaccine|immunization|shot)` + sep + wordish)},
	{FieldName, regexp.MustCompile(`(?i)` + bareName + `(?:vaccine|immunization|shot)\b`)},

	{FieldDate, regexp.MustCompile(`(?i)\b(?:date|administered|given)` + sep + dateTok + `\b`)},
	{FieldDate, regexp.MustCompile(`\b` + dateTok + `\b`)},

	{FieldProvider, regexp.MustCompile(`(?i)\b(?:provider|doctor|clinic)` + sep + wordish)},
	{FieldProvider, regexp.MustCompile(`(?i)` + bareName + `(?:hospital|clinic|center)\b`)},

	{FieldBatchNumber, regexp.MustCompile(`(?i)\b(?:batch|lot|serial)(?:[ \t]*(?:number|no\.?))?` + sep + batchTok)},
	{FieldBatchNumber, regexp.MustCompile(`(?i)\b` + batchTok + `[ \t]+(?:batch|lot|serial)\b`)},
}

// RulesFor returns the chain for one field, preserving priority order.
func RulesFor(rules []Rule, f Field) []Rule {
	out := make([]Rule, 0, 2)
	for _, r := range rules {
		if r.Field == f {
			out = append(out, r)
		}
	}
	return out
}
