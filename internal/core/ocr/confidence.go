package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`)
	reVaccine = regexp.MustCompile(`\b(vaccine|vaccination|immuni[sz]ation|dose|shot)\b`)
	reLot     = regexp.MustCompile(`\b(batch|lot|serial)\b`)
)

// heuristicConfidence scores decoded text by the certificate artifacts it contains.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.25
	}
	if reVaccine.MatchString(txtL) {
		score += 0.25
	}
	if reLot.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
