package fields

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtract_LabeledCertificate(t *testing.T) {
	d := Extract("Vaccine: Tetanus\nDate: 05/20/2022\nProvider: City Clinic")

	assert.Equal(t, "Tetanus", d.Name)
	require.NotNil(t, d.Date)
	assert.Equal(t, day(2022, time.May, 20), *d.Date)
	assert.Equal(t, "City Clinic", d.Provider)
	assert.Empty(t, d.BatchNumber)
}

func TestExtract_NoDateToken(t *testing.T) {
	d := Extract("Vaccine: Influenza\nProvider: Dr Smith\nLot No.: FLU-2231")

	assert.Equal(t, "Influenza", d.Name)
	assert.Nil(t, d.Date)
	assert.Equal(t, "Dr Smith", d.Provider)
	assert.Equal(t, "FLU-2231", d.BatchNumber)
}

func TestExtract_BareForms(t *testing.T) {
	text := "Hepatitis B vaccine\nReceived 3/14/19\nMercy Hospital\nAB-991 lot"
	d := Extract(text)

	assert.Equal(t, "Hepatitis B", d.Name)
	require.NotNil(t, d.Date)
	assert.Equal(t, day(2019, time.March, 14), *d.Date)
	assert.Equal(t, "Mercy", d.Provider)
	assert.Equal(t, "AB-991", d.BatchNumber)
}

func TestExtract_BareLabelDirectlyAttached(t *testing.T) {
	d := Extract("Tetanus-vaccine\nGiven 02/03/2024\nRiverside-clinic")
	assert.Equal(t, "Tetanus", d.Name)
	assert.Equal(t, "Riverside", d.Provider)

	d = Extract("Polio Immunization\nSt Mary Center")
	assert.Equal(t, "Polio", d.Name)
	assert.Equal(t, "St Mary", d.Provider)

	d = Extract("Flushot")
	assert.Equal(t, "Flu", d.Name)
}

func TestExtract_LabeledBeatsBare(t *testing.T) {
	// The bare date comes first in the text but the labeled rule has priority.
	text := "Printed 01/02/2023\nVaccine: Measles\nAdministered: 07-04-2021"
	d := Extract(text)

	require.NotNil(t, d.Date)
	assert.Equal(t, day(2021, time.July, 4), *d.Date)
}

func TestExtract_DatePatternsAcrossSeparators(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"Date: 05/20/2022", day(2022, time.May, 20)},
		{"date : 5-2-22", day(2022, time.May, 2)},
		{"Given:12/31/1999", day(1999, time.December, 31)},
		{"Date: 01/15/75", day(1975, time.January, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d := Extract(tt.text)
			require.NotNil(t, d.Date)
			assert.Equal(t, tt.want, *d.Date)
		})
	}
}

func TestExtract_UnparsableLabeledDateIsAbsent(t *testing.T) {
	// First match wins even when it does not parse; the bare token is not consulted.
	d := Extract("Date: 13/45/2022\nNext visit 06/01/2023")
	assert.Nil(t, d.Date)
}

func TestExtract_CapturesStayOnOneLine(t *testing.T) {
	d := Extract("Vaccine: Tetanus\nDoctor: Jane Roe\n")
	assert.Equal(t, "Tetanus", d.Name)
	assert.Equal(t, "Jane Roe", d.Provider)
}

func TestExtract_EmptyText(t *testing.T) {
	d := Extract("")
	assert.Empty(t, d.Name)
	assert.Nil(t, d.Date)
	assert.Empty(t, d.Provider)
	assert.Empty(t, d.BatchNumber)
}

func TestExtractWith_CustomRules(t *testing.T) {
	rules := append([]Rule{
		{FieldName, regexp.MustCompile(`(?i)product[ \t]*:[ \t]*([A-Za-z ]+)`)},
	}, DefaultRules...)

	d := ExtractWith(rules, "Product: Shingrix\nVaccine: Zoster")
	assert.Equal(t, "Shingrix", d.Name)
}

func TestRulesFor(t *testing.T) {
	got := RulesFor(DefaultRules, FieldDate)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, FieldDate, r.Field)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		tok  string
		want time.Time
		ok   bool
	}{
		{"05/20/2022", day(2022, time.May, 20), true},
		{"5/2/22", day(2022, time.May, 2), true},
		{"02/29/2024", day(2024, time.February, 29), true},
		{"12-01-49", day(2049, time.December, 1), true},
		{"12-01-50", day(1950, time.December, 1), true},
		{"02/30/2022", time.Time{}, false},
		{"13/01/2022", time.Time{}, false},
		{"00/10/2022", time.Time{}, false},
		{"01/10/202", time.Time{}, false},
		{"01/10", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, ok := ParseDate(tt.tok)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
