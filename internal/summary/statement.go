package summary

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	grossTemplate    = "The potential for gross, or total sales is %.0f dollars, %.2f standard deviations from the mean. This represents %s gross revenue potential."
	averageTemplate  = "The potential for per capita, or per customer sales is %.0f dollars, %.2f standard deviations from the mean. This represents %s per capita revenue potential."
	combinedTemplate = "Taking into consideration both the gross, and per capita sales potential, this area possesses %s revenue potential."
)

// printer renders numbers with English grouping, e.g. 100,000.
var printer = message.NewPrinter(language.English)

// GrossStatement describes the gross (total sales) potential of a location.
func GrossStatement(value, deviation float64) (string, error) {
	q, err := Qualifier(deviation)
	if err != nil {
		return "", err
	}
	return printer.Sprintf(grossTemplate, value, deviation, q), nil
}

// AverageStatement describes the per capita (per customer) potential of a location.
func AverageStatement(value, deviation float64) (string, error) {
	q, err := Qualifier(deviation)
	if err != nil {
		return "", err
	}
	return printer.Sprintf(averageTemplate, value, deviation, q), nil
}

// CombinedStatement describes gross and per capita potential taken together.
func CombinedStatement(grossDeviation, averageDeviation float64) (string, error) {
	q, err := CombinedQualifier(grossDeviation, averageDeviation)
	if err != nil {
		return "", err
	}
	return printer.Sprintf(combinedTemplate, q), nil
}

// FullSummary joins the combined, gross and average statements, in that order,
// with single spaces.
func FullSummary(grossValue, grossDeviation, averageValue, averageDeviation float64) (string, error) {
	combined, err := CombinedStatement(grossDeviation, averageDeviation)
	if err != nil {
		return "", err
	}
	gross, err := GrossStatement(grossValue, grossDeviation)
	if err != nil {
		return "", err
	}
	average, err := AverageStatement(averageValue, averageDeviation)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{combined, gross, average}, " "), nil
}
