package factors

import (
	"math"
	"strings"
	"time"
)

// FactorWarnings returns the data-quality warnings for a factor. An empty
// slice means the factor meets the reporting criteria as-is; warnings never
// block a calculation.
func FactorWarnings(factor Factor) []string {
	var warnings []string

	if factor.Uncertainty > 0.3 {
		warnings = append(warnings, "high uncertainty (>30%), review recommended")
	}
	if time.Since(factor.LastUpdated) > 365*24*time.Hour {
		warnings = append(warnings, "factor older than one year, check for a newer revision")
	}
	if !strings.Contains(factor.Source, "ADEME") {
		warnings = append(warnings, "source is not the official ADEME catalog")
	}

	return warnings
}

// CalculationWarnings cross-checks a finished calculation. The arithmetic
// check guards against a factor or emissions value mutated after the multiply;
// tolerance is 0.1% of the expected value.
func CalculationWarnings(calc Calculation) []string {
	var warnings []string

	expected := calc.Quantity * calc.Factor.Factor
	if math.Abs(calc.Emissions-expected) > expected*0.001 {
		warnings = append(warnings, "emissions do not match quantity × factor")
	}
	if calc.Uncertainty > calc.Emissions*0.5 {
		warnings = append(warnings, "aggregate uncertainty exceeds half the emissions value")
	}

	return warnings
}
