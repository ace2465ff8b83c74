package factors

import "time"

// Factor is one emission factor from the Base Carbone catalog or the
// built-in fallback table. Factor values are kgCO2e per Unit.
type Factor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	Factor      float64   `json:"factor"`
	Uncertainty float64   `json:"uncertainty"`
	Source      string    `json:"source"`
	LastUpdated time.Time `json:"last_updated"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
}

// Calculation is the result of resolving a factor for an activity and
// applying it to a quantity.
type Calculation struct {
	Activity        string    `json:"activity"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	Factor          Factor    `json:"factor"`
	Emissions       float64   `json:"emissions"`
	Uncertainty     float64   `json:"uncertainty"`
	Warnings        []string  `json:"warnings,omitempty"`
	CalculationDate time.Time `json:"calculation_date"`
	Methodology     string    `json:"methodology"`
}

// SearchQuery narrows a catalog lookup.
type SearchQuery struct {
	Activity string
	Category string
	Limit    int
	Offset   int
}
