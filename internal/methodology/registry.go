package methodology

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrVersionNotFound is returned when no methodology matches the id and
	// version.
	ErrVersionNotFound = errors.New("methodology version not found")

	// ErrVersionConflict is returned when a version is re-registered with
	// different parameters. Published versions never change; corrections go
	// out as a new version.
	ErrVersionConflict = errors.New("methodology version already registered with different parameters")
)

// Parameters is the full parameter set of one methodology version. Every
// number a formula consumes lives here so a version fingerprint pins the
// whole calculation.
type Parameters struct {
	ElectricityFactor float64 `json:"electricity_factor"` // kgCO2e/kWh
	AnnualHours       float64 `json:"annual_hours"`

	PUEReference float64 `json:"pue_reference"`
	PUEGreen     float64 `json:"pue_green"`

	MeetingsPerYear float64 `json:"meetings_per_year"`
	AvgDistanceKM   float64 `json:"avg_distance_km"`
	TransportFactor float64 `json:"transport_factor"` // kgCO2e/km

	SheetMassKG float64 `json:"sheet_mass_kg"`
	PaperFactor float64 `json:"paper_factor"` // kgCO2e/kg

	AvgHourlyWage      float64 `json:"avg_hourly_wage"`      // EUR/h
	WageEmissionFactor float64 `json:"wage_emission_factor"` // kgCO2e/EUR

	DefaultUncertainty float64 `json:"default_uncertainty"`

	DeltaAutomatedMonitoring    float64 `json:"delta_automated_monitoring"`
	DeltaThirdPartyVerification float64 `json:"delta_third_party_verification"`
	DeltaRealTimeData           float64 `json:"delta_real_time_data"`
	DeltaOfficialFactors        float64 `json:"delta_official_factors"`
}

// Version is one immutable published methodology.
type Version struct {
	ID          string     `json:"id"`
	Version     string     `json:"version"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Fingerprint string     `json:"fingerprint"`
	Parameters  Parameters `json:"parameters"`
}

// Registry holds published methodology versions. Registration is append-only:
// identical re-registration is a no-op, conflicting re-registration fails.
type Registry struct {
	mu       sync.RWMutex
	versions map[string]Version
}

// NewRegistry creates a registry preloaded with the default SaaS carbon
// methodology.
func NewRegistry() *Registry {
	r := &Registry{versions: make(map[string]Version)}
	// The preloaded default cannot conflict with an empty map.
	_ = r.Register(DefaultVersion())
	return r
}

// Register publishes a methodology version. The fingerprint is derived from
// the parameters at registration time; a caller-supplied fingerprint is
// ignored.
func (r *Registry) Register(v Version) error {
	v.Fingerprint = fingerprint(v.Parameters)
	key := versionKey(v.ID, v.Version)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.versions[key]; ok {
		if existing.Fingerprint != v.Fingerprint {
			return fmt.Errorf("%w: %s", ErrVersionConflict, key)
		}
		return nil
	}
	r.versions[key] = v
	return nil
}

// Get returns a published version.
func (r *Registry) Get(id, version string) (Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[versionKey(id, version)]
	if !ok {
		return Version{}, fmt.Errorf("%w: %s/%s", ErrVersionNotFound, id, version)
	}
	return v, nil
}

// List returns every published version.
func (r *Registry) List() []Version {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Version, 0, len(r.versions))
	for _, v := range r.versions {
		out = append(out, v)
	}
	return out
}

func versionKey(id, version string) string {
	return id + "@" + version
}

// fingerprint hashes the canonical JSON encoding of the parameters. Struct
// field order is fixed, so encoding/json is canonical enough here.
func fingerprint(p Parameters) string {
	raw, _ := json.Marshal(p)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// DefaultID and DefaultVersionTag name the preloaded methodology.
const (
	DefaultID         = "LBC-SAAS-CARBONE-001"
	DefaultVersionTag = "1.0.0"
)

// DefaultVersion is the published SaaS carbon management methodology with the
// ADEME-derived parameter set.
func DefaultVersion() Version {
	return Version{
		ID:          DefaultID,
		Version:     DefaultVersionTag,
		Name:        "Solutions SaaS de Gestion Carbone",
		Description: "Quantifies emission reductions from adopting a SaaS carbon management platform: direct reductions (server and hosting efficiency) and indirect reductions (avoided travel, paper and manual process time).",
		Parameters: Parameters{
			ElectricityFactor: 0.057,
			AnnualHours:       8760,

			PUEReference: 1.8,
			PUEGreen:     1.2,

			MeetingsPerYear: 12,
			AvgDistanceKM:   50,
			TransportFactor: 0.15,

			SheetMassKG: 0.08,
			PaperFactor: 1.2,

			AvgHourlyWage:      25,
			WageEmissionFactor: 0.3,

			DefaultUncertainty: 0.1,

			DeltaAutomatedMonitoring:    -0.02,
			DeltaThirdPartyVerification: -0.03,
			DeltaRealTimeData:           -0.01,
			DeltaOfficialFactors:        -0.02,
		},
	}
}
