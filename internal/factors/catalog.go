package factors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrCatalogUnavailable is returned when the upstream factor catalog cannot be
// reached or answers with a non-2xx status. Callers absorb it through the
// fallback table rather than surfacing it to clients.
var ErrCatalogUnavailable = errors.New("factor catalog unavailable")

// Catalog is the upstream source of emission factors.
type Catalog interface {
	Search(ctx context.Context, query SearchQuery) ([]Factor, error)
}

// BaseCarboneCatalog queries the ADEME open-data records API for the
// base-carbone dataset.
type BaseCarboneCatalog struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBaseCarboneCatalog creates a catalog client. An empty apiKey means
// unauthenticated access, which the public dataset allows.
func NewBaseCarboneCatalog(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *BaseCarboneCatalog {
	if baseURL == "" {
		baseURL = "https://data.ademe.fr/api/records/1.0/search/"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BaseCarboneCatalog{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type catalogResponse struct {
	Records []struct {
		RecordID string `json:"recordid"`
		Fields   struct {
			Name        string `json:"nom_base_francaise"`
			Unit        string `json:"unite_francaise"`
			Factor      string `json:"total_poste_non_decompose"`
			Uncertainty string `json:"incertitude"`
			UpdatedAt   string `json:"date_modification"`
			Category    string `json:"categorie"`
			Subcategory string `json:"sous_categorie"`
		} `json:"fields"`
	} `json:"records"`
}

// Search queries the base-carbone dataset. Upstream failures of any kind map
// to ErrCatalogUnavailable so the resolver can fall back uniformly.
func (c *BaseCarboneCatalog) Search(ctx context.Context, query SearchQuery) ([]Factor, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("dataset", "base-carbone")
	params.Set("rows", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(query.Offset))
	if query.Activity != "" {
		params.Set("q", query.Activity)
	}
	if query.Category != "" {
		params.Set("refine", "categorie:"+query.Category)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("factor catalog request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("factor catalog returned non-2xx status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrCatalogUnavailable, err)
	}

	factors := make([]Factor, 0, len(body.Records))
	for _, record := range body.Records {
		value, err := strconv.ParseFloat(record.Fields.Factor, 64)
		if err != nil {
			continue
		}
		uncertainty, err := strconv.ParseFloat(record.Fields.Uncertainty, 64)
		if err != nil || uncertainty == 0 {
			uncertainty = 0.1
		}
		updated, err := time.Parse(time.RFC3339, record.Fields.UpdatedAt)
		if err != nil {
			updated = time.Now()
		}
		factors = append(factors, Factor{
			ID:          record.RecordID,
			Name:        record.Fields.Name,
			Unit:        record.Fields.Unit,
			Factor:      value,
			Uncertainty: uncertainty,
			Source:      "ADEME Base Carbone®",
			LastUpdated: updated,
			Category:    record.Fields.Category,
			Subcategory: record.Fields.Subcategory,
		})
	}

	return factors, nil
}
