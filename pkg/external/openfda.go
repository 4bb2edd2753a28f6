package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// OpenFDAClient queries the openFDA drug label and adverse event endpoints.
// It implements service.LabelSource for interaction label enrichment.
type OpenFDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOpenFDAClient creates a new openFDA API client.
func NewOpenFDAClient(config domain.APIClientConfig) *OpenFDAClient {
	return &OpenFDAClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: newLimiter(config.RateLimit),
	}
}

type fdaLabelResponse struct {
	Results []fdaLabel `json:"results"`
}

type fdaLabel struct {
	IndicationsAndUsage     []string `json:"indications_and_usage"`
	DosageAndAdministration []string `json:"dosage_and_administration"`
	Contraindications       []string `json:"contraindications"`
	Warnings                []string `json:"warnings"`
	WarningsAndCautions     []string `json:"warnings_and_cautions"`
	AdverseReactions        []string `json:"adverse_reactions"`
	DrugInteractions        []string `json:"drug_interactions"`
	GeriatricUse            []string `json:"geriatric_use"`
	Pregnancy               []string `json:"pregnancy"`
	Overdosage              []string `json:"overdosage"`
	OpenFDA                 struct {
		BrandName        []string `json:"brand_name"`
		GenericName      []string `json:"generic_name"`
		ManufacturerName []string `json:"manufacturer_name"`
		Route            []string `json:"route"`
	} `json:"openfda"`
}

type fdaCountResponse struct {
	Results []struct {
		Term  string `json:"term"`
		Count int    `json:"count"`
	} `json:"results"`
}

// GetLabel fetches the first structured product label matching the drug name,
// searched over both brand and generic names. A nil label means no match.
func (c *OpenFDAClient) GetLabel(ctx context.Context, drugName string) (*DrugLabel, error) {
	labels, err := c.searchLabels(ctx, drugName, 1)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, nil
	}

	raw := labels[0]
	return &DrugLabel{
		BrandNames:       raw.OpenFDA.BrandName,
		GenericNames:     raw.OpenFDA.GenericName,
		Manufacturers:    raw.OpenFDA.ManufacturerName,
		Routes:           raw.OpenFDA.Route,
		Indications:      raw.IndicationsAndUsage,
		Dosage:           raw.DosageAndAdministration,
		Contraindication: raw.Contraindications,
		Warnings:         append(raw.Warnings, raw.WarningsAndCautions...),
		AdverseReactions: raw.AdverseReactions,
		DrugInteractions: raw.DrugInteractions,
		GeriatricUse:     raw.GeriatricUse,
		Pregnancy:        raw.Pregnancy,
		Overdosage:       raw.Overdosage,
	}, nil
}

// DrugInteractionSections returns the interaction-relevant label text for a
// drug: the drug_interactions, contraindications, and warnings sections.
func (c *OpenFDAClient) DrugInteractionSections(ctx context.Context, drugName string) ([]string, error) {
	labels, err := c.searchLabels(ctx, drugName, 1)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, nil
	}

	raw := labels[0]
	var sections []string
	sections = append(sections, raw.DrugInteractions...)
	sections = append(sections, raw.Contraindications...)
	sections = append(sections, raw.Warnings...)
	return sections, nil
}

// TopAdverseReactions returns the most frequently reported reaction terms for
// a drug from the FAERS event endpoint.
func (c *OpenFDAClient) TopAdverseReactions(ctx context.Context, drugName string, limit int) ([]AdverseEventCount, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"search": {fmt.Sprintf(`patient.drug.medicinalproduct:"%s"`, drugName)},
		"count":  {"patient.reaction.reactionmeddrapt.exact"},
		"limit":  {fmt.Sprintf("%d", limit)},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	fullURL := fmt.Sprintf("%sevent.json?%s", c.baseURL, params.Encode())

	body, notFound, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("openFDA adverse event query failed: %w", err)
	}
	if notFound {
		return nil, nil
	}

	var parsed fdaCountResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse adverse event response: %w", err)
	}

	events := make([]AdverseEventCount, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		events = append(events, AdverseEventCount{Term: r.Term, Count: r.Count})
	}
	return events, nil
}

func (c *OpenFDAClient) searchLabels(ctx context.Context, drugName string, limit int) ([]fdaLabel, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search": {fmt.Sprintf(
			`openfda.brand_name:"%s" OR openfda.generic_name:"%s"`, drugName, drugName)},
		"limit": {fmt.Sprintf("%d", limit)},
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	fullURL := fmt.Sprintf("%slabel.json?%s", c.baseURL, params.Encode())

	body, notFound, err := c.get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("openFDA label search failed: %w", err)
	}
	if notFound {
		return nil, nil
	}

	var parsed fdaLabelResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse label response: %w", err)
	}
	return parsed.Results, nil
}

// get performs a GET and reports a 404 separately; openFDA uses 404 for an
// empty result set rather than an error.
func (c *OpenFDAClient) get(ctx context.Context, fullURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	return body, false, nil
}
