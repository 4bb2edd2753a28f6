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

// RxNormClient queries the NLM RxNorm REST API.
type RxNormClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewRxNormClient creates a new RxNorm API client.
func NewRxNormClient(config domain.APIClientConfig) *RxNormClient {
	return &RxNormClient{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: newLimiter(config.RateLimit),
	}
}

type rxNormDrugsResponse struct {
	DrugGroup struct {
		ConceptGroup []struct {
			TermType          string `json:"tty"`
			ConceptProperties []struct {
				RxCUI   string `json:"rxcui"`
				Name    string `json:"name"`
				Synonym string `json:"synonym"`
				TTY     string `json:"tty"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

type rxNormPropertiesResponse struct {
	Properties struct {
		RxCUI string `json:"rxcui"`
		Name  string `json:"name"`
		TTY   string `json:"tty"`
	} `json:"properties"`
}

type rxClassResponse struct {
	RxClassDrugInfoList struct {
		RxClassDrugInfo []struct {
			RxClassMinConceptItem struct {
				ClassName string `json:"className"`
			} `json:"rxclassMinConceptItem"`
		} `json:"rxclassDrugInfo"`
	} `json:"rxclassDrugInfoList"`
}

// SearchByName searches drug concepts by name.
func (c *RxNormClient) SearchByName(ctx context.Context, name string, maxResults int) ([]DrugConcept, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{"name": {name}}
	fullURL := fmt.Sprintf("%s/drugs.json?%s", c.baseURL, params.Encode())

	var parsed rxNormDrugsResponse
	if err := c.getJSON(ctx, fullURL, &parsed); err != nil {
		return nil, fmt.Errorf("RxNorm drug search failed: %w", err)
	}

	var concepts []DrugConcept
	for _, group := range parsed.DrugGroup.ConceptGroup {
		for _, prop := range group.ConceptProperties {
			concepts = append(concepts, DrugConcept{
				RxCUI:    prop.RxCUI,
				Name:     prop.Name,
				Synonym:  prop.Synonym,
				TermType: prop.TTY,
			})
			if len(concepts) >= maxResults {
				return concepts, nil
			}
		}
	}
	return concepts, nil
}

// GetByRxCUI returns drug details for an RxNorm concept ID, or nil when the
// concept is unknown.
func (c *RxNormClient) GetByRxCUI(ctx context.Context, rxcui string) (*DrugDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/rxcui/%s/properties.json", c.baseURL, url.PathEscape(rxcui))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create properties request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RxNorm properties request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RxNorm properties returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties response: %w", err)
	}

	var parsed rxNormPropertiesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse properties response: %w", err)
	}
	if parsed.Properties.RxCUI == "" {
		return nil, nil
	}

	details := &DrugDetails{
		RxCUI: parsed.Properties.RxCUI,
		Name:  parsed.Properties.Name,
		Type:  parseDrugType(parsed.Properties.TTY),
	}

	classes, err := c.getDrugClasses(ctx, rxcui)
	if err == nil {
		details.DrugClasses = classes
	}

	return details, nil
}

// getDrugClasses returns the deduplicated class names for an RxCUI. Failures
// here are non-fatal to the caller.
func (c *RxNormClient) getDrugClasses(ctx context.Context, rxcui string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{"rxcui": {rxcui}}
	fullURL := fmt.Sprintf("%s/rxclass/class/byRxcui.json?%s", c.baseURL, params.Encode())

	var parsed rxClassResponse
	if err := c.getJSON(ctx, fullURL, &parsed); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var classes []string
	for _, entry := range parsed.RxClassDrugInfoList.RxClassDrugInfo {
		name := entry.RxClassMinConceptItem.ClassName
		if name != "" && !seen[name] {
			seen[name] = true
			classes = append(classes, name)
		}
	}
	return classes, nil
}

func (c *RxNormClient) getJSON(ctx context.Context, fullURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseDrugType maps an RxNorm term type to a coarse drug type.
func parseDrugType(tty string) DrugType {
	switch tty {
	case "BN", "BPCK", "SBD", "SBDC", "SBDF", "SBDG":
		return DrugTypeBrand
	case "IN", "MIN", "PIN":
		return DrugTypeIngredient
	default:
		return DrugTypeGeneric
	}
}
