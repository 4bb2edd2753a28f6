package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// Taiwan FDA open data exports, from https://data.gov.tw/dataset/9122.
// The dataset is refreshed weekly, so the permit cache TTL matches.
const (
	tfdaAllPermitsPath    = "opendata/exportDataList.do?method=ExportData&InfoId=36&logType=5"
	tfdaActivePermitsPath = "opendata/exportDataList.do?method=ExportData&InfoId=37&logType=5"

	tfdaPermitTTL = 7 * 24 * time.Hour
)

// TFDAClient searches Taiwan FDA drug permit records. The open data platform
// serves the full dataset as one JSON export, so the client downloads it
// once, keeps it in memory, and optionally persists it in Redis.
type TFDAClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *CacheClient

	mu      sync.Mutex
	permits []TaiwanPermit
}

// NewTFDAClient creates a TFDA open data client. cache may be nil, in which
// case the dataset only lives in process memory.
func NewTFDAClient(config domain.APIClientConfig, cache *CacheClient) *TFDAClient {
	timeout := config.Timeout
	if timeout < time.Minute {
		// The permit export is tens of megabytes.
		timeout = time.Minute
	}
	return &TFDAClient{
		baseURL: strings.TrimSuffix(config.BaseURL, "/") + "/",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}
}

// tfdaRawPermit maps the Chinese field names of the open data export.
type tfdaRawPermit struct {
	PermitNumber   string `json:"許可證字號"`
	ChineseName    string `json:"中文品名"`
	EnglishName    string `json:"英文品名"`
	DosageForm     string `json:"劑型"`
	DrugCategory   string `json:"藥品類別"`
	ControlledTier string `json:"管制藥品分類級別"`
	Ingredients    string `json:"主成分略述"`
	Indications    string `json:"適應症"`
	Applicant      string `json:"申請商名稱"`
	Manufacturer   string `json:"製造廠名稱"`
	IssueDate      string `json:"發證日期"`
	ExpiryDate     string `json:"有效日期"`
	CancelStatus   string `json:"註銷狀態"`
}

// SearchByName searches permits whose Chinese or English name contains the
// query, case-insensitively.
func (c *TFDAClient) SearchByName(ctx context.Context, name string, limit int) ([]TaiwanPermit, error) {
	return c.search(ctx, limit, func(p TaiwanPermit) bool {
		needle := strings.ToLower(name)
		return strings.Contains(strings.ToLower(p.EnglishName), needle) ||
			strings.Contains(p.ChineseName, name)
	})
}

// SearchByIngredient searches permits by active ingredient.
func (c *TFDAClient) SearchByIngredient(ctx context.Context, ingredient string, limit int) ([]TaiwanPermit, error) {
	return c.search(ctx, limit, func(p TaiwanPermit) bool {
		return strings.Contains(strings.ToLower(p.Ingredients), strings.ToLower(ingredient))
	})
}

// GetByPermitNumber returns the permit with the exact number, or nil.
func (c *TFDAClient) GetByPermitNumber(ctx context.Context, permitNumber string) (*TaiwanPermit, error) {
	permits, err := c.loadPermits(ctx)
	if err != nil {
		return nil, err
	}
	for i := range permits {
		if permits[i].PermitNumber == permitNumber {
			return &permits[i], nil
		}
	}
	return nil, nil
}

func (c *TFDAClient) search(ctx context.Context, limit int, match func(TaiwanPermit) bool) ([]TaiwanPermit, error) {
	permits, err := c.loadPermits(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	var results []TaiwanPermit
	for _, p := range permits {
		if match(p) {
			results = append(results, p)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// loadPermits returns the active permit dataset, fetching it on first use.
func (c *TFDAClient) loadPermits(ctx context.Context) ([]TaiwanPermit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.permits != nil {
		return c.permits, nil
	}

	if c.cache != nil {
		if cached, hit, err := c.cache.GetPermits(ctx, true); err == nil && hit {
			c.permits = cached
			return c.permits, nil
		}
	}

	permits, err := c.fetchPermits(ctx, true)
	if err != nil {
		return nil, err
	}
	c.permits = permits

	if c.cache != nil {
		if err := c.cache.SetPermits(ctx, true, permits, tfdaPermitTTL); err != nil {
			// Memory copy still serves; Redis persistence is best effort.
			return c.permits, nil
		}
	}
	return c.permits, nil
}

func (c *TFDAClient) fetchPermits(ctx context.Context, activeOnly bool) ([]TaiwanPermit, error) {
	path := tfdaAllPermitsPath
	if activeOnly {
		path = tfdaActivePermitsPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create TFDA request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TFDA permit download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TFDA permit download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TFDA response: %w", err)
	}

	var raw []tfdaRawPermit
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TFDA permit data: %w", err)
	}

	permits := make([]TaiwanPermit, 0, len(raw))
	for _, r := range raw {
		permits = append(permits, TaiwanPermit{
			PermitNumber:   r.PermitNumber,
			ChineseName:    r.ChineseName,
			EnglishName:    r.EnglishName,
			DosageForm:     r.DosageForm,
			DrugCategory:   r.DrugCategory,
			ControlledTier: r.ControlledTier,
			Ingredients:    r.Ingredients,
			Indications:    r.Indications,
			Applicant:      r.Applicant,
			Manufacturer:   r.Manufacturer,
			IssueDate:      r.IssueDate,
			ExpiryDate:     r.ExpiryDate,
			Cancelled:      r.CancelStatus != "",
		})
	}
	return permits, nil
}
