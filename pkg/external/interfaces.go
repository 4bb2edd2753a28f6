// Package external contains clients for public drug data sources: RxNorm for
// nomenclature, openFDA for structured product labels and adverse events, the
// Taiwan FDA open data platform for drug permits, and the NHI reimbursement
// price list. The ResilientDrugDataClient wraps them with caching and circuit
// breakers for production use.
package external

import (
	"context"

	"golang.org/x/time/rate"
)

// DrugConcept is one RxNorm concept match for a name search.
type DrugConcept struct {
	RxCUI    string `json:"rxcui"`
	Name     string `json:"name"`
	Synonym  string `json:"synonym,omitempty"`
	TermType string `json:"tty,omitempty"`
}

// DrugType classifies an RxNorm concept by its term type.
type DrugType string

const (
	DrugTypeBrand      DrugType = "brand"
	DrugTypeGeneric    DrugType = "generic"
	DrugTypeIngredient DrugType = "ingredient"
)

// DrugDetails is the resolved record for one RxCUI.
type DrugDetails struct {
	RxCUI       string   `json:"rxcui"`
	Name        string   `json:"name"`
	Type        DrugType `json:"drug_type"`
	DrugClasses []string `json:"drug_classes,omitempty"`
}

// DrugLabel holds the clinical sections of an openFDA structured product
// label. Sections absent from the label stay empty.
type DrugLabel struct {
	BrandNames       []string `json:"brand_names,omitempty"`
	GenericNames     []string `json:"generic_names,omitempty"`
	Manufacturers    []string `json:"manufacturers,omitempty"`
	Routes           []string `json:"routes,omitempty"`
	Indications      []string `json:"indications,omitempty"`
	Dosage           []string `json:"dosage,omitempty"`
	Contraindication []string `json:"contraindications,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
	AdverseReactions []string `json:"adverse_reactions,omitempty"`
	DrugInteractions []string `json:"drug_interactions,omitempty"`
	GeriatricUse     []string `json:"geriatric_use,omitempty"`
	Pregnancy        []string `json:"pregnancy,omitempty"`
	Overdosage       []string `json:"overdosage,omitempty"`
}

// AdverseEventCount is one reaction term with its report count from the
// openFDA event endpoint.
type AdverseEventCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TaiwanPermit is one TFDA drug permit record.
type TaiwanPermit struct {
	PermitNumber   string `json:"permit_number"`
	ChineseName    string `json:"chinese_name"`
	EnglishName    string `json:"english_name"`
	DosageForm     string `json:"dosage_form"`
	DrugCategory   string `json:"drug_category"`
	ControlledTier string `json:"controlled_drug_class,omitempty"`
	Ingredients    string `json:"ingredients"`
	Indications    string `json:"indications"`
	Applicant      string `json:"applicant"`
	Manufacturer   string `json:"manufacturer"`
	IssueDate      string `json:"issue_date"`
	ExpiryDate     string `json:"expiry_date"`
	Cancelled      bool   `json:"cancelled"`
}

// NHIDrugRecord is one entry from the NHI reimbursement price list.
type NHIDrugRecord struct {
	NHICode       string  `json:"nhi_code"`
	ChineseName   string  `json:"chinese_name"`
	EnglishName   string  `json:"english_name"`
	Ingredient    string  `json:"ingredient"`
	Price         float64 `json:"price"`
	Unit          string  `json:"unit"`
	Manufacturer  string  `json:"manufacturer"`
	EffectiveDate string  `json:"effective_date"`
	Notes         string  `json:"notes,omitempty"`
}

// CoverageResult reports whether the NHI reimburses a drug.
type CoverageResult struct {
	Covered bool            `json:"is_covered"`
	Drug    string          `json:"drug_name"`
	Records []NHIDrugRecord `json:"coverage_details,omitempty"`
}

// DrugNomenclatureAPI resolves drug names to standardized concepts.
type DrugNomenclatureAPI interface {
	SearchByName(ctx context.Context, name string, maxResults int) ([]DrugConcept, error)
	GetByRxCUI(ctx context.Context, rxcui string) (*DrugDetails, error)
}

// DrugLabelAPI provides structured product label data.
type DrugLabelAPI interface {
	GetLabel(ctx context.Context, drugName string) (*DrugLabel, error)
	DrugInteractionSections(ctx context.Context, drugName string) ([]string, error)
}

// newLimiter builds a client rate limiter from a requests-per-second
// setting. Zero or negative disables limiting.
func newLimiter(requestsPerSecond int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}
