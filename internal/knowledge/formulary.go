package knowledge

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// Formulary is the hospital drug master file. It is loaded once at startup
// and treated as read-only afterwards, so lookups need no locking.
type Formulary struct {
	logger *logrus.Logger
	items  map[string]*domain.FormularyItem
	order  []string
}

// NewFormulary creates a formulary seeded with the hospital drug master data.
func NewFormulary(logger *logrus.Logger) *Formulary {
	f := &Formulary{
		logger: logger,
		items:  make(map[string]*domain.FormularyItem),
	}

	for i := range formularyData {
		item := &formularyData[i]
		f.items[item.DrugCode] = item
		f.order = append(f.order, item.DrugCode)
	}

	logger.WithField("item_count", len(f.items)).Debug("Formulary loaded")

	return f
}

// Get returns the formulary item for a drug code, or nil when the code is
// not on the formulary.
func (f *Formulary) Get(drugCode string) *domain.FormularyItem {
	return f.items[drugCode]
}

// Search matches the query against drug codes, brand names, and generic
// names, case-insensitively. At most limit items are returned.
func (f *Formulary) Search(query string, limit int) []domain.FormularyItem {
	if limit <= 0 {
		limit = 10
	}

	q := strings.ToLower(query)
	results := make([]domain.FormularyItem, 0, limit)

	for _, code := range f.order {
		item := f.items[code]
		if strings.Contains(strings.ToLower(item.DrugCode), q) ||
			strings.Contains(strings.ToLower(item.DrugName), q) ||
			strings.Contains(strings.ToLower(item.GenericName), q) {
			results = append(results, *item)
			if len(results) >= limit {
				break
			}
		}
	}

	return results
}

// HighAlertDrugs returns every formulary item flagged as high-alert.
func (f *Formulary) HighAlertDrugs() []domain.FormularyItem {
	var results []domain.FormularyItem
	for _, code := range f.order {
		if item := f.items[code]; item.HighAlert {
			results = append(results, *item)
		}
	}
	return results
}

// RenalAdjustmentDrugs returns every item that requires renal dose adjustment.
func (f *Formulary) RenalAdjustmentDrugs() []domain.FormularyItem {
	var results []domain.FormularyItem
	for _, code := range f.order {
		if item := f.items[code]; item.RequiresRenalAdjustment {
			results = append(results, *item)
		}
	}
	return results
}

// AllItems returns the formulary in load order.
func (f *Formulary) AllItems() []domain.FormularyItem {
	results := make([]domain.FormularyItem, 0, len(f.order))
	for _, code := range f.order {
		results = append(results, *f.items[code])
	}
	return results
}

// Count returns the number of items on the formulary.
func (f *Formulary) Count() int {
	return len(f.items)
}

// formularyData is the hospital drug master file. Dose limits are per
// administration in the item's unit.
var formularyData = []domain.FormularyItem{
	{
		DrugCode:                "GENTA-INJ",
		DrugName:                "Gentamicin 80mg/2mL Injection",
		GenericName:             "gentamicin",
		Strength:                "80mg/2mL",
		Unit:                    "mg",
		DosageForm:              "injection",
		AvailableRoutes:         []string{"IV", "IM"},
		MinDose:                 60,
		MaxDose:                 240,
		DefaultFrequency:        "Q8H",
		NHICode:                 "AC23456100",
		ATCCode:                 "J01GB03",
		RequiresRenalAdjustment: true,
		HighAlert:               true,
	},
	{
		DrugCode:                "VANCO-INJ",
		DrugName:                "Vancomycin 500mg Injection",
		GenericName:             "vancomycin",
		Strength:                "500mg",
		Unit:                    "mg",
		DosageForm:              "injection",
		AvailableRoutes:         []string{"IV"},
		MinDose:                 500,
		MaxDose:                 2000,
		DefaultFrequency:        "Q12H",
		NHICode:                 "AC34567100",
		ATCCode:                 "J01XA01",
		RequiresRenalAdjustment: true,
		HighAlert:               true,
	},
	{
		DrugCode:                "METFOR-TAB",
		DrugName:                "Metformin 500mg Tablet",
		GenericName:             "metformin",
		Strength:                "500mg",
		Unit:                    "mg",
		DosageForm:              "tablet",
		AvailableRoutes:         []string{"PO"},
		MinDose:                 500,
		MaxDose:                 2550,
		DefaultFrequency:        "BID",
		NHICode:                 "AC45678100",
		ATCCode:                 "A10BA02",
		RequiresRenalAdjustment: true,
	},
	{
		DrugCode:         "WARF-TAB",
		DrugName:         "Warfarin 5mg Tablet",
		GenericName:      "warfarin",
		Strength:         "5mg",
		Unit:             "mg",
		DosageForm:       "tablet",
		AvailableRoutes:  []string{"PO"},
		MinDose:          1,
		MaxDose:          10,
		DefaultFrequency: "QD",
		NHICode:          "AC56789100",
		ATCCode:          "B01AA03",
		HighAlert:        true,
	},
	{
		DrugCode:         "ASPIR-TAB",
		DrugName:         "Aspirin 100mg Tablet",
		GenericName:      "aspirin",
		Strength:         "100mg",
		Unit:             "mg",
		DosageForm:       "tablet",
		AvailableRoutes:  []string{"PO"},
		MinDose:          75,
		MaxDose:          325,
		DefaultFrequency: "QD",
		NHICode:          "AC67890100",
		ATCCode:          "B01AC06",
	},
	{
		DrugCode:                "AMOXI-CAP",
		DrugName:                "Amoxicillin 500mg Capsule",
		GenericName:             "amoxicillin",
		Strength:                "500mg",
		Unit:                    "mg",
		DosageForm:              "capsule",
		AvailableRoutes:         []string{"PO"},
		MinDose:                 250,
		MaxDose:                 1000,
		DefaultFrequency:        "Q8H",
		NHICode:                 "AC78901100",
		ATCCode:                 "J01CA04",
		RequiresRenalAdjustment: true,
	},
	{
		DrugCode:         "CEFTRI-INJ",
		DrugName:         "Ceftriaxone 1g Injection",
		GenericName:      "ceftriaxone",
		Strength:         "1g",
		Unit:             "mg",
		DosageForm:       "injection",
		AvailableRoutes:  []string{"IV", "IM"},
		MinDose:          1000,
		MaxDose:          4000,
		DefaultFrequency: "QD",
		NHICode:          "AC89012100",
		ATCCode:          "J01DD04",
	},
	{
		DrugCode:         "INSUL-INJ",
		DrugName:         "Insulin Regular 100U/mL Injection",
		GenericName:      "insulin human regular",
		Strength:         "100U/mL",
		Unit:             "unit",
		DosageForm:       "injection",
		AvailableRoutes:  []string{"SC", "IV"},
		MinDose:          2,
		MaxDose:          100,
		DefaultFrequency: "TID",
		NHICode:          "AC90123100",
		ATCCode:          "A10AB01",
		HighAlert:        true,
	},
	{
		DrugCode:                "DIGOX-TAB",
		DrugName:                "Digoxin 0.25mg Tablet",
		GenericName:             "digoxin",
		Strength:                "0.25mg",
		Unit:                    "mg",
		DosageForm:              "tablet",
		AvailableRoutes:         []string{"PO"},
		MinDose:                 0.125,
		MaxDose:                 0.5,
		DefaultFrequency:        "QD",
		NHICode:                 "AC01234100",
		ATCCode:                 "C01AA05",
		RequiresRenalAdjustment: true,
		HighAlert:               true,
	},
	{
		DrugCode:                "LISIN-TAB",
		DrugName:                "Lisinopril 10mg Tablet",
		GenericName:             "lisinopril",
		Strength:                "10mg",
		Unit:                    "mg",
		DosageForm:              "tablet",
		AvailableRoutes:         []string{"PO"},
		MinDose:                 2.5,
		MaxDose:                 40,
		DefaultFrequency:        "QD",
		NHICode:                 "AC12340100",
		ATCCode:                 "C09AA03",
		RequiresRenalAdjustment: true,
	},
	{
		DrugCode:         "ACETA-TAB",
		DrugName:         "Acetaminophen 500mg Tablet",
		GenericName:      "acetaminophen",
		Strength:         "500mg",
		Unit:             "mg",
		DosageForm:       "tablet",
		AvailableRoutes:  []string{"PO"},
		MinDose:          325,
		MaxDose:          1000,
		DefaultFrequency: "Q6H",
		NHICode:          "AC23450100",
		ATCCode:          "N02BE01",
	},
	{
		DrugCode:                "ENOXA-INJ",
		DrugName:                "Enoxaparin 40mg/0.4mL Injection",
		GenericName:             "enoxaparin",
		Strength:                "40mg/0.4mL",
		Unit:                    "mg",
		DosageForm:              "injection",
		AvailableRoutes:         []string{"SC"},
		MinDose:                 20,
		MaxDose:                 120,
		DefaultFrequency:        "QD",
		NHICode:                 "AC34560100",
		ATCCode:                 "B01AB05",
		RequiresRenalAdjustment: true,
		HighAlert:               true,
	},
}
