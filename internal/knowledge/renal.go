package knowledge

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// RenalDosing holds per-drug renal dose adjustment rules, keyed by drug
// code. Loaded once at startup and read-only afterwards.
type RenalDosing struct {
	logger *logrus.Logger
	rules  map[string]domain.RenalRule
}

// NewRenalDosing creates a renal dosing knowledge base seeded with the
// hospital adjustment rules.
func NewRenalDosing(logger *logrus.Logger) *RenalDosing {
	r := &RenalDosing{
		logger: logger,
		rules:  renalRuleData,
	}

	logger.WithField("drug_count", len(r.rules)).Debug("Renal dosing rules loaded")

	return r
}

// Adjustment returns the dosing advice for a drug at the given CrCl.
// A drug with no rule set, or a CrCl outside every band, yields a
// no-adjustment result rather than an error.
func (r *RenalDosing) Adjustment(drugCode string, crcl float64) domain.RenalAdjustment {
	return r.AdjustmentForDose(drugCode, crcl, 0)
}

// AdjustmentForDose is Adjustment with the ordered dose supplied, so the
// result can carry a concrete suggested dose when the band scales it.
// A currentDose of 0 means the ordered dose is unknown.
func (r *RenalDosing) AdjustmentForDose(drugCode string, crcl, currentDose float64) domain.RenalAdjustment {
	rule, ok := r.rules[drugCode]
	if !ok {
		return domain.RenalAdjustment{
			DrugCode:       drugCode,
			CrClRange:      "N/A",
			Recommendation: "No renal adjustment data for this drug",
		}
	}

	for _, band := range rule.Ranges {
		if crcl < band.CrClMin || crcl > band.CrClMax {
			continue
		}

		// An adjustment is needed when the band scales the dose,
		// contraindicates the drug, or changes the frequency.
		needs := band.DoseAdjustment != 1.0 ||
			band.Contraindicated ||
			(band.Frequency != "" && rule.NormalFrequency != "" && band.Frequency != rule.NormalFrequency)

		adj := domain.RenalAdjustment{
			DrugCode:           drugCode,
			CrClRange:          fmt.Sprintf("%g-%g", band.CrClMin, band.CrClMax),
			NeedsAdjustment:    needs,
			Recommendation:     band.Recommendation,
			SuggestedFrequency: band.Frequency,
			Contraindicated:    band.Contraindicated,
		}

		if currentDose > 0 && band.DoseAdjustment != 1.0 && !band.Contraindicated {
			adj.SuggestedDose = math.Round(currentDose*band.DoseAdjustment*100) / 100
		}

		return adj
	}

	return domain.RenalAdjustment{
		DrugCode:       drugCode,
		CrClRange:      "unknown",
		Recommendation: fmt.Sprintf("No adjustment rule matched for CrCl %g mL/min", crcl),
	}
}

// IsContraindicated reports whether the drug is contraindicated at the
// given CrCl.
func (r *RenalDosing) IsContraindicated(drugCode string, crcl float64) bool {
	return r.Adjustment(drugCode, crcl).Contraindicated
}

// NormalDose returns the drug's normal dosing string, or "" when the drug
// has no rule set.
func (r *RenalDosing) NormalDose(drugCode string) string {
	return r.rules[drugCode].NormalDose
}

// DrugCodes returns every drug code that has an adjustment rule set.
func (r *RenalDosing) DrugCodes() []string {
	codes := make([]string, 0, len(r.rules))
	for code := range r.rules {
		codes = append(codes, code)
	}
	return codes
}

// Count returns the number of drugs with adjustment rules.
func (r *RenalDosing) Count() int {
	return len(r.rules)
}

// renalRuleData maps drug codes to CrCl bands. Band bounds are inclusive
// in mL/min; the upper sentinel 999 covers any supranormal clearance.
var renalRuleData = map[string]domain.RenalRule{
	"GENTA-INJ": {
		NormalDose:      "80 mg Q8H",
		NormalFrequency: "Q8H",
		Ranges: []domain.RenalRange{
			{CrClMin: 60, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "Q8H",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 40, CrClMax: 59, DoseAdjustment: 1.0, Frequency: "Q12H",
				Recommendation: "Extend dosing interval to Q12H"},
			{CrClMin: 20, CrClMax: 39, DoseAdjustment: 1.0, Frequency: "Q24H",
				Recommendation: "Extend dosing interval to Q24H; monitor trough levels"},
			{CrClMin: 0, CrClMax: 19, DoseAdjustment: 0.5, Frequency: "Q48H",
				Recommendation: "Reduce dose by half and extend interval to Q48H; dose by levels"},
		},
	},
	"VANCO-INJ": {
		NormalDose:      "1000 mg Q12H",
		NormalFrequency: "Q12H",
		Ranges: []domain.RenalRange{
			{CrClMin: 50, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "Q12H",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 30, CrClMax: 49, DoseAdjustment: 1.0, Frequency: "Q24H",
				Recommendation: "Extend dosing interval to Q24H; monitor trough levels"},
			{CrClMin: 10, CrClMax: 29, DoseAdjustment: 1.0, Frequency: "Q48H",
				Recommendation: "Extend dosing interval to Q48H; monitor trough levels"},
			{CrClMin: 0, CrClMax: 9, DoseAdjustment: 0.5,
				Recommendation: "Load then redose by serum level; consult pharmacist"},
		},
	},
	"METFOR-TAB": {
		NormalDose:      "500 mg BID",
		NormalFrequency: "BID",
		Ranges: []domain.RenalRange{
			{CrClMin: 60, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "BID",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 45, CrClMax: 59, DoseAdjustment: 1.0, Frequency: "BID",
				Recommendation: "Continue with caution; monitor renal function every 3-6 months"},
			{CrClMin: 30, CrClMax: 44, DoseAdjustment: 0.5, Frequency: "BID",
				Recommendation: "Reduce dose by half; maximum 1000 mg/day"},
			{CrClMin: 0, CrClMax: 29, Contraindicated: true,
				Recommendation: "Metformin is contraindicated when CrCl is below 30 mL/min"},
		},
	},
	"AMOXI-CAP": {
		NormalDose:      "500 mg Q8H",
		NormalFrequency: "Q8H",
		Ranges: []domain.RenalRange{
			{CrClMin: 30, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "Q8H",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 10, CrClMax: 29, DoseAdjustment: 1.0, Frequency: "Q12H",
				Recommendation: "Extend dosing interval to Q12H"},
			{CrClMin: 0, CrClMax: 9, DoseAdjustment: 1.0, Frequency: "Q24H",
				Recommendation: "Extend dosing interval to Q24H"},
		},
	},
	"DIGOX-TAB": {
		NormalDose:      "0.25 mg QD",
		NormalFrequency: "QD",
		Ranges: []domain.RenalRange{
			{CrClMin: 60, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "QD",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 30, CrClMax: 59, DoseAdjustment: 0.5, Frequency: "QD",
				Recommendation: "Reduce dose by half; monitor digoxin level"},
			{CrClMin: 0, CrClMax: 29, DoseAdjustment: 0.5, Frequency: "QOD",
				Recommendation: "Reduce dose by half and extend to every other day; monitor level"},
		},
	},
	"LISIN-TAB": {
		NormalDose:      "10 mg QD",
		NormalFrequency: "QD",
		Ranges: []domain.RenalRange{
			{CrClMin: 30, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "QD",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 10, CrClMax: 29, DoseAdjustment: 0.5, Frequency: "QD",
				Recommendation: "Start at half dose; titrate to effect"},
			{CrClMin: 0, CrClMax: 9, DoseAdjustment: 0.25, Frequency: "QD",
				Recommendation: "Start at 2.5 mg daily; titrate cautiously"},
		},
	},
	"ENOXA-INJ": {
		NormalDose:      "40 mg QD",
		NormalFrequency: "QD",
		Ranges: []domain.RenalRange{
			{CrClMin: 30, CrClMax: 999, DoseAdjustment: 1.0, Frequency: "QD",
				Recommendation: "Normal renal function, standard dosing"},
			{CrClMin: 0, CrClMax: 29, DoseAdjustment: 0.75, Frequency: "QD",
				Recommendation: "Reduce prophylactic dose to 30 mg daily"},
		},
	},
}
