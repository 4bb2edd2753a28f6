package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// DosageService performs clinical dose arithmetic. All methods are pure
// functions over their inputs.
type DosageService struct {
	logger *logrus.Logger
}

// NewDosageService creates a dosage calculation service.
func NewDosageService(logger *logrus.Logger) *DosageService {
	return &DosageService{logger: logger}
}

// WeightBasedDoseResult is the outcome of a mg/kg calculation.
type WeightBasedDoseResult struct {
	DosePerKg       float64 `json:"dose_per_kg"`
	PatientWeightKg float64 `json:"patient_weight_kg"`
	CalculatedDose  float64 `json:"calculated_dose"`
	FinalDose       float64 `json:"final_dose"`
	DoseUnit        string  `json:"dose_unit"`
	MaxDose         float64 `json:"max_dose,omitempty"`
	Capped          bool    `json:"capped"`
	Formula         string  `json:"formula"`
}

// BSADoseResult is the outcome of a body-surface-area calculation.
type BSADoseResult struct {
	DosePerM2      float64 `json:"dose_per_m2"`
	BSA            float64 `json:"bsa"`
	CalculatedDose float64 `json:"calculated_dose"`
	FinalDose      float64 `json:"final_dose"`
	DoseUnit       string  `json:"dose_unit"`
	MaxDose        float64 `json:"max_dose,omitempty"`
	Capped         bool    `json:"capped"`
	Formula        string  `json:"formula"`
}

// PediatricDoseResult is the outcome of a pediatric dose derivation.
type PediatricDoseResult struct {
	AdultDose     float64 `json:"adult_dose"`
	PediatricDose float64 `json:"pediatric_dose"`
	DoseUnit      string  `json:"dose_unit"`
	Method        string  `json:"method"`
	Formula       string  `json:"formula"`
}

// UnitConversionResult is the outcome of a dose unit conversion.
type UnitConversionResult struct {
	OriginalValue  float64 `json:"original_value"`
	OriginalUnit   string  `json:"original_unit"`
	ConvertedValue float64 `json:"converted_value"`
	ConvertedUnit  string  `json:"converted_unit"`
}

// InfusionRateResult is the outcome of an IV infusion rate calculation.
type InfusionRateResult struct {
	TotalDose         float64 `json:"total_dose"`
	DoseUnit          string  `json:"dose_unit"`
	VolumeML          float64 `json:"volume_ml"`
	DurationHours     float64 `json:"duration_hours"`
	Concentration     float64 `json:"concentration"`
	ConcentrationUnit string  `json:"concentration_unit"`
	RateMLPerHour     float64 `json:"rate_ml_hr"`
	RateDosePerHour   float64 `json:"rate_dose_hr"`
	RateDoseUnit      string  `json:"rate_dose_unit"`
}

// CalculateCreatinineClearance estimates CrCl with the Cockcroft-Gault
// formula and bands the result. Female patients get the 0.85 correction.
func (s *DosageService) CalculateCreatinineClearance(ageYears int, weightKg, serumCreatinine float64, sex string) (*domain.CrClResult, error) {
	if serumCreatinine <= 0 {
		return nil, domain.NewInvalidInput("serum_creatinine", "must be positive")
	}
	if weightKg <= 0 {
		return nil, domain.NewInvalidInput("weight_kg", "must be positive")
	}
	if ageYears < 0 {
		return nil, domain.NewInvalidInput("age_years", "must not be negative")
	}

	crcl := (float64(140-ageYears) * weightKg) / (72 * serumCreatinine)

	switch strings.ToLower(sex) {
	case "f", "female":
		crcl *= 0.85
	}

	crcl = math.Round(crcl*10) / 10

	var category domain.RenalCategory
	switch {
	case crcl >= 90:
		category = domain.RenalNormal
	case crcl >= 60:
		category = domain.RenalMild
	case crcl >= 30:
		category = domain.RenalModerate
	case crcl >= 15:
		category = domain.RenalSevere
	default:
		category = domain.RenalEndStage
	}

	s.logger.WithFields(logrus.Fields{
		"crcl":     crcl,
		"category": string(category),
	}).Debug("Creatinine clearance calculated")

	return &domain.CrClResult{
		CreatinineClearance: crcl,
		Unit:                "mL/min",
		Category:            category,
		Formula:             "Cockcroft-Gault",
	}, nil
}

// CalculateWeightBasedDose computes a mg/kg dose, optionally capped and
// rounded to the nearest roundTo increment.
func (s *DosageService) CalculateWeightBasedDose(dosePerKg, weightKg float64, doseUnit string, maxDose, roundTo float64) (*WeightBasedDoseResult, error) {
	if dosePerKg <= 0 {
		return nil, domain.NewInvalidInput("dose_per_kg", "must be positive")
	}
	if weightKg <= 0 {
		return nil, domain.NewInvalidInput("patient_weight_kg", "must be positive")
	}

	calculated := dosePerKg * weightKg
	final := calculated
	capped := false

	if maxDose > 0 && calculated > maxDose {
		final = maxDose
		capped = true
	}
	if roundTo > 0 {
		final = math.Round(final/roundTo) * roundTo
	}

	return &WeightBasedDoseResult{
		DosePerKg:       dosePerKg,
		PatientWeightKg: weightKg,
		CalculatedDose:  calculated,
		FinalDose:       final,
		DoseUnit:        doseUnit,
		MaxDose:         maxDose,
		Capped:          capped,
		Formula:         fmt.Sprintf("%g %s/kg × %g kg = %g %s", dosePerKg, doseUnit, weightKg, final, doseUnit),
	}, nil
}

// CalculateBSABasedDose computes a dose per square meter using the
// Mosteller BSA formula.
func (s *DosageService) CalculateBSABasedDose(dosePerM2, heightCm, weightKg float64, doseUnit string, maxDose float64) (*BSADoseResult, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return nil, domain.NewInvalidInput("height_cm/weight_kg", "must be positive")
	}

	bsa := math.Sqrt((heightCm * weightKg) / 3600)
	calculated := dosePerM2 * bsa
	final := round2(calculated)
	capped := false

	if maxDose > 0 && calculated > maxDose {
		final = maxDose
		capped = true
	}

	return &BSADoseResult{
		DosePerM2:      dosePerM2,
		BSA:            round2(bsa),
		CalculatedDose: round2(calculated),
		FinalDose:      final,
		DoseUnit:       doseUnit,
		MaxDose:        maxDose,
		Capped:         capped,
		Formula:        fmt.Sprintf("%g %s/m² × %g m² = %g %s", dosePerM2, doseUnit, round2(bsa), final, doseUnit),
	}, nil
}

// CalculatePediatricDose derives a pediatric dose from the adult dose by
// weight (Clark's rule), age (Young's rule), or BSA ratio.
func (s *DosageService) CalculatePediatricDose(adultDose, childWeightKg float64, doseUnit, method string, childAgeYears int, childBSA float64) (*PediatricDoseResult, error) {
	const (
		standardAdultWeight = 70.0
		standardAdultBSA    = 1.73
	)

	var (
		dose    float64
		formula string
	)

	switch method {
	case "weight":
		if childWeightKg <= 0 {
			return nil, domain.NewInvalidInput("child_weight_kg", "must be positive")
		}
		dose = (childWeightKg / standardAdultWeight) * adultDose
		formula = "Clark's rule: (child weight / 70 kg) × adult dose"
	case "age":
		if childAgeYears <= 0 {
			return nil, domain.NewInvalidInput("child_age_years", "required for age-based method")
		}
		dose = (float64(childAgeYears) / float64(childAgeYears+12)) * adultDose
		formula = "Young's rule: (age / (age + 12)) × adult dose"
	case "bsa":
		if childBSA <= 0 {
			return nil, domain.NewInvalidInput("child_bsa", "required for BSA-based method")
		}
		dose = (childBSA / standardAdultBSA) * adultDose
		formula = "BSA method: (child BSA / 1.73 m²) × adult dose"
	default:
		return nil, domain.NewInvalidInput("method", fmt.Sprintf("unknown method %q", method))
	}

	return &PediatricDoseResult{
		AdultDose:     adultDose,
		PediatricDose: round2(dose),
		DoseUnit:      doseUnit,
		Method:        method,
		Formula:       formula,
	}, nil
}

// doseUnitToMg maps supported mass units to milligrams.
var doseUnitToMg = map[string]float64{
	"g":   1000,
	"mg":  1,
	"mcg": 0.001,
	"μg":  0.001,
	"ng":  0.000001,
}

// ConvertDoseUnits converts between mass dose units.
func (s *DosageService) ConvertDoseUnits(value float64, fromUnit, toUnit string) (*UnitConversionResult, error) {
	from, okFrom := doseUnitToMg[strings.ToLower(fromUnit)]
	to, okTo := doseUnitToMg[strings.ToLower(toUnit)]
	if !okFrom || !okTo {
		return nil, domain.NewInvalidInput("unit",
			fmt.Sprintf("unsupported conversion: %s to %s", fromUnit, toUnit))
	}

	return &UnitConversionResult{
		OriginalValue:  value,
		OriginalUnit:   fromUnit,
		ConvertedValue: value * from / to,
		ConvertedUnit:  toUnit,
	}, nil
}

// CalculateInfusionRate computes concentration and rates for an IV infusion.
func (s *DosageService) CalculateInfusionRate(totalDose float64, doseUnit string, volumeML, durationHours float64) (*InfusionRateResult, error) {
	if durationHours <= 0 || volumeML <= 0 {
		return nil, domain.NewInvalidInput("duration_hours/volume_ml", "must be positive")
	}

	return &InfusionRateResult{
		TotalDose:         totalDose,
		DoseUnit:          doseUnit,
		VolumeML:          volumeML,
		DurationHours:     durationHours,
		Concentration:     math.Round(totalDose/volumeML*10000) / 10000,
		ConcentrationUnit: fmt.Sprintf("%s/mL", doseUnit),
		RateMLPerHour:     round2(volumeML / durationHours),
		RateDosePerHour:   round2(totalDose / durationHours),
		RateDoseUnit:      fmt.Sprintf("%s/hr", doseUnit),
	}, nil
}

// BodySurfaceArea returns the Mosteller BSA in m², rounded to 2 decimals.
func (s *DosageService) BodySurfaceArea(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, domain.NewInvalidInput("height_cm/weight_kg", "must be positive")
	}
	return round2(math.Sqrt((heightCm * weightKg) / 3600)), nil
}

// IdealBodyWeight returns the Devine formula estimate in kg.
func (s *DosageService) IdealBodyWeight(heightCm float64, sex string) (float64, error) {
	if heightCm <= 0 {
		return 0, domain.NewInvalidInput("height_cm", "must be positive")
	}

	heightInches := heightCm / 2.54
	switch strings.ToLower(sex) {
	case "m", "male":
		return round2(50 + 2.3*(heightInches-60)), nil
	case "f", "female":
		return round2(45.5 + 2.3*(heightInches-60)), nil
	default:
		return 0, domain.NewInvalidInput("sex", fmt.Sprintf("unknown sex %q", sex))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
