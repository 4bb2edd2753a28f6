package service

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/domain"
)

// LabelSource supplies interaction text from regulatory drug labels. The
// openFDA client implements it; a nil source skips label enrichment.
type LabelSource interface {
	DrugInteractionSections(ctx context.Context, drugName string) ([]string, error)
}

// InteractionService checks drug-drug and food-drug interactions against a
// local curated table, keyed by normalized generic-name pairs. Lookups are
// exact matches on the normalized names; no substring matching.
type InteractionService struct {
	logger *logrus.Logger
	labels LabelSource
	pairs  map[[2]string]domain.DrugInteraction
	food   map[string][]FoodInteraction
}

// FoodInteraction is one food-drug caution for a drug.
type FoodInteraction struct {
	Food           string                     `json:"food"`
	Effect         string                     `json:"effect"`
	Severity       domain.InteractionSeverity `json:"severity"`
	Recommendation string                     `json:"recommendation"`
}

// PairCheckResult is the outcome of checking two drugs against each other.
type PairCheckResult struct {
	Drug1          string                   `json:"drug1"`
	Drug2          string                   `json:"drug2"`
	Interactions   []domain.DrugInteraction `json:"interactions"`
	HasInteraction bool                     `json:"has_interaction"`
	LabelMentions  []string                 `json:"label_mentions,omitempty"`
	Source         string                   `json:"source"`
}

// MultiCheckResult is the outcome of a pairwise check over a drug list,
// sorted most severe first.
type MultiCheckResult struct {
	Drugs             []string          `json:"drugs"`
	Interactions      []PairCheckResult `json:"interactions"`
	TotalInteractions int               `json:"total_interactions"`
	PairsChecked      int               `json:"pairs_checked"`
}

// FoodCheckResult is the outcome of a food-drug interaction lookup.
type FoodCheckResult struct {
	DrugName            string            `json:"drug_name"`
	FoodInteractions    []FoodInteraction `json:"food_interactions"`
	LabelFoodInfo       []string          `json:"label_food_info,omitempty"`
	HasFoodInteractions bool              `json:"has_food_interactions"`
}

// NewInteractionService creates an interaction checker. labels may be nil.
func NewInteractionService(labels LabelSource, logger *logrus.Logger) *InteractionService {
	s := &InteractionService{
		logger: logger,
		labels: labels,
		pairs:  make(map[[2]string]domain.DrugInteraction),
		food:   foodInteractionData,
	}

	for _, ddi := range drugInteractionData {
		s.pairs[pairKey(ddi.DrugA, ddi.DrugB)] = ddi
	}

	return s
}

// CheckPair checks two drugs against the interaction table. Names are
// normalized to lowercase; order does not matter.
func (s *InteractionService) CheckPair(ctx context.Context, drug1, drug2 string) (*PairCheckResult, error) {
	result := &PairCheckResult{
		Drug1:  drug1,
		Drug2:  drug2,
		Source: "local_database",
	}

	if ddi, ok := s.pairs[pairKey(drug1, drug2)]; ok {
		result.Interactions = append(result.Interactions, ddi)
	}

	if s.labels != nil {
		sections, err := s.labels.DrugInteractionSections(ctx, drug1)
		if err != nil {
			// Label lookup is enrichment only; the local answer stands.
			s.logger.WithError(err).WithField("drug", drug1).Debug("Label interaction lookup failed")
		} else {
			needle := strings.ToLower(drug2)
			for _, text := range sections {
				if strings.Contains(strings.ToLower(text), needle) {
					result.LabelMentions = append(result.LabelMentions, text)
					if len(result.LabelMentions) >= 2 {
						break
					}
				}
			}
		}
	}

	result.HasInteraction = len(result.Interactions) > 0 || len(result.LabelMentions) > 0
	return result, nil
}

// CheckMultiple checks every unique pair in the drug list and sorts the
// positive findings most severe first.
func (s *InteractionService) CheckMultiple(ctx context.Context, drugs []string) (*MultiCheckResult, error) {
	if len(drugs) < 2 {
		return nil, domain.NewInvalidInput("drugs", "need at least 2 drugs")
	}

	var findings []PairCheckResult
	checked := make(map[[2]string]bool)

	for i, drug1 := range drugs {
		for _, drug2 := range drugs[i+1:] {
			key := pairKey(drug1, drug2)
			if checked[key] {
				continue
			}
			checked[key] = true

			res, err := s.CheckPair(ctx, drug1, drug2)
			if err != nil {
				return nil, err
			}
			if res.HasInteraction {
				findings = append(findings, *res)
			}
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return severityRank(findings[i]) < severityRank(findings[j])
	})

	return &MultiCheckResult{
		Drugs:             drugs,
		Interactions:      findings,
		TotalInteractions: len(findings),
		PairsChecked:      len(checked),
	}, nil
}

// CheckFood returns food-drug cautions for a drug.
func (s *InteractionService) CheckFood(ctx context.Context, drugName string) (*FoodCheckResult, error) {
	result := &FoodCheckResult{DrugName: drugName}
	result.FoodInteractions = s.food[normalizeDrugName(drugName)]

	if s.labels != nil {
		sections, err := s.labels.DrugInteractionSections(ctx, drugName)
		if err != nil {
			s.logger.WithError(err).WithField("drug", drugName).Debug("Label food lookup failed")
		} else {
			for _, text := range sections {
				lower := strings.ToLower(text)
				for _, marker := range []string{"food", "meal", "grapefruit", "dairy", "alcohol"} {
					if strings.Contains(lower, marker) {
						result.LabelFoodInfo = append(result.LabelFoodInfo, text)
						break
					}
				}
			}
		}
	}

	result.HasFoodInteractions = len(result.FoodInteractions) > 0 || len(result.LabelFoodInfo) > 0
	return result, nil
}

// InteractionsFor returns every curated interaction that names the drug.
func (s *InteractionService) InteractionsFor(drugName string) []domain.DrugInteraction {
	name := normalizeDrugName(drugName)
	var results []domain.DrugInteraction
	for key, ddi := range s.pairs {
		if key[0] == name || key[1] == name {
			results = append(results, ddi)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DrugA != results[j].DrugA {
			return results[i].DrugA < results[j].DrugA
		}
		return results[i].DrugB < results[j].DrugB
	})
	return results
}

func normalizeDrugName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func pairKey(a, b string) [2]string {
	na, nb := normalizeDrugName(a), normalizeDrugName(b)
	if na > nb {
		na, nb = nb, na
	}
	return [2]string{na, nb}
}

func severityRank(r PairCheckResult) int {
	if len(r.Interactions) == 0 {
		return 4
	}
	switch r.Interactions[0].Severity {
	case domain.SeverityContraindicated:
		return 0
	case domain.SeverityHigh:
		return 1
	case domain.SeverityModerate:
		return 2
	case domain.SeverityMinor:
		return 3
	default:
		return 4
	}
}

// drugInteractionData is the curated drug-drug interaction table. The
// public RxNorm interaction API was retired, so checks run against this
// local list.
var drugInteractionData = []domain.DrugInteraction{
	{DrugA: "warfarin", DrugB: "aspirin", Severity: domain.SeverityHigh,
		Description:    "Increased risk of bleeding. Aspirin inhibits platelet function and warfarin inhibits clotting factors.",
		Recommendation: "Avoid combination unless specifically indicated. Monitor for signs of bleeding.",
		Source:         "local_database"},
	{DrugA: "warfarin", DrugB: "ibuprofen", Severity: domain.SeverityHigh,
		Description:    "NSAIDs increase risk of GI bleeding and may enhance anticoagulant effect.",
		Recommendation: "Avoid combination. Use acetaminophen for pain if needed.",
		Source:         "local_database"},
	{DrugA: "warfarin", DrugB: "naproxen", Severity: domain.SeverityHigh,
		Description:    "NSAIDs increase risk of GI bleeding and may enhance anticoagulant effect.",
		Recommendation: "Avoid combination. Use acetaminophen for pain if needed.",
		Source:         "local_database"},
	{DrugA: "warfarin", DrugB: "fluconazole", Severity: domain.SeverityHigh,
		Description:    "Fluconazole inhibits CYP2C9, significantly increasing warfarin levels.",
		Recommendation: "Reduce warfarin dose and monitor INR closely.",
		Source:         "local_database"},
	{DrugA: "warfarin", DrugB: "metronidazole", Severity: domain.SeverityHigh,
		Description:    "Metronidazole inhibits warfarin metabolism, increasing anticoagulant effect.",
		Recommendation: "Monitor INR closely; may need warfarin dose reduction.",
		Source:         "local_database"},
	{DrugA: "warfarin", DrugB: "amiodarone", Severity: domain.SeverityHigh,
		Description:    "Amiodarone significantly inhibits warfarin metabolism.",
		Recommendation: "Reduce warfarin dose by 30-50% and monitor INR closely.",
		Source:         "local_database"},
	{DrugA: "metformin", DrugB: "alcohol", Severity: domain.SeverityHigh,
		Description:    "Alcohol increases risk of lactic acidosis with metformin.",
		Recommendation: "Limit alcohol consumption; avoid binge drinking.",
		Source:         "local_database"},
	{DrugA: "metformin", DrugB: "contrast dye", Severity: domain.SeverityHigh,
		Description:    "Iodinated contrast can cause acute kidney injury, increasing metformin toxicity risk.",
		Recommendation: "Hold metformin before and 48 hours after contrast procedures.",
		Source:         "local_database"},
	{DrugA: "lisinopril", DrugB: "potassium", Severity: domain.SeverityModerate,
		Description:    "ACE inhibitors can increase potassium levels; supplements may cause hyperkalemia.",
		Recommendation: "Monitor potassium levels; avoid potassium supplements unless prescribed.",
		Source:         "local_database"},
	{DrugA: "lisinopril", DrugB: "spironolactone", Severity: domain.SeverityModerate,
		Description:    "Both drugs can increase potassium levels, risking hyperkalemia.",
		Recommendation: "Monitor potassium levels closely.",
		Source:         "local_database"},
	{DrugA: "simvastatin", DrugB: "amiodarone", Severity: domain.SeverityHigh,
		Description:    "Amiodarone increases simvastatin levels, increasing risk of myopathy/rhabdomyolysis.",
		Recommendation: "Do not exceed simvastatin 20mg daily with amiodarone.",
		Source:         "local_database"},
	{DrugA: "simvastatin", DrugB: "amlodipine", Severity: domain.SeverityModerate,
		Description:    "Amlodipine increases simvastatin levels.",
		Recommendation: "Do not exceed simvastatin 20mg daily with amlodipine.",
		Source:         "local_database"},
	{DrugA: "simvastatin", DrugB: "diltiazem", Severity: domain.SeverityHigh,
		Description:    "Diltiazem significantly increases simvastatin levels.",
		Recommendation: "Do not exceed simvastatin 10mg daily with diltiazem.",
		Source:         "local_database"},
	{DrugA: "atorvastatin", DrugB: "clarithromycin", Severity: domain.SeverityHigh,
		Description:    "Clarithromycin inhibits CYP3A4, increasing statin levels and myopathy risk.",
		Recommendation: "Avoid combination or use alternative antibiotic.",
		Source:         "local_database"},
	{DrugA: "clopidogrel", DrugB: "omeprazole", Severity: domain.SeverityModerate,
		Description:    "Omeprazole may reduce clopidogrel's antiplatelet effect via CYP2C19 inhibition.",
		Recommendation: "Consider pantoprazole as alternative PPI.",
		Source:         "local_database"},
	{DrugA: "clopidogrel", DrugB: "esomeprazole", Severity: domain.SeverityModerate,
		Description:    "Esomeprazole may reduce clopidogrel's antiplatelet effect via CYP2C19 inhibition.",
		Recommendation: "Consider pantoprazole as alternative PPI.",
		Source:         "local_database"},
	{DrugA: "digoxin", DrugB: "amiodarone", Severity: domain.SeverityHigh,
		Description:    "Amiodarone increases digoxin levels by reducing clearance.",
		Recommendation: "Reduce digoxin dose by 50% and monitor levels.",
		Source:         "local_database"},
	{DrugA: "digoxin", DrugB: "verapamil", Severity: domain.SeverityHigh,
		Description:    "Verapamil increases digoxin levels and enhances AV nodal blocking effects.",
		Recommendation: "Reduce digoxin dose and monitor levels and heart rate.",
		Source:         "local_database"},
	{DrugA: "sildenafil", DrugB: "nitrates", Severity: domain.SeverityContraindicated,
		Description:    "Life-threatening hypotension can occur.",
		Recommendation: "CONTRAINDICATED - Do not use together.",
		Source:         "local_database"},
	{DrugA: "tadalafil", DrugB: "nitrates", Severity: domain.SeverityContraindicated,
		Description:    "Life-threatening hypotension can occur.",
		Recommendation: "CONTRAINDICATED - Do not use together.",
		Source:         "local_database"},
	{DrugA: "fluoxetine", DrugB: "maois", Severity: domain.SeverityContraindicated,
		Description:    "Risk of serotonin syndrome, potentially fatal.",
		Recommendation: "CONTRAINDICATED - Allow 5 weeks washout after fluoxetine.",
		Source:         "local_database"},
	{DrugA: "tramadol", DrugB: "ssris", Severity: domain.SeverityHigh,
		Description:    "Increased risk of serotonin syndrome and seizures.",
		Recommendation: "Use with caution; monitor for serotonin syndrome symptoms.",
		Source:         "local_database"},
	{DrugA: "methotrexate", DrugB: "nsaids", Severity: domain.SeverityHigh,
		Description:    "NSAIDs reduce methotrexate clearance, increasing toxicity risk.",
		Recommendation: "Avoid combination, especially with high-dose methotrexate.",
		Source:         "local_database"},
	{DrugA: "lithium", DrugB: "nsaids", Severity: domain.SeverityHigh,
		Description:    "NSAIDs reduce lithium excretion, increasing levels and toxicity risk.",
		Recommendation: "Monitor lithium levels closely if NSAID is necessary.",
		Source:         "local_database"},
	{DrugA: "lithium", DrugB: "lisinopril", Severity: domain.SeverityHigh,
		Description:    "ACE inhibitors reduce lithium excretion, increasing levels.",
		Recommendation: "Monitor lithium levels closely.",
		Source:         "local_database"},
	{DrugA: "theophylline", DrugB: "ciprofloxacin", Severity: domain.SeverityHigh,
		Description:    "Ciprofloxacin inhibits theophylline metabolism, increasing levels.",
		Recommendation: "Monitor theophylline levels; may need dose reduction.",
		Source:         "local_database"},
	{DrugA: "aspirin", DrugB: "ibuprofen", Severity: domain.SeverityModerate,
		Description:    "Ibuprofen may interfere with aspirin's cardioprotective antiplatelet effect.",
		Recommendation: "Take aspirin at least 30 minutes before ibuprofen.",
		Source:         "local_database"},
}

// foodInteractionData maps normalized generic names to food cautions.
var foodInteractionData = map[string][]FoodInteraction{
	"warfarin": {
		{Food: "Vitamin K rich foods (spinach, kale, broccoli)",
			Effect: "Decreased anticoagulant effect", Severity: domain.SeverityHigh,
			Recommendation: "Maintain consistent vitamin K intake; monitor INR"},
		{Food: "Grapefruit", Effect: "Increased bleeding risk", Severity: domain.SeverityModerate,
			Recommendation: "Avoid or limit grapefruit consumption"},
		{Food: "Alcohol", Effect: "Increased bleeding risk and liver damage", Severity: domain.SeverityHigh,
			Recommendation: "Limit alcohol consumption"},
	},
	"metformin": {
		{Food: "Alcohol", Effect: "Increased risk of lactic acidosis", Severity: domain.SeverityHigh,
			Recommendation: "Avoid excessive alcohol consumption"},
	},
	"simvastatin": {
		{Food: "Grapefruit", Effect: "Increased drug levels, risk of muscle damage", Severity: domain.SeverityHigh,
			Recommendation: "Avoid grapefruit and grapefruit juice"},
	},
	"atorvastatin": {
		{Food: "Grapefruit", Effect: "Increased drug levels, risk of muscle damage", Severity: domain.SeverityModerate,
			Recommendation: "Limit grapefruit consumption"},
	},
	"levothyroxine": {
		{Food: "Calcium-rich foods, iron supplements", Effect: "Decreased drug absorption", Severity: domain.SeverityModerate,
			Recommendation: "Take on empty stomach, 4 hours apart from calcium/iron"},
		{Food: "Soy products", Effect: "Decreased drug absorption", Severity: domain.SeverityModerate,
			Recommendation: "Space consumption from medication"},
	},
	"ciprofloxacin": {
		{Food: "Dairy products, calcium-fortified foods", Effect: "Decreased drug absorption", Severity: domain.SeverityModerate,
			Recommendation: "Take 2 hours before or 6 hours after dairy"},
	},
	"tetracycline": {
		{Food: "Dairy products", Effect: "Decreased drug absorption", Severity: domain.SeverityHigh,
			Recommendation: "Avoid dairy 2 hours before and after taking"},
	},
	"amlodipine": {
		{Food: "Grapefruit", Effect: "Increased drug levels, excessive blood pressure lowering", Severity: domain.SeverityModerate,
			Recommendation: "Limit grapefruit consumption"},
	},
}
