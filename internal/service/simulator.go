package service

import (
	"math/rand"

	"planthealth/internal/model"
)

// simulatorCatalog is the fixed set of plausible diagnoses served when the
// remote provider is unavailable.
var simulatorCatalog = []model.DiagnosisResult{
	{
		PlantName:       "Monstera",
		ScientificName:  "Monstera deliciosa",
		Status:          "healthy",
		ProblemJudgment: "Leaves are firm with even coloring; no signs of stress.",
		Severity:        "none",
		SeverityValue:   0,
		HandlingSuggestions: []string{
			"Keep the current light and watering routine.",
			"Wipe dust off the leaves once a month.",
		},
		NeedProduct:       false,
		PlantIntroduction: "A hardy tropical climber known for its split leaves.",
		ReminderType:      "none",
	},
	{
		PlantName:       "Peace Lily",
		ScientificName:  "Spathiphyllum wallisii",
		Status:          "underwatered",
		ProblemJudgment: "Drooping stems and dry topsoil point to a lack of water.",
		Severity:        "moderate",
		SeverityValue:   45,
		HandlingSuggestions: []string{
			"Water thoroughly until it drains from the pot.",
			"Check soil moisture every two to three days.",
			"Move the plant away from heat sources.",
		},
		NeedProduct:       false,
		PlantIntroduction: "A shade-tolerant houseplant that wilts visibly when thirsty.",
		ReminderType:      "watering reminder",
		ReminderReason:    "Soil was dry; confirm the plant recovers after watering.",
		ReminderDays:      2,
	},
	{
		PlantName:       "Rose",
		ScientificName:  "Rosa chinensis",
		Status:          "pest infestation",
		ProblemJudgment: "Sticky residue and clustered dots on new growth suggest aphids.",
		Severity:        "severe",
		SeverityValue:   70,
		HandlingSuggestions: []string{
			"Rinse the affected shoots with a strong jet of water.",
			"Apply insecticidal soap every five days.",
			"Isolate the plant from nearby healthy plants.",
		},
		NeedProduct:       true,
		PlantIntroduction: "A classic flowering shrub prone to aphids in warm seasons.",
		ReminderType:      "re-examination reminder",
		ReminderReason:    "Pest treatments need a follow-up check.",
		ReminderDays:      5,
	},
	{
		PlantName:       "Tomato",
		ScientificName:  "Solanum lycopersicum",
		Status:          "nutrient deficiency",
		ProblemJudgment: "Yellowing between leaf veins indicates a lack of nitrogen or magnesium.",
		Severity:        "moderate",
		SeverityValue:   50,
		HandlingSuggestions: []string{
			"Apply a balanced liquid fertilizer at half strength.",
			"Avoid overwatering, which leaches nutrients from the soil.",
		},
		NeedProduct:       true,
		PlantIntroduction: "A heavy-feeding vegetable that shows deficiencies quickly.",
		ReminderType:      "re-examination reminder",
		ReminderReason:    "Check whether new growth comes in green after feeding.",
		ReminderDays:      7,
	},
	{
		PlantName:       "Ficus",
		ScientificName:  "Ficus benjamina",
		Status:          "improper lighting",
		ProblemJudgment: "Pale, stretched growth suggests the plant is not getting enough light.",
		Severity:        "mild",
		SeverityValue:   30,
		HandlingSuggestions: []string{
			"Move the plant closer to a bright window without direct sun.",
			"Rotate the pot a quarter turn each week.",
		},
		NeedProduct:       false,
		PlantIntroduction: "A popular indoor tree sensitive to sudden light changes.",
		ReminderType:      "re-examination reminder",
		ReminderReason:    "New growth should look sturdier within a week of relocation.",
		ReminderDays:      7,
	},
	{
		PlantName:       "Chinese Rose",
		ScientificName:  "Rosa chinensis",
		Status:          "disease",
		ProblemJudgment: "Dark circular spots with yellow halos are typical of black spot fungus.",
		Severity:        "severe",
		SeverityValue:   75,
		HandlingSuggestions: []string{
			"Remove and discard all spotted leaves.",
			"Avoid wetting the foliage when watering.",
			"Spray with a copper-based fungicide.",
			"Improve air circulation around the plant.",
		},
		NeedProduct:       true,
		PlantIntroduction: "A garden favorite that needs good airflow to stay fungus-free.",
		ReminderType:      "re-examination reminder",
		ReminderReason:    "Fungal treatments take several days to show results.",
		ReminderDays:      4,
	},
}

// Simulator serves catalog diagnoses as a local stand-in for the remote
// provider. The random choice is injectable so tests can pin the pick.
type Simulator struct {
	pick func(n int) int
}

// NewSimulator creates a Simulator using the package-level random source.
func NewSimulator() *Simulator {
	return &Simulator{pick: rand.Intn}
}

// NewSimulatorWithPick creates a Simulator with a custom choice function.
func NewSimulatorWithPick(pick func(n int) int) *Simulator {
	return &Simulator{pick: pick}
}

// Diagnose returns a copy of a randomly chosen catalog entry.
func (s *Simulator) Diagnose() *model.DiagnosisResult {
	result := simulatorCatalog[s.pick(len(simulatorCatalog))]
	return &result
}
