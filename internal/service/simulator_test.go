package service

import "testing"

func TestSimulatorPinnedPick(t *testing.T) {
	sim := NewSimulatorWithPick(func(int) int { return 2 })

	result := sim.Diagnose()
	if result.Status != "pest infestation" {
		t.Errorf("expected pinned catalog entry, got status %q", result.Status)
	}
	if !result.NeedProduct {
		t.Error("pest entry should recommend a product")
	}
}

func TestSimulatorReturnsCopies(t *testing.T) {
	sim := NewSimulatorWithPick(func(int) int { return 0 })

	first := sim.Diagnose()
	first.PlantName = "mutated"

	second := sim.Diagnose()
	if second.PlantName == "mutated" {
		t.Error("catalog entries must not be mutable through returned results")
	}
}

func TestSimulatorCatalogShape(t *testing.T) {
	for _, entry := range simulatorCatalog {
		if entry.PlantName == "" || entry.Status == "" || entry.ProblemJudgment == "" {
			t.Errorf("catalog entry %q is missing display fields", entry.PlantName)
		}
		if entry.SeverityValue < 0 || entry.SeverityValue > 100 {
			t.Errorf("catalog entry %q has severity value %d outside 0-100", entry.PlantName, entry.SeverityValue)
		}
		if len(entry.HandlingSuggestions) < 2 || len(entry.HandlingSuggestions) > 4 {
			t.Errorf("catalog entry %q has %d suggestions, want 2-4", entry.PlantName, len(entry.HandlingSuggestions))
		}
		if entry.ReminderDays > 0 && entry.ReminderType == "" {
			t.Errorf("catalog entry %q schedules a reminder without a type", entry.PlantName)
		}
	}
}
