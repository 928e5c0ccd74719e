package prompt

import (
	"strings"
	"testing"

	"mirs-coach-be/pkg/mirs"
	"mirs-coach-be/pkg/rubric"
)

func sampleRefinement() *rubric.Refinement {
	return &rubric.Refinement{
		FinalFeedback: "Strong rapport overall, agenda setting needs work.",
		Rationale:     "The learner opened warmly but jumped into questioning.",
		Score:         3.5,
		Explanation:   "Above average for this cohort.",
		Quotes: []rubric.Quote{
			{Index: 4, Speaker: "learner", Text: "What brings you in today?"},
			{Index: 9, Speaker: "patient", Text: ""},
			{Index: 12, Speaker: "patient", Text: "I've been worried about the pain."},
		},
		Suggestions: []string{
			"Summarize the patient's concerns before moving on.",
			"Name the agenda explicitly at the start.",
		},
	}
}

func TestBuildIncludesCategoryScopedItems(t *testing.T) {
	metrics := rubric.Metrics{
		"agenda setting":     {Score: 2, Explanation: "agenda never stated"},
		"empathic statements": {Score: 4, Explanation: "belongs to REL, must be filtered out"},
	}

	out := Build(mirs.CategoryGath, sampleRefinement(), metrics)

	if !strings.Contains(out, "agenda setting: 2.0; why: agenda never stated") {
		t.Errorf("expected agenda setting item line, got:\n%s", out)
	}
	if strings.Contains(out, "empathic statements") {
		t.Errorf("item from another category leaked into the prompt:\n%s", out)
	}
	if !strings.Contains(out, mirs.Label(mirs.CategoryGath)) {
		t.Errorf("expected category label in prompt")
	}
}

func TestBuildPlaceholdersWhenNothingApplies(t *testing.T) {
	ref := sampleRefinement()
	ref.Suggestions = nil

	out := Build(mirs.CategoryClose, ref, rubric.Metrics{})

	if !strings.Contains(out, noItemsPlaceholder) {
		t.Errorf("expected item placeholder, got:\n%s", out)
	}
	if !strings.Contains(out, noSuggestionsPlaceholder) {
		t.Errorf("expected suggestions placeholder, got:\n%s", out)
	}
}

func TestBuildSkipsEmptyQuotes(t *testing.T) {
	out := Build(mirs.CategoryRel, sampleRefinement(), rubric.Metrics{})

	if !strings.Contains(out, "[4] learner: What brings you in today?") {
		t.Errorf("expected quote line, got:\n%s", out)
	}
	if !strings.Contains(out, "[12] patient: I've been worried about the pain.") {
		t.Errorf("expected second quote line, got:\n%s", out)
	}
	if strings.Contains(out, "[9]") {
		t.Errorf("empty quote should be skipped:\n%s", out)
	}
}

func TestBuildCarriesContractRules(t *testing.T) {
	out := Build(mirs.CategoryOpen, sampleRefinement(), rubric.Metrics{})

	for _, want := range []string{
		"3 to 6 sentences",
		"exactly one guiding question",
		"Never re-score",
		"Overall score: 3.5",
		"Above average for this cohort.",
		"Strong rapport overall, agenda setting needs work.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	metrics := rubric.Metrics{
		"agenda setting": {Score: 2, Explanation: "agenda never stated"},
	}
	first := Build(mirs.CategoryGath, sampleRefinement(), metrics)
	for i := 0; i < 5; i++ {
		if got := Build(mirs.CategoryGath, sampleRefinement(), metrics); got != first {
			t.Fatalf("prompt assembly is not deterministic")
		}
	}
}
