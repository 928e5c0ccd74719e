// Package mirs implements turn classification against the Medical
// Interview Rating Scale (MIRS) rubric.
package mirs

import "regexp"

// Category identifies one MIRS rubric topic area. Exactly one category is
// active per conversational turn.
type Category string

const (
	CategoryOpen  Category = "OPEN"
	CategoryGath  Category = "GATH"
	CategoryPers  Category = "PERS"
	CategoryShare Category = "SHARE"
	CategoryAgree Category = "AGREE"
	CategoryClose Category = "CLOSE"
	CategoryRel   Category = "REL"
)

// DefaultCategory is the catch-all returned when no signal is found.
const DefaultCategory = CategoryOpen

// CategoryConfig holds the static signals for one category: the item
// names whose mention identifies the category, and regex trigger patterns
// used as softer signals. Patterns are written lowercase because all
// matching runs against normalized (lowercased) text.
type CategoryConfig struct {
	Key      Category
	Label    string
	Items    []string
	Triggers []*regexp.Regexp
}

// Categories is the static MIRS table, loaded once at init and never
// mutated. Declaration order is the tie-break for item and trigger
// matching and must stay stable.
var Categories = []CategoryConfig{
	{
		Key:   CategoryOpen,
		Label: "Opening the Interview",
		Items: []string{
			"greets the patient",
			"introduces self and role",
			"opening question",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`(?:beginning|start(?:ed|ing)?) of the (?:interview|encounter|visit)`),
			regexp.MustCompile(`first impression`),
		},
	},
	{
		Key:   CategoryGath,
		Label: "Information Gathering",
		Items: []string{
			"agenda setting",
			"open-ended questions",
			"summarizing",
			"transitional statements",
			"pacing of the interview",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`chief complaint`),
			regexp.MustCompile(`history of present illness`),
			regexp.MustCompile(`open[- ]ended`),
		},
	},
	{
		Key:   CategoryPers,
		Label: "Understanding the Patient's Perspective",
		Items: []string{
			"beliefs about the illness",
			"impact on the patient's life",
			"elicits the patient's feelings",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`patient'?s (?:beliefs|concerns|expectations|perspective)`),
			regexp.MustCompile(`how (?:the patient|they) (?:felt|feels?)`),
		},
	},
	{
		Key:   CategoryShare,
		Label: "Sharing Information",
		Items: []string{
			"avoids jargon",
			"checks for understanding",
			"organizes the explanation",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`explain(?:ed|ing)? the (?:diagnosis|results|findings)`),
			regexp.MustCompile(`medical jargon`),
		},
	},
	{
		Key:   CategoryAgree,
		Label: "Reaching Agreement",
		Items: []string{
			"shared decision making",
			"negotiates a plan",
			"checks willingness to follow the plan",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`treatment options`),
			regexp.MustCompile(`plan of care`),
			regexp.MustCompile(`next steps for treatment`),
		},
	},
	{
		Key:   CategoryClose,
		Label: "Closing the Interview",
		Items: []string{
			"end summary",
			"safety netting",
			"follow-up plan",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`wrap(?:ped|ping)? up`),
			regexp.MustCompile(`end of the (?:visit|interview|encounter)`),
		},
	},
	{
		Key:   CategoryRel,
		Label: "Building a Relationship",
		Items: []string{
			"empathic statements",
			"nonverbal behavior",
			"respect and trust",
			"acknowledges emotions",
		},
		Triggers: []*regexp.Regexp{
			regexp.MustCompile(`empath(?:y|ic|ize)`),
			regexp.MustCompile(`rapport`),
			regexp.MustCompile(`body language`),
		},
	},
}

var categoryIndex = func() map[Category]*CategoryConfig {
	m := make(map[Category]*CategoryConfig, len(Categories))
	for i := range Categories {
		m[Categories[i].Key] = &Categories[i]
	}
	return m
}()

// Lookup returns the configuration for a category.
func Lookup(c Category) (*CategoryConfig, bool) {
	cfg, ok := categoryIndex[c]
	return cfg, ok
}

// Valid reports whether c is part of the MIRS enumeration.
func Valid(c Category) bool {
	_, ok := categoryIndex[c]
	return ok
}

// Label returns the human-readable label for a category, or the raw key
// if the category is unknown.
func Label(c Category) string {
	if cfg, ok := categoryIndex[c]; ok {
		return cfg.Label
	}
	return string(c)
}
