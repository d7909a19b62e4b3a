// Package reflex answers a handful of keywords with canned lines so the
// companion can reply without a network round trip.
package reflex

import (
	"strings"

	"learnemg/internal/persona"
)

// Rule maps a trigger keyword to one line per persona id.
type Rule struct {
	Keyword   string
	Responses map[string]string
}

// DefaultRules is checked in order; the first keyword found wins.
var DefaultRules = []Rule{
	{
		Keyword: "60hz",
		Responses: map[string]string{
			persona.MentorID: "60 Hz hum is mains interference. Check your ground electrode, keep electrode leads short and braided, and unplug nearby equipment before you touch the notch filter.",
			persona.GrumpID:  "60 Hz. The sound of a resident who forgot the ground electrode. Fix your setup before you blame the machine.",
		},
	},
	{
		Keyword: "who are you",
		Responses: map[string]string{
			persona.MentorID: "I'm Dr. Lumen, your EMG attending for this module. Ask me anything about the study material.",
			persona.GrumpID:  "I am Dr. Grimsby. The attending you were warned about.",
		},
	},
	{
		Keyword: "stimulus artifact",
		Responses: map[string]string{
			persona.MentorID: "Stimulus artifact shrinks when you rotate the anode, dry the skin between stimulator and recording electrodes, and place the ground between them.",
			persona.GrumpID:  "Rotate the anode. Dry the skin. Ground in between. Next question, preferably a harder one.",
		},
	},
	{
		Keyword: "thank",
		Responses: map[string]string{
			persona.MentorID: "Anytime. Keep going, you're doing well.",
			persona.GrumpID:  "Don't thank me. Pass your boards.",
		},
	},
}

// Matcher looks up canned responses.
type Matcher struct {
	rules []Rule
}

func NewMatcher(rules []Rule) *Matcher {
	lowered := make([]Rule, len(rules))
	for i, r := range rules {
		lowered[i] = Rule{Keyword: strings.ToLower(r.Keyword), Responses: r.Responses}
	}
	return &Matcher{rules: lowered}
}

// Match returns the persona's line for the first rule whose keyword occurs
// in input, ignoring case.
func (m *Matcher) Match(input, personaID string) (string, bool) {
	low := strings.ToLower(input)
	for _, r := range m.rules {
		if r.Keyword == "" || !strings.Contains(low, r.Keyword) {
			continue
		}
		if line, ok := r.Responses[personaID]; ok {
			return line, true
		}
	}
	return "", false
}
