package ai

import "strings"

// Narrative is the structured response expected from the drafter.
type Narrative struct {
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Caveats        []string `json:"caveats,omitempty"`
}

// Text joins the summary and caveats into one prose block.
func (n Narrative) Text() string {
	text := n.Summary
	for _, caveat := range n.Caveats {
		text += "\n- " + caveat
	}
	return text
}

func (n Narrative) usable() bool {
	return strings.TrimSpace(n.Summary) != "" && n.Recommendation != ""
}
