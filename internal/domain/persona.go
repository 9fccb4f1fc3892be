package domain

import "strings"

// Persona is the user's declared static preferences. PreferredClusters is
// derived externally from the persona's interests and cluster topic tags; this
// core only consumes it.
type Persona struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	PreferredClusters []int    `json:"preferred_clusters"`
	Interests         []string `json:"interests"`
}

// BoardContext is the situational signal for a recommendation request. Partner
// and TimeOfDay are carried through to the interpretation service but do not
// participate in cluster scoring.
type BoardContext struct {
	Place     string `json:"place"`
	Activity  string `json:"activity"`
	Partner   string `json:"partner"`
	TimeOfDay string `json:"time_of_day"`
}

// Keywords returns the non-empty context fields that drive cluster matching.
func (c *BoardContext) Keywords() []string {
	var out []string
	for _, s := range []string{c.Place, c.Activity} {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
