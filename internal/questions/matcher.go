// Package questions implements the template question pipeline: matching a
// trigger inside free text, choosing a subject and formatting the reply.
package questions

import (
	"sort"
	"strings"

	"github.com/bydlikbot/bydlik/internal/models"
)

// Match is a successful trigger hit: the winning template and the text tail
// following the matched phrase.
type Match struct {
	Template models.QuestionTemplate
	Tail     string
}

// FindMatch scans lowercased text for "<bot name> <trigger>" substrings and
// returns the first hit. Triggers are tried longest first (ties broken
// lexicographically) so that "у кого" wins over "кого" when both are present
// in the effective set.
func FindMatch(text string, templates []models.QuestionTemplate) (Match, bool) {
	ordered := make([]models.QuestionTemplate, len(templates))
	copy(ordered, templates)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := ordered[i].Trigger, ordered[j].Trigger
		if len(ti) != len(tj) {
			return len(ti) > len(tj)
		}
		return ti < tj
	})

	for _, tpl := range ordered {
		keyword := models.BotName + " " + tpl.Trigger
		idx := strings.Index(text, keyword)
		if idx == -1 {
			continue
		}
		return Match{
			Template: tpl,
			Tail:     text[idx+len(keyword):],
		}, true
	}
	return Match{}, false
}
