package questions

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"

	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/texts"
)

var multiSpace = regexp.MustCompile(`[ ]{2,}`)

// HasNumericPlaceholder reports whether the template draws a number, which is
// what decides if a seeded source should be constructed for it.
func HasNumericPlaceholder(template string) bool {
	return strings.Contains(template, "{number}") || strings.Contains(template, "{percent}")
}

// FormatOptions tune placeholder substitution.
type FormatOptions struct {
	// PhraseChance is the probability that {number}/{percent} become a canned
	// phrase instead of a drawn number.
	PhraseChance float64
	// Phrases overrides the canned phrase set; nil means texts.QuantityResponses.
	Phrases []string
	// Rand is the seeded source for the numeric draws. Nil falls back to
	// ambient randomness.
	Rand *rand.Rand
}

// FormatResponse renders a question template for the selected subject.
// {mention} becomes the subject's handle ("@"-prefixed only when tag-opted),
// {question} the tail with one leading space, {number}/{percent} a draw in
// [1,100] or a canned phrase per PhraseChance. Runs of spaces collapse to
// one. No draw happens at all when the template has no numeric placeholder.
func FormatResponse(subject models.Subject, template, tail string, opts FormatOptions) string {
	mention := models.BotDisplayName
	if !subject.IsBot() {
		mention = subject.User.DisplayName()
		if subject.User.Username != "" && subject.User.Tag {
			mention = "@" + mention
		}
	}

	question := strings.TrimSpace(tail)
	if question != "" {
		question = " " + question
	}

	numberValue := ""
	percentValue := ""
	if HasNumericPlaceholder(template) {
		number := intn(opts.Rand, 100) + 1
		usePhrase := opts.PhraseChance > 0 && float(opts.Rand) < opts.PhraseChance
		if usePhrase {
			phrases := opts.Phrases
			if phrases == nil {
				phrases = texts.QuantityResponses
			}
			phrase := phrases[intn(opts.Rand, len(phrases))]
			numberValue = phrase
			percentValue = phrase
		} else {
			numberValue = strconv.Itoa(number)
			percentValue = strconv.Itoa(number) + "%"
		}
	}

	response := strings.NewReplacer(
		"{mention}", mention,
		"{question}", question,
		"{number}", numberValue,
		"{percent}", percentValue,
	).Replace(template)

	return multiSpace.ReplaceAllString(response, " ")
}
