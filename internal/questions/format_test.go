package questions

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/bydlikbot/bydlik/internal/models"
)

func TestFormatResponseMentionTagged(t *testing.T) {
	subject := models.HumanSubject(&models.User{Username: "vasya", Tag: true})
	got := FormatResponse(subject, "{mention}{question}", " сегодня дежурный", FormatOptions{})
	if got != "@vasya сегодня дежурный" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatResponseMentionUntagged(t *testing.T) {
	subject := models.HumanSubject(&models.User{Username: "vasya", Tag: false})
	got := FormatResponse(subject, "{mention}{question}", " спит", FormatOptions{})
	if got != "vasya спит" {
		t.Fatalf("untagged user must not get an @ prefix, got %q", got)
	}
}

func TestFormatResponseMentionWithoutUsername(t *testing.T) {
	subject := models.HumanSubject(&models.User{ID: 42, Tag: true})
	got := FormatResponse(subject, "{mention}{question}", " платит", FormatOptions{})
	if got != "42 платит" {
		t.Fatalf("username-less user must render as the numeric id, got %q", got)
	}
}

func TestFormatResponseBotSubject(t *testing.T) {
	got := FormatResponse(models.BotSubject(), "У {mention}'а{question}", "", FormatOptions{})
	if got != "У Быдлик'а" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatResponseEmptyQuestionCollapsesSpaces(t *testing.T) {
	subject := models.HumanSubject(&models.User{Username: "vasya", Tag: true})
	got := FormatResponse(subject, "С {mention}'ом {question}", "", FormatOptions{})
	if strings.Contains(got, "  ") {
		t.Fatalf("double spaces must collapse, got %q", got)
	}
}

func TestFormatResponseNumberRange(t *testing.T) {
	subject := models.BotSubject()
	for i := 0; i < 200; i++ {
		got := FormatResponse(subject, "{number}", "", FormatOptions{})
		if got == "" {
			t.Fatal("number placeholder produced empty output")
		}
	}
}

func TestFormatResponsePercentSuffix(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	got := FormatResponse(models.BotSubject(), "На {percent}", "", FormatOptions{Rand: rng})
	if !strings.HasPrefix(got, "На ") || !strings.HasSuffix(got, "%") {
		t.Fatalf("percent placeholder must end with %%, got %q", got)
	}
}

func TestFormatResponseSeededReproducible(t *testing.T) {
	subject := models.BotSubject()
	opts := func() FormatOptions {
		return FormatOptions{PhraseChance: 0.5, Rand: rand.New(rand.NewSource(99))}
	}

	a := FormatResponse(subject, "Ровно {number}", " пива", opts())
	b := FormatResponse(subject, "Ровно {number}", " пива", opts())
	if a != b {
		t.Fatalf("same seed must give the same output: %q vs %q", a, b)
	}
}

func TestFormatResponsePhraseSubstitution(t *testing.T) {
	subject := models.BotSubject()
	phrases := []string{"Много"}
	got := FormatResponse(subject, "{number}", "", FormatOptions{
		PhraseChance: 1.0,
		Phrases:      phrases,
		Rand:         rand.New(rand.NewSource(5)),
	})
	if got != "Много" {
		t.Fatalf("chance 1.0 must always substitute the phrase, got %q", got)
	}

	got = FormatResponse(subject, "{percent}", "", FormatOptions{
		PhraseChance: 1.0,
		Phrases:      phrases,
		Rand:         rand.New(rand.NewSource(5)),
	})
	if got != "Много" {
		t.Fatalf("percent placeholder must take the bare phrase too, got %q", got)
	}
}

func TestFormatResponseNoPhraseWithoutNumericPlaceholder(t *testing.T) {
	subject := models.HumanSubject(&models.User{Username: "vasya", Tag: true})
	got := FormatResponse(subject, "{mention}{question}", " кого", FormatOptions{PhraseChance: 1.0})
	if got != "@vasya кого" {
		t.Fatalf("templates without numeric placeholders must be untouched, got %q", got)
	}
}
