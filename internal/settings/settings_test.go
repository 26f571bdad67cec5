package settings

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/storage"
)

const chatID int64 = -42

func newResolver(t *testing.T) (*Resolver, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	return NewResolver(store, zap.NewNop()), store
}

func TestResolveChatOverGlobalOverDefault(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)

	if got := r.InsultProbability(ctx, chatID); got != DefaultInsultProbability {
		t.Fatalf("no rows anywhere: want default %v, got %v", DefaultInsultProbability, got)
	}

	if err := r.SetInsultProbability(ctx, models.GlobalChatID, 0.1); err != nil {
		t.Fatal(err)
	}
	if got := r.InsultProbability(ctx, chatID); got != 0.1 {
		t.Fatalf("global row set: want 0.1, got %v", got)
	}

	if err := r.SetInsultProbability(ctx, chatID, 0.5); err != nil {
		t.Fatal(err)
	}
	if got := r.InsultProbability(ctx, chatID); got != 0.5 {
		t.Fatalf("chat override set: want 0.5, got %v", got)
	}

	// The global scope still resolves to its own row.
	if got := r.InsultProbability(ctx, models.GlobalChatID); got != 0.1 {
		t.Fatalf("global scope: want 0.1, got %v", got)
	}
}

func TestInvalidChatValueFallsOneTier(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)

	if err := store.SetSetting(ctx, models.GlobalChatID, KeyInsultLevel, "2"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetSetting(ctx, chatID, KeyInsultLevel, "мусор"); err != nil {
		t.Fatal(err)
	}

	if got := r.InsultLevel(ctx, chatID); got != 2 {
		t.Fatalf("unparseable chat row must fall to global: want 2, got %d", got)
	}
}

func TestInvalidGlobalValueFallsToDefault(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)

	if err := store.SetSetting(ctx, models.GlobalChatID, KeyInsultBoost, "not-a-number"); err != nil {
		t.Fatal(err)
	}
	if got := r.InsultBoost(ctx, chatID); got != DefaultInsultBoost {
		t.Fatalf("unparseable global row must yield default: want %v, got %v", DefaultInsultBoost, got)
	}
}

func TestClampsOnWrite(t *testing.T) {
	ctx := context.Background()
	r, store := newResolver(t)

	if err := r.SetInsultProbability(ctx, chatID, 3.5); err != nil {
		t.Fatal(err)
	}
	raw, found, err := store.GetSetting(ctx, chatID, KeyInsultProbability)
	if err != nil || !found {
		t.Fatalf("stored row missing: found=%v err=%v", found, err)
	}
	if raw != "1" {
		t.Fatalf("probability must be clamped to 1 at write, stored %q", raw)
	}

	if err := r.SetInsultBoost(ctx, chatID, 0.2); err != nil {
		t.Fatal(err)
	}
	if got := r.InsultBoost(ctx, chatID); got != 1 {
		t.Fatalf("boost below 1 must clamp to 1, got %v", got)
	}

	if err := r.SetInsultLevel(ctx, chatID, 9); err != nil {
		t.Fatal(err)
	}
	if got := r.InsultLevel(ctx, chatID); got != 4 {
		t.Fatalf("level above 4 must clamp to 4, got %d", got)
	}
}

func TestWriteInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t)

	if got := r.WhenPhraseChance(ctx, chatID); got != DefaultWhenPhraseChance {
		t.Fatalf("want default, got %v", got)
	}
	if err := r.SetWhenPhraseChance(ctx, chatID, 0.9); err != nil {
		t.Fatal(err)
	}
	if got := r.WhenPhraseChance(ctx, chatID); got != 0.9 {
		t.Fatalf("cached stale value survived a write: got %v", got)
	}
}
