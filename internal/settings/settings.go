// Package settings resolves behavioral settings through the two-tier
// hierarchy: chat-scoped override, then global row, then compiled default.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/storage"
)

const (
	KeyInsultProbability    = "insult_probability"
	KeyInsultLevel          = "insult_level"
	KeyInsultBoost          = "insult_boost_multiplier"
	KeyQuestionPhraseChance = "question_phrase_chance"
	KeyWhenPhraseChance     = "when_phrase_chance"
)

const (
	DefaultInsultProbability    = 0.02
	DefaultInsultLevel          = 4
	DefaultInsultBoost          = 2.0
	DefaultQuestionPhraseChance = 0.5
	DefaultWhenPhraseChance     = 0.5
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = time.Minute
)

// Resolver reads settings through a short-lived cache so per-message lookups
// do not hit storage every time. Writes flush the cache.
type Resolver struct {
	store  storage.Storage
	cache  *cache.Cache
	logger *zap.Logger
}

func NewResolver(store storage.Storage, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		cache:  cache.New(cacheTTL, cacheCleanup),
		logger: logger,
	}
}

// InsultProbability resolves the chance of an unprovoked insult, in [0,1].
func (r *Resolver) InsultProbability(ctx context.Context, chatID int64) float64 {
	return r.resolveFloat(ctx, KeyInsultProbability, chatID, DefaultInsultProbability, nil)
}

// InsultLevel resolves the prompt escalation level, 1..4.
func (r *Resolver) InsultLevel(ctx context.Context, chatID int64) int {
	key := cacheKey(KeyInsultLevel, chatID)
	if v, found := r.cache.Get(key); found {
		return v.(int)
	}

	level := DefaultInsultLevel
	if raw, ok := r.lookup(ctx, KeyInsultLevel, chatID); ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			level = parsed
		}
	}
	r.cache.Set(key, level, cache.DefaultExpiration)
	return level
}

// InsultBoost resolves the bot-name boost multiplier, never below 1.
func (r *Resolver) InsultBoost(ctx context.Context, chatID int64) float64 {
	return r.resolveFloat(ctx, KeyInsultBoost, chatID, DefaultInsultBoost, clampBoost)
}

// QuestionPhraseChance resolves the chance of replacing a numeric placeholder
// with a canned phrase in templated answers, in [0,1].
func (r *Resolver) QuestionPhraseChance(ctx context.Context, chatID int64) float64 {
	return r.resolveFloat(ctx, KeyQuestionPhraseChance, chatID, DefaultQuestionPhraseChance, clampChance)
}

// WhenPhraseChance resolves the chance of a canned vague phrase in the
// "когда" intent, in [0,1].
func (r *Resolver) WhenPhraseChance(ctx context.Context, chatID int64) float64 {
	return r.resolveFloat(ctx, KeyWhenPhraseChance, chatID, DefaultWhenPhraseChance, clampChance)
}

func (r *Resolver) SetInsultProbability(ctx context.Context, chatID int64, value float64) error {
	return r.set(ctx, KeyInsultProbability, chatID, formatFloat(clampChance(value)))
}

func (r *Resolver) SetInsultLevel(ctx context.Context, chatID int64, level int) error {
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	return r.set(ctx, KeyInsultLevel, chatID, strconv.Itoa(level))
}

func (r *Resolver) SetInsultBoost(ctx context.Context, chatID int64, value float64) error {
	return r.set(ctx, KeyInsultBoost, chatID, formatFloat(clampBoost(value)))
}

func (r *Resolver) SetQuestionPhraseChance(ctx context.Context, chatID int64, value float64) error {
	return r.set(ctx, KeyQuestionPhraseChance, chatID, formatFloat(clampChance(value)))
}

func (r *Resolver) SetWhenPhraseChance(ctx context.Context, chatID int64, value float64) error {
	return r.set(ctx, KeyWhenPhraseChance, chatID, formatFloat(clampChance(value)))
}

func (r *Resolver) set(ctx context.Context, key string, chatID int64, value string) error {
	if err := r.store.SetSetting(ctx, chatID, key, value); err != nil {
		return fmt.Errorf("error storing setting %q: %w", key, err)
	}
	r.cache.Flush()
	return nil
}

// resolveFloat walks the override chain for a float-valued key. A stored
// value that fails to parse falls through exactly one tier.
func (r *Resolver) resolveFloat(ctx context.Context, key string, chatID int64, fallback float64, clamp func(float64) float64) float64 {
	ck := cacheKey(key, chatID)
	if v, found := r.cache.Get(ck); found {
		return v.(float64)
	}

	value := fallback
	if raw, ok := r.lookup(ctx, key, chatID); ok {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			value = parsed
			if clamp != nil {
				value = clamp(value)
			}
		}
	}
	r.cache.Set(ck, value, cache.DefaultExpiration)
	return value
}

// lookup returns the raw stored value preferring the chat override. A chat
// row that fails to parse is still returned here; the caller's parse failure
// then falls through to the next tier via a second lookup.
func (r *Resolver) lookup(ctx context.Context, key string, chatID int64) (string, bool) {
	if chatID != models.GlobalChatID {
		raw, found, err := r.store.GetSetting(ctx, chatID, key)
		if err != nil {
			r.logger.Warn("failed to read chat setting",
				zap.Error(err),
				zap.String("key", key),
				zap.Int64("chat_id", chatID))
		} else if found && parses(key, raw) {
			return raw, true
		}
	}

	raw, found, err := r.store.GetSetting(ctx, models.GlobalChatID, key)
	if err != nil {
		r.logger.Warn("failed to read global setting",
			zap.Error(err),
			zap.String("key", key))
		return "", false
	}
	return raw, found
}

func parses(key, raw string) bool {
	if key == KeyInsultLevel {
		_, err := strconv.Atoi(raw)
		return err == nil
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

func cacheKey(key string, chatID int64) string {
	return key + "/" + strconv.FormatInt(chatID, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func clampChance(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBoost(v float64) float64 {
	if v < 1 {
		return 1
	}
	return v
}
