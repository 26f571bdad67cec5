package bot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var durationPattern = regexp.MustCompile(`^(\d+)\s*([a-zа-яё]+)?$`)

// durationUnits maps the accepted Latin and Cyrillic suffixes to a base unit.
var durationUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "с": time.Second, "сек": time.Second,
	"m": time.Minute, "min": time.Minute, "м": time.Minute, "мин": time.Minute,
	"h": time.Hour, "hour": time.Hour, "ч": time.Hour, "час": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "д": 24 * time.Hour, "день": 24 * time.Hour, "дней": 24 * time.Hour,
}

// extractPayload returns the command arguments: everything in the raw text
// after the case-insensitive prefix, trimmed. The prefix is matched against
// the lowercased text so the payload keeps its original casing.
func extractPayload(rawText, prefix string) string {
	idx := strings.Index(strings.ToLower(rawText), prefix)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(rawText[idx+len(prefix):])
}

// extractTarget resolves the user a command acts on. A reply takes priority;
// otherwise the first payload token is tried as @username, then as a numeric
// id. It returns the target id, the payload after the consumed token, and
// whether a target was found.
func (b *Bot) extractTarget(ctx context.Context, message *tgbotapi.Message, rawText, prefix string) (int64, string, bool) {
	payload := extractPayload(rawText, prefix)

	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		return message.ReplyToMessage.From.ID, payload, true
	}

	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return 0, "", false
	}
	token := fields[0]
	remainder := strings.TrimSpace(strings.TrimPrefix(payload, token))

	if strings.HasPrefix(token, "@") {
		user, err := b.store.GetUserByUsername(ctx, strings.TrimPrefix(token, "@"), message.Chat.ID)
		if err != nil || user == nil {
			return 0, "", false
		}
		return user.ID, remainder, true
	}

	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, remainder, true
}

// parseBanDuration parses the first token of the payload: "10м", "2часа" or
// a bare "30" meaning minutes. An empty payload means a permanent ban and
// anything past the duration token is ignored. The second return value is a
// user-facing error text, empty on success.
func (b *Bot) parseBanDuration(payload string) (*time.Time, string) {
	fields := strings.Fields(strings.ToLower(payload))
	if len(fields) == 0 {
		return nil, ""
	}

	groups := durationPattern.FindStringSubmatch(fields[0])
	if groups == nil {
		return nil, "Не понял срок бана. Примеры: 30с, 10м, 2ч, 1д или без срока"
	}

	amount, err := strconv.ParseInt(groups[1], 10, 64)
	if err != nil || amount <= 0 {
		return nil, "Срок бана должен быть положительным числом"
	}

	unit := time.Minute
	if groups[2] != "" {
		resolved, ok := matchDurationUnit(groups[2])
		if !ok {
			return nil, "Не понял единицу времени. Примеры: с, м, ч, д"
		}
		unit = resolved
	}

	until := b.now().Add(time.Duration(amount) * unit)
	return &until, ""
}

// matchDurationUnit tolerates longer Russian forms ("минут", "часа") by
// falling back to progressively shorter prefixes of the suffix.
func matchDurationUnit(suffix string) (time.Duration, bool) {
	if d, ok := durationUnits[suffix]; ok {
		return d, true
	}
	runes := []rune(suffix)
	for n := len(runes) - 1; n > 0; n-- {
		if d, ok := durationUnits[string(runes[:n])]; ok {
			return d, true
		}
	}
	return 0, false
}
