package bot

import (
	"context"
	"math/rand"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/questions"
	"github.com/bydlikbot/bydlik/internal/seed"
	"github.com/bydlikbot/bydlik/internal/texts"
)

// handleIntents walks the non-command intents in their fixed order. Steps are
// independent: several may fire for one message.
func (b *Bot) handleIntents(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, text string) {
	userID := message.From.ID
	scope := templateScope(message)

	templates, err := b.store.GetQuestionTemplates(ctx, scope)
	if err != nil {
		logger.Error("failed to load question templates", zap.Error(err))
	}
	match, matched := questions.FindMatch(text, templates)

	if matched {
		b.answerQuestion(ctx, logger, message, match)
	}

	b.maybeInsult(ctx, logger, message, text, matched)

	if strings.Contains(text, models.BotName+" не тегай меня") {
		b.toggleOwnTag(ctx, logger, message, false)
	} else if strings.Contains(text, models.BotName+" тегай меня") {
		b.toggleOwnTag(ctx, logger, message, true)
	}

	if strings.Contains(text, models.BotName+" насколько") {
		tail := after(text, "насколько")
		rng := seed.NewSource(tail, userID, b.now())
		b.reply(logger, message, "На "+strconv.Itoa(rng.Intn(99)+2)+"%")
	}

	if strings.Contains(text, models.BotName+" когда") {
		b.reply(logger, message, b.whenAnswer(ctx, scope))
	}

	if strings.Contains(text, models.BotName+" сколько") {
		tail := after(text, "сколько")
		rng := seed.NewSource(tail, userID, b.now())
		var answer string
		if rng.Intn(2) == 0 {
			answer = strconv.Itoa(rng.Intn(99) + 2)
		} else {
			answer = texts.QuantityResponses[rng.Intn(len(texts.QuantityResponses))]
		}
		b.reply(logger, message, answer)
	}

	if strings.Contains(text, models.BotName+" ") && strings.Contains(text, " или ") {
		if choice, ok := pickAlternative(text); ok {
			b.reply(logger, message, choice)
		}
	}
}

func (b *Bot) answerQuestion(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, match questions.Match) {
	chatID := message.Chat.ID

	members, err := b.store.GetTaggedUsers(ctx, chatID)
	if err != nil {
		logger.Error("failed to load tagged users", zap.Error(err))
	}
	subject := questions.SelectSubject(members, nil)

	opts := questions.FormatOptions{
		PhraseChance: b.settings.QuestionPhraseChance(ctx, settingScope(message)),
	}
	if questions.HasNumericPlaceholder(match.Template.Response) {
		opts.Rand = seed.NewSource(match.Tail, message.From.ID, b.now())
	}

	b.reply(logger, message, questions.FormatResponse(subject, match.Template.Response, match.Tail, opts))
}

// maybeInsult draws against the effective insult probability and, on success,
// asks the generation collaborator for a reply, falling back to a canned
// phrase when it cannot deliver.
func (b *Bot) maybeInsult(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, text string, questionMatched bool) {
	scope := settingScope(message)

	probability := b.settings.InsultProbability(ctx, scope)
	level := b.settings.InsultLevel(ctx, scope)
	if level <= 1 {
		probability = 0
	}

	mentionsBot := strings.Contains(text, models.BotName)
	repliesToBot := message.ReplyToMessage != nil &&
		message.ReplyToMessage.From != nil &&
		message.ReplyToMessage.From.ID == b.selfID
	if probability > 0 && ((mentionsBot && !questionMatched) || repliesToBot) {
		boosted := probability * b.settings.InsultBoost(ctx, scope)
		if boosted > 1 {
			boosted = 1
		}
		probability = boosted
	}

	if probability <= 0 || rand.Float64() >= probability {
		return
	}

	prompt := text
	switch contentKind(message) {
	case models.PhotoContent:
		prompt = "фото"
	case models.VideoContent:
		prompt = "видео"
	}

	answer, err := b.generator.GenerateInsult(ctx, prompt, level, b.history.Lines(message.Chat.ID))
	if err != nil {
		logger.Warn("insult generation failed, using fallback", zap.Error(err))
		answer = texts.InsultFallbacks[rand.Intn(len(texts.InsultFallbacks))]
	}
	b.reply(logger, message, answer)
}

func (b *Bot) toggleOwnTag(ctx context.Context, logger *zap.Logger, message *tgbotapi.Message, wantTag bool) {
	chatID := message.Chat.ID
	userID := message.From.ID

	user, err := b.store.GetUser(ctx, userID, chatID)
	if err != nil {
		logger.Error("failed to load user for tag toggle", zap.Error(err))
		return
	}
	current := user != nil && user.Tag

	if current == wantTag {
		if wantTag {
			b.reply(logger, message, "Я тебя и так тегаю")
		} else {
			b.reply(logger, message, "Ты уже просил, я тебя не тегаю")
		}
		return
	}

	if err := b.store.SetTagStatus(ctx, userID, chatID, wantTag); err != nil {
		logger.Error("failed to update tag status", zap.Error(err))
		return
	}
	if wantTag {
		b.reply(logger, message, "Готово\nЕсли захочешь, чтобы я перестал тебя тегать, просто напиши мне \"Быдлик не тегай меня\"")
	} else {
		b.reply(logger, message, "Готово\nЕсли захочешь, чтобы я снова тебя тегал, просто напиши мне \"Быдлик тегай меня\"")
	}
}

func (b *Bot) whenAnswer(ctx context.Context, scope int64) string {
	if rand.Float64() < b.settings.WhenPhraseChance(ctx, scope) {
		return texts.VagueTimeResponses[rand.Intn(len(texts.VagueTimeResponses))]
	}
	unit := texts.TimeUnits[rand.Intn(len(texts.TimeUnits))]
	return texts.In(unit, rand.Intn(99)+1)
}

// after returns everything following the first occurrence of keyword.
func after(text, keyword string) string {
	_, tail, found := strings.Cut(text, keyword)
	if !found {
		return ""
	}
	return tail
}

// pickAlternative splits the text after the bot name on " или " and picks
// one option, discarding an empty leading segment.
func pickAlternative(text string) (string, bool) {
	tail := after(text, models.BotName)
	options := strings.Split(tail, " или ")
	if len(options) > 0 && strings.TrimSpace(options[0]) == "" {
		options = options[1:]
	}
	if len(options) == 0 {
		return "", false
	}
	return strings.TrimSpace(options[rand.Intn(len(options))]), true
}

// settingScope is the scope used for settings resolution: the chat for group
// messages, the global tier in private conversations.
func settingScope(message *tgbotapi.Message) int64 {
	if message.Chat.IsPrivate() {
		return models.GlobalChatID
	}
	return message.Chat.ID
}
