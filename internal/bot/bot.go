// Package bot is the intent dispatcher: it wires the transport to the
// moderation, settings, question and generation components and runs the
// per-message pipeline.
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/admin"
	"github.com/bydlikbot/bydlik/internal/history"
	"github.com/bydlikbot/bydlik/internal/llm"
	"github.com/bydlikbot/bydlik/internal/models"
	"github.com/bydlikbot/bydlik/internal/settings"
	"github.com/bydlikbot/bydlik/internal/storage"
)

// telegramClient is the slice of the Telegram API the dispatcher needs.
// *tgbotapi.BotAPI satisfies it; tests substitute a fake.
type telegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Generator produces an insult reply, or an error when the collaborator
// cannot deliver one (the caller then falls back to canned phrases).
type Generator interface {
	GenerateInsult(ctx context.Context, userMessage string, level int, historyLines []string) (string, error)
}

// QuotaProvider reports remaining generation quota for the status command.
type QuotaProvider interface {
	Status(ctx context.Context) (*llm.QuotaStatus, error)
}

// Options tune presentation behavior.
type Options struct {
	HistoryLimit   int
	TypingDelayMin time.Duration
	TypingDelayMax time.Duration
}

type Bot struct {
	api       *tgbotapi.BotAPI
	client    telegramClient
	selfID    int64
	store     storage.Storage
	settings  *settings.Resolver
	admins    *admin.Service
	generator Generator
	quota     QuotaProvider
	history   *history.Store
	logger    *zap.Logger
	delayMin  time.Duration
	delayMax  time.Duration
	now       func() time.Time
}

func New(token string, store storage.Storage, resolver *settings.Resolver, admins *admin.Service,
	generator Generator, quota QuotaProvider, logger *zap.Logger, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, api.Self.ID, store, resolver, admins, generator, quota, logger, opts)
	b.api = api
	return b, nil
}

func newBot(client telegramClient, selfID int64, store storage.Storage, resolver *settings.Resolver,
	admins *admin.Service, generator Generator, quota QuotaProvider, logger *zap.Logger, opts Options) *Bot {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &Bot{
		client:    client,
		selfID:    selfID,
		store:     store,
		settings:  resolver,
		admins:    admins,
		generator: generator,
		quota:     quota,
		history:   history.NewStore(limit),
		logger:    logger,
		delayMin:  opts.TypingDelayMin,
		delayMax:  opts.TypingDelayMax,
		now:       time.Now,
	}
}

// Start consumes updates until the channel closes. Messages from different
// chats are handled concurrently; messages within one chat are handled in
// arrival order, which both history ordering and seeded answers rely on.
func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	queues := make(map[int64]chan *tgbotapi.Message)
	for update := range updates {
		if update.Message == nil {
			continue
		}
		chatID := update.Message.Chat.ID
		queue, ok := queues[chatID]
		if !ok {
			queue = make(chan *tgbotapi.Message, 64)
			queues[chatID] = queue
			go func(queue chan *tgbotapi.Message) {
				for message := range queue {
					b.handleMessage(message)
				}
			}(queue)
		}
		queue <- update.Message
	}

	return nil
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	ctx := context.Background()

	userID := message.From.ID
	username := message.From.UserName
	chatID := message.Chat.ID
	rawText := message.Text
	if rawText == "" {
		rawText = message.Caption
	}
	text := strings.ToLower(rawText)

	logger := b.logger.With(
		zap.String("update_id", uuid.New().String()),
		zap.Int64("chat_id", chatID),
		zap.Int64("user_id", userID))

	if err := b.store.EnsureUser(ctx, userID, username, chatID); err != nil {
		logger.Error("failed to upsert user", zap.Error(err))
	}

	if b.admins.IsBanned(ctx, userID, chatID) {
		return
	}

	b.ensureChatOwnerAdmin(ctx, logger, userID, chatID)

	content := strings.TrimSpace(rawText)
	if content == "" {
		content = describeNonText(message)
	}
	if content != "" {
		displayName := username
		if displayName == "" {
			displayName = fmt.Sprintf("%d", userID)
		}
		b.history.Append(chatID, displayName, content)
	}

	if b.handleAdminCommand(ctx, logger, message, text, rawText) {
		return
	}

	b.handleIntents(ctx, logger, message, text)
}

// ensureChatOwnerAdmin silently grants chat-admin to the chat creator.
// Transport failures skip the grant for this message.
func (b *Bot) ensureChatOwnerAdmin(ctx context.Context, logger *zap.Logger, userID, chatID int64) {
	member, err := b.client.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return
	}
	if member.Status == "creator" {
		if err := b.admins.PromoteChatAdmin(ctx, userID, chatID); err != nil {
			logger.Warn("failed to grant owner admin", zap.Error(err))
		}
	}
}

// reply sends a typing indicator, waits the configured pause and answers the
// triggering message, then records its own output into the chat history.
func (b *Bot) reply(logger *zap.Logger, message *tgbotapi.Message, text string) {
	if _, err := b.client.Request(tgbotapi.NewChatAction(message.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		logger.Warn("failed to send typing action", zap.Error(err))
	}
	b.typingPause()

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.client.Send(msg); err != nil {
		logger.Error("failed to send reply", zap.Error(err))
		return
	}
	b.history.Append(message.Chat.ID, models.BotDisplayName, text)
}

func (b *Bot) typingPause() {
	if b.delayMax <= 0 {
		return
	}
	pause := b.delayMin
	if span := b.delayMax - b.delayMin; span > 0 {
		pause += time.Duration(rand.Int63n(int64(span)))
	}
	time.Sleep(pause)
}

// templateScope returns which template set applies: global only in private
// conversations, global merged with chat templates otherwise.
func templateScope(message *tgbotapi.Message) int64 {
	if message.Chat.IsPrivate() {
		return models.GlobalChatID
	}
	return message.Chat.ID
}

func describeNonText(message *tgbotapi.Message) string {
	switch {
	case message.Photo != nil:
		return "[фото]"
	case message.Video != nil:
		return "[видео]"
	case message.Audio != nil:
		return "[аудио]"
	case message.Voice != nil:
		return "[голосовое]"
	case message.Sticker != nil:
		return "[стикер]"
	case message.Animation != nil:
		return "[гифка]"
	case message.VideoNote != nil:
		return "[видеосообщение]"
	case message.Document != nil:
		return "[документ]"
	case message.Contact != nil:
		return "[контакт]"
	case message.Location != nil:
		return "[геопозиция]"
	case message.Poll != nil:
		return "[опрос]"
	default:
		return ""
	}
}

// contentKind maps the message to the prompt placeholder used when the
// triggering content is not text.
func contentKind(message *tgbotapi.Message) models.ContentType {
	switch {
	case message.Photo != nil:
		return models.PhotoContent
	case message.Video != nil:
		return models.VideoContent
	default:
		return models.TextContent
	}
}
