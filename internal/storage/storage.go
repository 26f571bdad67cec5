package storage

import (
	"context"
	"time"

	"github.com/bydlikbot/bydlik/internal/models"
)

// Storage is the persistence contract for users, templates, scoped settings
// and moderation relations. Every mutation is atomic once it returns nil.
type Storage interface {
	// Users. GetUser and GetUserByUsername return (nil, nil) when no row
	// exists. EnsureUser upserts the identity row, refreshing the username.
	EnsureUser(ctx context.Context, userID int64, username string, chatID int64) error
	GetUser(ctx context.Context, userID, chatID int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string, chatID int64) (*models.User, error)
	GetChatUsers(ctx context.Context, chatID int64) ([]*models.User, error)
	GetTaggedUsers(ctx context.Context, chatID int64) ([]*models.User, error)
	SetTagStatus(ctx context.Context, userID, chatID int64, tag bool) error

	// Global admin flag, read as the union over all chat rows of the user.
	// SetGlobalAdmin updates existing rows only; a user with no identity row
	// yet stays a non-admin until EnsureUser has run for them.
	IsGlobalAdmin(ctx context.Context, userID int64) (bool, error)
	SetGlobalAdmin(ctx context.Context, userID int64, isAdmin bool) error

	// Question templates. GetQuestionTemplates returns the effective set for
	// the scope: global rows only for models.GlobalChatID, otherwise global
	// rows overlaid by chat rows sharing a trigger. Order is stable (by
	// trigger).
	GetQuestionTemplates(ctx context.Context, chatID int64) ([]models.QuestionTemplate, error)
	SaveQuestionTemplate(ctx context.Context, tpl models.QuestionTemplate) error
	DeleteQuestionTemplate(ctx context.Context, chatID int64, trigger string) (bool, error)

	// Raw scoped settings rows. chatID == models.GlobalChatID addresses the
	// global row. Parsing, clamping and defaulting live in the resolver.
	GetSetting(ctx context.Context, chatID int64, key string) (string, bool, error)
	SetSetting(ctx context.Context, chatID int64, key, value string) error

	// Chat-scoped moderation relations.
	AddChatAdmin(ctx context.Context, userID, chatID int64) error
	RemoveChatAdmin(ctx context.Context, userID, chatID int64) error
	IsChatAdmin(ctx context.Context, userID, chatID int64) (bool, error)

	AddChatBan(ctx context.Context, userID, chatID int64, until *time.Time) error
	RemoveChatBan(ctx context.Context, userID, chatID int64) error
	GetChatBan(ctx context.Context, userID, chatID int64) (*models.Ban, error)

	Close() error
}

// DefaultQuestionTemplates is the global template set seeded into an empty
// store. Triggers already present are left untouched.
var DefaultQuestionTemplates = []models.QuestionTemplate{
	{Trigger: "кто", Response: "{mention}{question}"},
	{Trigger: "кого", Response: "{mention}'а{question}"},
	{Trigger: "у кого", Response: "У {mention}'а{question}"},
	{Trigger: "кому", Response: "{mention}'у{question}"},
	{Trigger: "с кем", Response: "С {mention}'ом{question}"},
	{Trigger: "кем", Response: "{mention}'ом{question}"},
	{Trigger: "в ком", Response: "В {mention}'е{question}"},
	{Trigger: "чей", Response: "{mention}'а{question}"},
	{Trigger: "чьё", Response: "{mention}'а{question}"},
	{Trigger: "чья", Response: "{mention}'а{question}"},
	{Trigger: "чьи", Response: "{mention}'а{question}"},
}
