package models

import (
	"strconv"
	"time"
)

// GlobalChatID is the scope sentinel for rows that apply to every chat.
// Telegram never assigns chat id 0, so it is safe as a marker value.
const GlobalChatID int64 = 0

// BotName is the literal trigger word the bot answers to, always matched
// against lowercased text.
const BotName = "быдлик"

// BotDisplayName is how the bot refers to itself in mentions and history.
const BotDisplayName = "Быдлик"

// User is a chat-scoped identity row. Tag and Username belong to the
// (ID, ChatID) pair; IsAdmin marks a global administrator and is read as the
// union across all chat rows for the same ID.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	ChatID   int64  `json:"chat_id"`
	Tag      bool   `json:"tag"`
	IsAdmin  bool   `json:"is_admin"`
}

// DisplayName is the label used in history entries and user listings.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// QuestionTemplate maps a trigger phrase to a response template within a
// scope. ChatID == GlobalChatID means the template applies everywhere unless
// a chat-scoped row with the same trigger shadows it.
type QuestionTemplate struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
	ChatID   int64  `json:"chat_id"`
}

// Ban is a (user, chat) ban row. A nil Until means the ban is permanent.
type Ban struct {
	UserID int64      `json:"user_id"`
	ChatID int64      `json:"chat_id"`
	Until  *time.Time `json:"until,omitempty"`
}

// Subject is the outcome of participant selection: either a chat member or
// the bot itself.
type Subject struct {
	User *User
}

// BotSubject selects the bot itself.
func BotSubject() Subject { return Subject{} }

// HumanSubject selects a chat member.
func HumanSubject(u *User) Subject { return Subject{User: u} }

// IsBot reports whether the selection fell on the bot.
func (s Subject) IsBot() bool { return s.User == nil }

// ContentType tags the kind of incoming message the transport delivered.
type ContentType string

const (
	TextContent  ContentType = "text"
	PhotoContent ContentType = "photo"
	VideoContent ContentType = "video"
)
