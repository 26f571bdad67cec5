package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bydlikbot/bydlik/internal/models"
)

type userKey struct {
	userID int64
	chatID int64
}

type settingKey struct {
	chatID int64
	key    string
}

type templateKey struct {
	chatID  int64
	trigger string
}

// MemoryStorage is the in-process Storage used by tests and storage-less
// runs. It mirrors the PostgreSQL semantics exactly.
type MemoryStorage struct {
	mu        sync.RWMutex
	users     map[userKey]*models.User
	templates map[templateKey]models.QuestionTemplate
	settings  map[settingKey]string
	admins    map[userKey]struct{}
	bans      map[userKey]*time.Time
}

func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{
		users:     make(map[userKey]*models.User),
		templates: make(map[templateKey]models.QuestionTemplate),
		settings:  make(map[settingKey]string),
		admins:    make(map[userKey]struct{}),
		bans:      make(map[userKey]*time.Time),
	}
	for _, tpl := range DefaultQuestionTemplates {
		s.templates[templateKey{models.GlobalChatID, tpl.Trigger}] = models.QuestionTemplate{
			Trigger:  tpl.Trigger,
			Response: tpl.Response,
			ChatID:   models.GlobalChatID,
		}
	}
	return s
}

func (s *MemoryStorage) EnsureUser(ctx context.Context, userID int64, username string, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey{userID, chatID}
	if user, exists := s.users[key]; exists {
		user.Username = username
		return nil
	}
	s.users[key] = &models.User{
		ID:       userID,
		Username: username,
		ChatID:   chatID,
		Tag:      true,
	}
	return nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, userID, chatID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[userKey{userID, chatID}]; exists {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string, chatID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.User
	for _, user := range s.users {
		if user.ChatID != chatID || !strings.EqualFold(user.Username, username) {
			continue
		}
		if found == nil || user.ID > found.ID {
			found = user
		}
	}
	if found == nil {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (s *MemoryStorage) GetChatUsers(ctx context.Context, chatID int64) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for _, user := range s.users {
		if user.ChatID == chatID {
			copied := *user
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *MemoryStorage) GetTaggedUsers(ctx context.Context, chatID int64) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for _, user := range s.users {
		if user.ChatID == chatID && user.Tag {
			copied := *user
			users = append(users, &copied)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *MemoryStorage) SetTagStatus(ctx context.Context, userID, chatID int64, tag bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, exists := s.users[userKey{userID, chatID}]; exists {
		user.Tag = tag
	}
	return nil
}

func (s *MemoryStorage) IsGlobalAdmin(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.ID == userID && user.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) SetGlobalAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ID == userID {
			user.IsAdmin = isAdmin
		}
	}
	return nil
}

func (s *MemoryStorage) GetQuestionTemplates(ctx context.Context, chatID int64) ([]models.QuestionTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTrigger := make(map[string]models.QuestionTemplate)
	for key, tpl := range s.templates {
		if key.chatID != models.GlobalChatID && key.chatID != chatID {
			continue
		}
		existing, seen := byTrigger[tpl.Trigger]
		if seen && existing.ChatID != models.GlobalChatID {
			continue
		}
		if !seen || tpl.ChatID != models.GlobalChatID {
			byTrigger[tpl.Trigger] = tpl
		}
	}

	templates := make([]models.QuestionTemplate, 0, len(byTrigger))
	for _, tpl := range byTrigger {
		templates = append(templates, tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Trigger < templates[j].Trigger })
	return templates, nil
}

func (s *MemoryStorage) SaveQuestionTemplate(ctx context.Context, tpl models.QuestionTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[templateKey{tpl.ChatID, tpl.Trigger}] = tpl
	return nil
}

func (s *MemoryStorage) DeleteQuestionTemplate(ctx context.Context, chatID int64, trigger string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := templateKey{chatID, trigger}
	if _, exists := s.templates[key]; !exists {
		return false, nil
	}
	delete(s.templates, key)
	return true, nil
}

func (s *MemoryStorage) GetSetting(ctx context.Context, chatID int64, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, exists := s.settings[settingKey{chatID, key}]
	return value, exists, nil
}

func (s *MemoryStorage) SetSetting(ctx context.Context, chatID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settingKey{chatID, key}] = value
	return nil
}

func (s *MemoryStorage) AddChatAdmin(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins[userKey{userID, chatID}] = struct{}{}
	return nil
}

func (s *MemoryStorage) RemoveChatAdmin(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.admins, userKey{userID, chatID})
	return nil
}

func (s *MemoryStorage) IsChatAdmin(ctx context.Context, userID, chatID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.admins[userKey{userID, chatID}]
	return exists, nil
}

func (s *MemoryStorage) AddChatBan(ctx context.Context, userID, chatID int64, until *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if until != nil {
		utc := until.UTC()
		until = &utc
	}
	s.bans[userKey{userID, chatID}] = until
	return nil
}

func (s *MemoryStorage) RemoveChatBan(ctx context.Context, userID, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bans, userKey{userID, chatID})
	return nil
}

func (s *MemoryStorage) GetChatBan(ctx context.Context, userID, chatID int64) (*models.Ban, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, exists := s.bans[userKey{userID, chatID}]
	if !exists {
		return nil, nil
	}
	ban := &models.Ban{UserID: userID, ChatID: chatID}
	if until != nil {
		t := *until
		ban.Until = &t
	}
	return ban, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
