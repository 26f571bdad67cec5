// Package admin is the moderation state machine: global/chat admin tiers and
// time-bound bans with lazy expiry.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/storage"
)

// ErrGlobalAdminImmune is returned when demotion targets a global admin.
var ErrGlobalAdminImmune = errors.New("global admins cannot be demoted via the chat relation")

type Service struct {
	store  storage.Storage
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store storage.Storage, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// IsGlobalAdmin reports whether the user holds the global admin flag in any
// chat. Storage failures read as "not an admin".
func (s *Service) IsGlobalAdmin(ctx context.Context, userID int64) bool {
	isAdmin, err := s.store.IsGlobalAdmin(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to read global admin flag", zap.Error(err), zap.Int64("user_id", userID))
		return false
	}
	return isAdmin
}

func (s *Service) IsChatAdmin(ctx context.Context, userID, chatID int64) bool {
	isAdmin, err := s.store.IsChatAdmin(ctx, userID, chatID)
	if err != nil {
		s.logger.Warn("failed to read chat admin relation",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
		return false
	}
	return isAdmin
}

func (s *Service) PromoteChatAdmin(ctx context.Context, userID, chatID int64) error {
	if err := s.store.AddChatAdmin(ctx, userID, chatID); err != nil {
		return fmt.Errorf("error promoting chat admin: %w", err)
	}
	return nil
}

// DemoteChatAdmin removes the chat-admin relation. Global admins are immune.
func (s *Service) DemoteChatAdmin(ctx context.Context, userID, chatID int64) error {
	isGlobal, err := s.store.IsGlobalAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("error checking global admin flag: %w", err)
	}
	if isGlobal {
		return ErrGlobalAdminImmune
	}
	if err := s.store.RemoveChatAdmin(ctx, userID, chatID); err != nil {
		return fmt.Errorf("error demoting chat admin: %w", err)
	}
	return nil
}

// Ban puts the user into banned-until(T), or banned-forever when until is nil.
func (s *Service) Ban(ctx context.Context, userID, chatID int64, until *time.Time) error {
	if err := s.store.AddChatBan(ctx, userID, chatID, until); err != nil {
		return fmt.Errorf("error banning user: %w", err)
	}
	return nil
}

func (s *Service) Unban(ctx context.Context, userID, chatID int64) error {
	if err := s.store.RemoveChatBan(ctx, userID, chatID); err != nil {
		return fmt.Errorf("error unbanning user: %w", err)
	}
	return nil
}

// IsBanned reports the ban state. Reading an expired ban deletes the row and
// reports not-banned; there is no background sweep.
func (s *Service) IsBanned(ctx context.Context, userID, chatID int64) bool {
	ban, err := s.store.GetChatBan(ctx, userID, chatID)
	if err != nil {
		s.logger.Warn("failed to read ban record",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
		return false
	}
	if ban == nil {
		return false
	}
	if ban.Until != nil && !ban.Until.After(s.now()) {
		if err := s.store.RemoveChatBan(ctx, userID, chatID); err != nil {
			s.logger.Warn("failed to delete expired ban",
				zap.Error(err), zap.Int64("user_id", userID), zap.Int64("chat_id", chatID))
		}
		return false
	}
	return true
}
