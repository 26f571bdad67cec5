package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/bydlikbot/bydlik/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	if err := storage.seedDefaultTemplates(context.Background()); err != nil {
		return nil, fmt.Errorf("error seeding default templates: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (s *PostgresStorage) seedDefaultTemplates(ctx context.Context) error {
	for _, tpl := range DefaultQuestionTemplates {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO question_templates (chat_id, trigger_text, response_template)
			VALUES ($1, $2, $3)
			ON CONFLICT (chat_id, trigger_text) DO NOTHING`,
			models.GlobalChatID, tpl.Trigger, tpl.Response)
		if err != nil {
			return fmt.Errorf("error seeding template %q: %w", tpl.Trigger, err)
		}
	}
	return nil
}

func (s *PostgresStorage) EnsureUser(ctx context.Context, userID int64, username string, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, chat_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id, chat_id) DO UPDATE SET username = EXCLUDED.username`,
		userID, username, chatID)
	if err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, userID, chatID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, chat_id, tag, is_admin
		FROM users WHERE id = $1 AND chat_id = $2`,
		userID, chatID)
	return scanUser(row)
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string, chatID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, chat_id, tag, is_admin
		FROM users
		WHERE LOWER(username) = LOWER($1) AND chat_id = $2
		ORDER BY id DESC
		LIMIT 1`,
		username, chatID)
	return scanUser(row)
}

func (s *PostgresStorage) GetChatUsers(ctx context.Context, chatID int64) ([]*models.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, username, chat_id, tag, is_admin
		FROM users WHERE chat_id = $1
		ORDER BY username, id`, chatID)
}

func (s *PostgresStorage) GetTaggedUsers(ctx context.Context, chatID int64) ([]*models.User, error) {
	return s.queryUsers(ctx, `
		SELECT id, username, chat_id, tag, is_admin
		FROM users WHERE chat_id = $1 AND tag = TRUE
		ORDER BY id`, chatID)
}

func (s *PostgresStorage) queryUsers(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.ChatID, &user.Tag, &user.IsAdmin); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) SetTagStatus(ctx context.Context, userID, chatID int64, tag bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET tag = $1 WHERE id = $2 AND chat_id = $3`,
		tag, userID, chatID)
	if err != nil {
		return fmt.Errorf("error updating tag status: %w", err)
	}
	return nil
}

func (s *PostgresStorage) IsGlobalAdmin(ctx context.Context, userID int64) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(bool_or(is_admin), FALSE) FROM users WHERE id = $1`,
		userID).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("error querying admin flag: %w", err)
	}
	return isAdmin, nil
}

func (s *PostgresStorage) SetGlobalAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $1 WHERE id = $2`,
		isAdmin, userID)
	if err != nil {
		return fmt.Errorf("error updating admin flag: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetQuestionTemplates(ctx context.Context, chatID int64) ([]models.QuestionTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, trigger_text, response_template
		FROM question_templates
		WHERE chat_id = $1 OR chat_id = $2
		ORDER BY trigger_text, chat_id`,
		models.GlobalChatID, chatID)
	if err != nil {
		return nil, fmt.Errorf("error querying question templates: %w", err)
	}
	defer rows.Close()

	// Chat rows shadow global rows sharing a trigger, regardless of scan order.
	byTrigger := make(map[string]models.QuestionTemplate)
	var order []string
	for rows.Next() {
		var tpl models.QuestionTemplate
		if err := rows.Scan(&tpl.ChatID, &tpl.Trigger, &tpl.Response); err != nil {
			return nil, fmt.Errorf("error scanning question template: %w", err)
		}
		existing, seen := byTrigger[tpl.Trigger]
		if !seen {
			order = append(order, tpl.Trigger)
			byTrigger[tpl.Trigger] = tpl
			continue
		}
		if existing.ChatID == models.GlobalChatID && tpl.ChatID != models.GlobalChatID {
			byTrigger[tpl.Trigger] = tpl
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates := make([]models.QuestionTemplate, 0, len(order))
	for _, trigger := range order {
		templates = append(templates, byTrigger[trigger])
	}
	return templates, nil
}

func (s *PostgresStorage) SaveQuestionTemplate(ctx context.Context, tpl models.QuestionTemplate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO question_templates (chat_id, trigger_text, response_template)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, trigger_text) DO UPDATE SET
			response_template = EXCLUDED.response_template`,
		tpl.ChatID, tpl.Trigger, tpl.Response)
	if err != nil {
		return fmt.Errorf("error saving question template: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteQuestionTemplate(ctx context.Context, chatID int64, trigger string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM question_templates WHERE chat_id = $1 AND trigger_text = $2`,
		chatID, trigger)
	if err != nil {
		return false, fmt.Errorf("error deleting question template: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStorage) GetSetting(ctx context.Context, chatID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE chat_id = $1 AND key = $2`,
		chatID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error querying setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStorage) SetSetting(ctx context.Context, chatID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (chat_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id, key) DO UPDATE SET value = EXCLUDED.value`,
		chatID, key, value)
	if err != nil {
		return fmt.Errorf("error saving setting %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) AddChatAdmin(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_admins (user_id, chat_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, chat_id) DO NOTHING`,
		userID, chatID)
	if err != nil {
		return fmt.Errorf("error adding chat admin: %w", err)
	}
	return nil
}

func (s *PostgresStorage) RemoveChatAdmin(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_admins WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID)
	if err != nil {
		return fmt.Errorf("error removing chat admin: %w", err)
	}
	return nil
}

func (s *PostgresStorage) IsChatAdmin(ctx context.Context, userID, chatID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chat_admins WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error querying chat admin: %w", err)
	}
	return true, nil
}

func (s *PostgresStorage) AddChatBan(ctx context.Context, userID, chatID int64, until *time.Time) error {
	var value any
	if until != nil {
		utc := until.UTC()
		value = utc
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_bans (user_id, chat_id, banned_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, chat_id) DO UPDATE SET banned_until = EXCLUDED.banned_until`,
		userID, chatID, value)
	if err != nil {
		return fmt.Errorf("error adding chat ban: %w", err)
	}
	return nil
}

func (s *PostgresStorage) RemoveChatBan(ctx context.Context, userID, chatID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_bans WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID)
	if err != nil {
		return fmt.Errorf("error removing chat ban: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetChatBan(ctx context.Context, userID, chatID int64) (*models.Ban, error) {
	var until sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT banned_until FROM chat_bans WHERE user_id = $1 AND chat_id = $2`,
		userID, chatID).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying chat ban: %w", err)
	}

	ban := &models.Ban{UserID: userID, ChatID: chatID}
	if until.Valid {
		t := until.Time
		ban.Until = &t
	}
	return ban, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.ChatID, &user.Tag, &user.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning user: %w", err)
	}
	return user, nil
}
