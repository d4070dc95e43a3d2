package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/letsssgooo/chembot/internal/domain/models"
	"github.com/letsssgooo/chembot/internal/storage"
)

// Storage реализует storage.Storage поверх PostgreSQL через pgxpool.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage подключается к базе по dsn и возвращает готовое хранилище.
func NewStorage(ctx context.Context, dsn string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &Storage{pool: pool}, nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) UpsertUser(ctx context.Context, user *models.UserModel) error {
	query := `
	INSERT INTO users (user_id, username, first_name, last_name, language_code, last_interaction_date)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (user_id) DO UPDATE SET
		username = EXCLUDED.username,
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		language_code = EXCLUDED.language_code,
		last_interaction_date = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		user.UserID, user.Username, user.FirstName, user.LastName, user.LanguageCode)

	return err
}

func (s *Storage) GetUser(ctx context.Context, userID int64) (*models.UserModel, error) {
	query := `
	SELECT user_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	       COALESCE(language_code, ''), COALESCE(full_name, ''), COALESCE(email, ''),
	       COALESCE(phone, ''), COALESCE(grade, ''), is_admin, is_registered, is_blocked,
	       registration_date, COALESCE(last_interaction_date, registration_date)
	FROM users WHERE user_id = $1
	`

	user := &models.UserModel{}
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&user.UserID, &user.Username, &user.FirstName, &user.LastName,
		&user.LanguageCode, &user.FullName, &user.Email,
		&user.Phone, &user.Grade, &user.IsAdmin, &user.IsRegistered, &user.IsBlocked,
		&user.RegisteredAt, &user.LastInteraction,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Storage) SaveProfile(ctx context.Context, userID int64, fullName, email, phone, grade string) error {
	query := `
	UPDATE users SET full_name = $1, email = $2, phone = $3, grade = $4, is_registered = TRUE
	WHERE user_id = $5
	`

	tag, err := s.pool.Exec(ctx, query, fullName, email, phone, grade, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) UpdateProfileField(ctx context.Context, userID int64, field storage.ProfileField, value string) error {
	var query string

	// Имя колонки не параметризуется, поэтому только белый список полей.
	switch field {
	case storage.FieldFullName:
		query = `UPDATE users SET full_name = $1 WHERE user_id = $2`
	case storage.FieldEmail:
		query = `UPDATE users SET email = $1 WHERE user_id = $2`
	case storage.FieldPhone:
		query = `UPDATE users SET phone = $1 WHERE user_id = $2`
	case storage.FieldGrade:
		query = `UPDATE users SET grade = $1 WHERE user_id = $2`
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}

	tag, err := s.pool.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	query := `
	SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1 AND is_registered)
	`

	var registered bool
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&registered); err != nil {
		return false, err
	}

	return registered, nil
}

func (s *Storage) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	query := `
	SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1 AND is_admin)
	`

	var isAdmin bool
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&isAdmin); err != nil {
		return false, err
	}

	return isAdmin, nil
}

func (s *Storage) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	query := `
	UPDATE users SET is_blocked = $1 WHERE user_id = $2
	`

	_, err := s.pool.Exec(ctx, query, blocked, userID)
	return err
}

func (s *Storage) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	query := `
	SELECT user_id FROM users WHERE NOT is_blocked ORDER BY user_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (s *Storage) SaveResult(ctx context.Context, result *models.QuizResultModel) error {
	query := `
	INSERT INTO quiz_results (
		user_id, quiz_type, quiz_scope_id, total_questions,
		correct_count, wrong_count, skipped_count, score_percentage,
		start_time, end_time, details
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING result_id, completed_at
	`

	return s.pool.QueryRow(ctx, query,
		result.UserID, result.QuizType, result.QuizScopeID, result.TotalQuestions,
		result.CorrectCount, result.WrongCount, result.SkippedCount, result.ScorePercentage,
		result.StartTime, result.EndTime, result.Details,
	).Scan(&result.ResultID, &result.CompletedAt)
}

func (s *Storage) RecentResults(ctx context.Context, userID int64, limit int) ([]models.QuizResultModel, error) {
	query := `
	SELECT result_id, user_id, quiz_type, COALESCE(quiz_scope_id, 0), total_questions,
	       correct_count, wrong_count, skipped_count, score_percentage,
	       start_time, end_time, details, completed_at
	FROM quiz_results
	WHERE user_id = $1
	ORDER BY completed_at DESC
	LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuizResultModel
	for rows.Next() {
		var r models.QuizResultModel
		if err := rows.Scan(
			&r.ResultID, &r.UserID, &r.QuizType, &r.QuizScopeID, &r.TotalQuestions,
			&r.CorrectCount, &r.WrongCount, &r.SkippedCount, &r.ScorePercentage,
			&r.StartTime, &r.EndTime, &r.Details, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

func (s *Storage) SaveSnapshot(ctx context.Context, snap *models.SavedQuizModel) error {
	query := `
	INSERT INTO saved_quizzes (quiz_id, user_id, chat_id, quiz_name, quiz_type, scope_id, snapshot, saved_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (quiz_id) DO UPDATE SET snapshot = EXCLUDED.snapshot, saved_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		snap.QuizID, snap.UserID, snap.ChatID, snap.QuizName, snap.QuizType, snap.ScopeID, snap.Snapshot)

	return err
}

func (s *Storage) ListSnapshots(ctx context.Context, userID int64) ([]models.SavedQuizModel, error) {
	query := `
	SELECT quiz_id, user_id, chat_id, quiz_name, quiz_type, scope_id, snapshot, saved_at
	FROM saved_quizzes
	WHERE user_id = $1
	ORDER BY saved_at DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SavedQuizModel
	for rows.Next() {
		var snap models.SavedQuizModel
		if err := rows.Scan(
			&snap.QuizID, &snap.UserID, &snap.ChatID, &snap.QuizName,
			&snap.QuizType, &snap.ScopeID, &snap.Snapshot, &snap.SavedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}

	return out, rows.Err()
}

func (s *Storage) GetSnapshot(ctx context.Context, quizID string) (*models.SavedQuizModel, error) {
	query := `
	SELECT quiz_id, user_id, chat_id, quiz_name, quiz_type, scope_id, snapshot, saved_at
	FROM saved_quizzes
	WHERE quiz_id = $1
	`

	snap := &models.SavedQuizModel{}
	err := s.pool.QueryRow(ctx, query, quizID).Scan(
		&snap.QuizID, &snap.UserID, &snap.ChatID, &snap.QuizName,
		&snap.QuizType, &snap.ScopeID, &snap.Snapshot, &snap.SavedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("saved quiz %s: %w", quizID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *Storage) DeleteSnapshot(ctx context.Context, quizID string) error {
	query := `
	DELETE FROM saved_quizzes WHERE quiz_id = $1
	`

	_, err := s.pool.Exec(ctx, query, quizID)
	return err
}

func (s *Storage) SystemMessage(ctx context.Context, key string) (string, error) {
	query := `
	SELECT message_text FROM system_messages WHERE message_key = $1
	`

	var text string
	err := s.pool.QueryRow(ctx, query, key).Scan(&text)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("system message %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	return text, nil
}

func (s *Storage) SetSystemMessage(ctx context.Context, key, text string) error {
	query := `
	INSERT INTO system_messages (message_key, message_text, last_modified)
	VALUES ($1, $2, NOW())
	ON CONFLICT (message_key) DO UPDATE SET message_text = EXCLUDED.message_text, last_modified = NOW()
	`

	_, err := s.pool.Exec(ctx, query, key, text)
	return err
}

// normalizeRange подставляет границы по умолчанию для периода [since, until).
func normalizeRange(since, until time.Time) (time.Time, time.Time) {
	if since.IsZero() {
		since = time.Unix(0, 0)
	}
	if until.IsZero() {
		until = time.Now()
	}
	return since, until
}
