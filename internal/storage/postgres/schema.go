package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaStatements создают таблицы бота. Выполняются идемпотентно
// при каждом старте.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		username VARCHAR(255),
		first_name VARCHAR(255),
		last_name VARCHAR(255),
		language_code VARCHAR(10),
		full_name VARCHAR(255),
		email VARCHAR(255),
		phone VARCHAR(32),
		grade VARCHAR(32),
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_registered BOOLEAN NOT NULL DEFAULT FALSE,
		is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
		registration_date TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		last_interaction_date TIMESTAMP WITH TIME ZONE
	)`,

	`CREATE TABLE IF NOT EXISTS quiz_results (
		result_id SERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		quiz_type VARCHAR(50) NOT NULL,
		quiz_scope_id INTEGER,
		total_questions INTEGER NOT NULL,
		correct_count INTEGER NOT NULL,
		wrong_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		score_percentage NUMERIC(5, 2) NOT NULL,
		start_time TIMESTAMP WITH TIME ZONE NOT NULL,
		end_time TIMESTAMP WITH TIME ZONE NOT NULL,
		details JSONB,
		completed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quiz_results_user_id ON quiz_results(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_quiz_results_completed_at ON quiz_results(completed_at)`,

	`CREATE TABLE IF NOT EXISTS saved_quizzes (
		quiz_id VARCHAR(64) PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
		chat_id BIGINT NOT NULL,
		quiz_name VARCHAR(255) NOT NULL,
		quiz_type VARCHAR(50) NOT NULL,
		scope_id INTEGER,
		snapshot JSONB NOT NULL,
		saved_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_saved_quizzes_user_id ON saved_quizzes(user_id)`,

	`CREATE TABLE IF NOT EXISTS system_messages (
		message_key VARCHAR(64) PRIMARY KEY,
		message_text TEXT NOT NULL,
		last_modified TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
}

// defaultSystemMessages — тексты по умолчанию, добавляются только
// если ключа ещё нет.
var defaultSystemMessages = map[string]string{
	"welcome":      "أهلاً بك في بوت الكيمياء! 🧪",
	"maintenance":  "البوت تحت الصيانة حالياً، يرجى المحاولة لاحقاً.",
	"quiz_intro":   "اختر نوع الاختبار للبدء.",
	"support_hint": "لأي استفسار تواصل مع المشرف.",
}

// Setup создаёт схему базы и добавляет системные сообщения по умолчанию.
func (s *Storage) Setup(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
	}

	query := `
	INSERT INTO system_messages (message_key, message_text)
	VALUES ($1, $2)
	ON CONFLICT (message_key) DO NOTHING
	`
	for key, text := range defaultSystemMessages {
		if _, err := s.pool.Exec(ctx, query, key, text); err != nil {
			return fmt.Errorf("failed to seed system message %s: %w", key, err)
		}
	}

	slog.Info("database schema is up to date")
	return nil
}
