package postgres

import (
	"context"
	"time"

	"github.com/letsssgooo/chembot/internal/domain/models"
)

// Агрегатные запросы для административной панели и еженедельного отчёта.
// Всё считается заново по таблице quiz_results на каждый вызов.

func (s *Storage) Overview(ctx context.Context, since, until time.Time) (*models.OverviewStats, error) {
	since, until = normalizeRange(since, until)

	query := `
	SELECT COUNT(DISTINCT user_id),
	       COUNT(*),
	       COALESCE(AVG(score_percentage), 0),
	       COALESCE(AVG(EXTRACT(EPOCH FROM end_time - start_time)), 0),
	       COALESCE(100.0 * COUNT(*) FILTER (WHERE skipped_count = 0) / NULLIF(COUNT(*), 0), 0)
	FROM quiz_results
	WHERE completed_at >= $1 AND completed_at < $2
	`

	stats := &models.OverviewStats{}
	var avgSeconds float64

	err := s.pool.QueryRow(ctx, query, since, until).Scan(
		&stats.ActiveUsers, &stats.TotalQuizzes, &stats.AverageScore,
		&avgSeconds, &stats.CompletionRate,
	)
	if err != nil {
		return nil, err
	}

	stats.AverageDuration = time.Duration(avgSeconds * float64(time.Second))
	if stats.ActiveUsers > 0 {
		stats.QuizzesPerUser = float64(stats.TotalQuizzes) / float64(stats.ActiveUsers)
	}

	return stats, nil
}

func (s *Storage) ScoreDistribution(ctx context.Context, since, until time.Time) ([]models.ScoreBucket, error) {
	since, until = normalizeRange(since, until)

	query := `
	SELECT LEAST(FLOOR(score_percentage / 20), 4)::int AS bucket, COUNT(*)
	FROM quiz_results
	WHERE completed_at >= $1 AND completed_at < $2
	GROUP BY bucket
	`

	rows, err := s.pool.Query(ctx, query, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []models.ScoreBucket{
		{Label: "0-19%"},
		{Label: "20-39%"},
		{Label: "40-59%"},
		{Label: "60-79%"},
		{Label: "80-100%"},
	}

	for rows.Next() {
		var bucket, count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		if bucket >= 0 && bucket < len(buckets) {
			buckets[bucket].Count = count
		}
	}

	return buckets, rows.Err()
}

func (s *Storage) PopularScopes(ctx context.Context, since, until time.Time, limit int) ([]models.ScopeCount, error) {
	since, until = normalizeRange(since, until)

	query := `
	SELECT quiz_type, COALESCE(quiz_scope_id, 0), COUNT(*)
	FROM quiz_results
	WHERE completed_at >= $1 AND completed_at < $2
	GROUP BY quiz_type, quiz_scope_id
	ORDER BY COUNT(*) DESC
	LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, since, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScopeCount
	for rows.Next() {
		var sc models.ScopeCount
		if err := rows.Scan(&sc.QuizType, &sc.ScopeID, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}

	return out, rows.Err()
}

func (s *Storage) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
	SELECT qr.user_id, COALESCE(u.full_name, ''), COUNT(*), AVG(qr.score_percentage)
	FROM quiz_results qr
	JOIN users u ON u.user_id = qr.user_id
	WHERE NOT u.is_blocked
	GROUP BY qr.user_id, u.full_name
	ORDER BY AVG(qr.score_percentage) DESC, COUNT(*) DESC
	LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.FullName, &entry.QuizCount, &entry.AveragePercent); err != nil {
			return nil, err
		}
		entry.Rank = len(out) + 1
		out = append(out, entry)
	}

	return out, rows.Err()
}

func (s *Storage) UserAverages(ctx context.Context, since, until time.Time) ([]models.UserProgress, error) {
	since, until = normalizeRange(since, until)

	query := `
	SELECT qr.user_id, COALESCE(u.full_name, ''), COALESCE(u.grade, ''),
	       COUNT(*), AVG(qr.score_percentage)
	FROM quiz_results qr
	JOIN users u ON u.user_id = qr.user_id
	WHERE qr.completed_at >= $1 AND qr.completed_at < $2
	GROUP BY qr.user_id, u.full_name, u.grade
	ORDER BY qr.user_id
	`

	rows, err := s.pool.Query(ctx, query, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserProgress
	for rows.Next() {
		var p models.UserProgress
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Grade, &p.QuizCount, &p.AveragePercent); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (s *Storage) GradeAverages(ctx context.Context, since, until time.Time) ([]models.GradeStat, error) {
	since, until = normalizeRange(since, until)

	query := `
	SELECT COALESCE(u.grade, ''), COUNT(DISTINCT qr.user_id), COUNT(*), AVG(qr.score_percentage)
	FROM quiz_results qr
	JOIN users u ON u.user_id = qr.user_id
	WHERE qr.completed_at >= $1 AND qr.completed_at < $2
	GROUP BY u.grade
	ORDER BY u.grade
	`

	rows, err := s.pool.Query(ctx, query, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GradeStat
	for rows.Next() {
		var g models.GradeStat
		if err := rows.Scan(&g.Grade, &g.UserCount, &g.QuizCount, &g.AveragePercent); err != nil {
			return nil, err
		}
		out = append(out, g)
	}

	return out, rows.Err()
}

func (s *Storage) DifficultQuestions(ctx context.Context, since, until time.Time, limit int) ([]models.DifficultQuestion, error) {
	since, until = normalizeRange(since, until)

	// Журнал ответов лежит в JSONB колонке details, разворачиваем его
	// прямо в запросе.
	query := `
	SELECT (d->>'question_id')::int AS question_id,
	       MAX(d->>'question_text') AS question_text,
	       COUNT(*) AS attempts,
	       100.0 * COUNT(*) FILTER (WHERE NOT (d->>'is_correct')::boolean) / COUNT(*) AS wrong_rate
	FROM quiz_results qr, jsonb_array_elements(qr.details) AS d
	WHERE qr.completed_at >= $1 AND qr.completed_at < $2
	GROUP BY question_id
	ORDER BY wrong_rate DESC, attempts DESC
	LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, since, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DifficultQuestion
	for rows.Next() {
		var q models.DifficultQuestion
		if err := rows.Scan(&q.QuestionID, &q.Text, &q.Attempts, &q.WrongRate); err != nil {
			return nil, err
		}
		out = append(out, q)
	}

	return out, rows.Err()
}
