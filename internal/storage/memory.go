package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/letsssgooo/chembot/internal/domain/models"
)

// MemoryStorage реализует Storage в памяти. Используется в тестах
// и при запуске без базы данных.
type MemoryStorage struct {
	mu        sync.RWMutex
	users     map[int64]*models.UserModel
	results   []models.QuizResultModel
	snapshots map[string]*models.SavedQuizModel
	messages  map[string]string
	nextID    int64
}

// NewMemoryStorage создаёт новый MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[int64]*models.UserModel),
		snapshots: make(map[string]*models.SavedQuizModel),
		messages:  make(map[string]string),
	}
}

func (s *MemoryStorage) UpsertUser(_ context.Context, user *models.UserModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.UserID]
	if !ok {
		stored := *user
		if stored.RegisteredAt.IsZero() {
			stored.RegisteredAt = time.Now()
		}
		stored.LastInteraction = time.Now()
		s.users[user.UserID] = &stored
		return nil
	}

	existing.Username = user.Username
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.LanguageCode = user.LanguageCode
	existing.LastInteraction = time.Now()

	return nil
}

func (s *MemoryStorage) GetUser(_ context.Context, userID int64) (*models.UserModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	copied := *user
	return &copied, nil
}

func (s *MemoryStorage) SaveProfile(_ context.Context, userID int64, fullName, email, phone, grade string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	user.FullName = fullName
	user.Email = email
	user.Phone = phone
	user.Grade = grade
	user.IsRegistered = true

	return nil
}

func (s *MemoryStorage) UpdateProfileField(_ context.Context, userID int64, field ProfileField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	switch field {
	case FieldFullName:
		user.FullName = value
	case FieldEmail:
		user.Email = value
	case FieldPhone:
		user.Phone = value
	case FieldGrade:
		user.Grade = value
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}

	return nil
}

func (s *MemoryStorage) IsRegistered(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	return ok && user.IsRegistered, nil
}

func (s *MemoryStorage) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	return ok && user.IsAdmin, nil
}

func (s *MemoryStorage) SetBlocked(_ context.Context, userID int64, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	user.IsBlocked = blocked
	return nil
}

func (s *MemoryStorage) ActiveUserIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.users))
	for id, user := range s.users {
		if !user.IsBlocked {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStorage) SaveResult(_ context.Context, result *models.QuizResultModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *result
	stored.ResultID = s.nextID
	if stored.CompletedAt.IsZero() {
		stored.CompletedAt = time.Now()
	}
	s.results = append(s.results, stored)

	return nil
}

func (s *MemoryStorage) RecentResults(_ context.Context, userID int64, limit int) ([]models.QuizResultModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.QuizResultModel
	for i := len(s.results) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.results[i].UserID == userID {
			out = append(out, s.results[i])
		}
	}

	return out, nil
}

func (s *MemoryStorage) Leaderboard(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		count int
		sum   float64
	}
	byUser := make(map[int64]*acc)
	for _, r := range s.results {
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{}
			byUser[r.UserID] = a
		}
		a.count++
		a.sum += r.ScorePercentage
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for id, a := range byUser {
		entry := models.LeaderboardEntry{
			UserID:         id,
			QuizCount:      a.count,
			AveragePercent: a.sum / float64(a.count),
		}
		if user, ok := s.users[id]; ok {
			entry.FullName = user.FullName
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AveragePercent != entries[j].AveragePercent {
			return entries[i].AveragePercent > entries[j].AveragePercent
		}
		return entries[i].QuizCount > entries[j].QuizCount
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}

// inRange проверяет попадание момента в период [since, until).
func inRange(t, since, until time.Time) bool {
	if !since.IsZero() && t.Before(since) {
		return false
	}
	if !until.IsZero() && !t.Before(until) {
		return false
	}
	return true
}

func (s *MemoryStorage) Overview(_ context.Context, since, until time.Time) (*models.OverviewStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.OverviewStats{}
	users := make(map[int64]struct{})

	var percentSum float64
	var durationSum time.Duration
	var finishedAll int

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) {
			continue
		}

		stats.TotalQuizzes++
		users[r.UserID] = struct{}{}
		percentSum += r.ScorePercentage
		durationSum += r.EndTime.Sub(r.StartTime)
		if r.SkippedCount == 0 {
			finishedAll++
		}
	}

	stats.ActiveUsers = len(users)
	if stats.TotalQuizzes > 0 {
		stats.AverageScore = percentSum / float64(stats.TotalQuizzes)
		stats.AverageDuration = durationSum / time.Duration(stats.TotalQuizzes)
		stats.CompletionRate = float64(finishedAll) / float64(stats.TotalQuizzes) * 100
	}
	if stats.ActiveUsers > 0 {
		stats.QuizzesPerUser = float64(stats.TotalQuizzes) / float64(stats.ActiveUsers)
	}

	return stats, nil
}

func (s *MemoryStorage) ScoreDistribution(_ context.Context, since, until time.Time) ([]models.ScoreBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := []models.ScoreBucket{
		{Label: "0-19%"},
		{Label: "20-39%"},
		{Label: "40-59%"},
		{Label: "60-79%"},
		{Label: "80-100%"},
	}

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) {
			continue
		}

		idx := int(r.ScorePercentage) / 20
		if idx > 4 {
			idx = 4
		}
		buckets[idx].Count++
	}

	return buckets, nil
}

func (s *MemoryStorage) PopularScopes(_ context.Context, since, until time.Time, limit int) ([]models.ScopeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		quizType string
		scopeID  int
	}
	counts := make(map[key]int)

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) {
			continue
		}
		counts[key{r.QuizType, r.QuizScopeID}]++
	}

	out := make([]models.ScopeCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, models.ScopeCount{QuizType: k.quizType, ScopeID: k.scopeID, Count: c})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *MemoryStorage) UserAverages(_ context.Context, since, until time.Time) ([]models.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		count int
		sum   float64
	}
	byUser := make(map[int64]*acc)

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) {
			continue
		}
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{}
			byUser[r.UserID] = a
		}
		a.count++
		a.sum += r.ScorePercentage
	}

	out := make([]models.UserProgress, 0, len(byUser))
	for id, a := range byUser {
		progress := models.UserProgress{
			UserID:         id,
			QuizCount:      a.count,
			AveragePercent: a.sum / float64(a.count),
		}
		if user, ok := s.users[id]; ok {
			progress.FullName = user.FullName
			progress.Grade = user.Grade
		}
		out = append(out, progress)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStorage) GradeAverages(_ context.Context, since, until time.Time) ([]models.GradeStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		users map[int64]struct{}
		count int
		sum   float64
	}
	byGrade := make(map[string]*acc)

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) {
			continue
		}

		grade := ""
		if user, ok := s.users[r.UserID]; ok {
			grade = user.Grade
		}

		a, ok := byGrade[grade]
		if !ok {
			a = &acc{users: make(map[int64]struct{})}
			byGrade[grade] = a
		}
		a.users[r.UserID] = struct{}{}
		a.count++
		a.sum += r.ScorePercentage
	}

	out := make([]models.GradeStat, 0, len(byGrade))
	for grade, a := range byGrade {
		out = append(out, models.GradeStat{
			Grade:          grade,
			UserCount:      len(a.users),
			QuizCount:      a.count,
			AveragePercent: a.sum / float64(a.count),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Grade < out[j].Grade })
	return out, nil
}

func (s *MemoryStorage) DifficultQuestions(_ context.Context, since, until time.Time, limit int) ([]models.DifficultQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type detail struct {
		QuestionID   int    `json:"question_id"`
		QuestionText string `json:"question_text"`
		IsCorrect    bool   `json:"is_correct"`
	}

	type acc struct {
		text     string
		attempts int
		wrong    int
	}
	byQuestion := make(map[int]*acc)

	for _, r := range s.results {
		if !inRange(r.CompletedAt, since, until) || len(r.Details) == 0 {
			continue
		}

		var details []detail
		if err := json.Unmarshal(r.Details, &details); err != nil {
			continue
		}

		for _, d := range details {
			a, ok := byQuestion[d.QuestionID]
			if !ok {
				a = &acc{text: d.QuestionText}
				byQuestion[d.QuestionID] = a
			}
			a.attempts++
			if !d.IsCorrect {
				a.wrong++
			}
		}
	}

	out := make([]models.DifficultQuestion, 0, len(byQuestion))
	for id, a := range byQuestion {
		out = append(out, models.DifficultQuestion{
			QuestionID: id,
			Text:       a.text,
			Attempts:   a.attempts,
			WrongRate:  float64(a.wrong) / float64(a.attempts) * 100,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].WrongRate != out[j].WrongRate {
			return out[i].WrongRate > out[j].WrongRate
		}
		return out[i].Attempts > out[j].Attempts
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *MemoryStorage) SaveSnapshot(_ context.Context, snap *models.SavedQuizModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *snap
	if stored.SavedAt.IsZero() {
		stored.SavedAt = time.Now()
	}
	s.snapshots[snap.QuizID] = &stored

	return nil
}

func (s *MemoryStorage) ListSnapshots(_ context.Context, userID int64) ([]models.SavedQuizModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SavedQuizModel
	for _, snap := range s.snapshots {
		if snap.UserID == userID {
			out = append(out, *snap)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (s *MemoryStorage) GetSnapshot(_ context.Context, quizID string) (*models.SavedQuizModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[quizID]
	if !ok {
		return nil, fmt.Errorf("saved quiz %s: %w", quizID, ErrNotFound)
	}

	copied := *snap
	return &copied, nil
}

func (s *MemoryStorage) DeleteSnapshot(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.snapshots, quizID)
	return nil
}

func (s *MemoryStorage) SystemMessage(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text, ok := s.messages[key]
	if !ok {
		return "", fmt.Errorf("system message %s: %w", key, ErrNotFound)
	}

	return text, nil
}

func (s *MemoryStorage) SetSystemMessage(_ context.Context, key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages[key] = text
	return nil
}
