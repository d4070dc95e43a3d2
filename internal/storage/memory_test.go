package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/chembot/internal/domain/models"
)

func newUser(id int64) *models.UserModel {
	return &models.UserModel{
		UserID:    id,
		Username:  "student",
		FirstName: "Ahmed",
	}
}

func TestMemoryStorage_UserLifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	require.NoError(t, st.UpsertUser(ctx, newUser(1)))

	registered, err := st.IsRegistered(ctx, 1)
	require.NoError(t, err)
	assert.False(t, registered)

	require.NoError(t, st.SaveProfile(ctx, 1, "أحمد العلي", "a@example.com", "0501234567", "secondary_2"))

	registered, err = st.IsRegistered(ctx, 1)
	require.NoError(t, err)
	assert.True(t, registered)

	user, err := st.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "أحمد العلي", user.FullName)
	assert.Equal(t, "secondary_2", user.Grade)
	assert.False(t, user.RegisteredAt.IsZero())

	require.NoError(t, st.UpdateProfileField(ctx, 1, FieldEmail, "new@example.com"))

	user, err = st.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	// Повторный upsert обновляет идентификационные поля, но не анкету.
	require.NoError(t, st.UpsertUser(ctx, &models.UserModel{UserID: 1, Username: "renamed"}))

	user, err = st.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Username)
	assert.Equal(t, "أحمد العلي", user.FullName)
	assert.True(t, user.IsRegistered)
}

func TestMemoryStorage_GetUser_NotFound(t *testing.T) {
	st := NewMemoryStorage()

	_, err := st.GetUser(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_ActiveUserIDs_SkipsBlocked(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	require.NoError(t, st.UpsertUser(ctx, newUser(1)))
	require.NoError(t, st.UpsertUser(ctx, newUser(2)))
	require.NoError(t, st.SetBlocked(ctx, 2, true))

	ids, err := st.ActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func saveResult(t *testing.T, st *MemoryStorage, userID int64, percent float64, completedAt time.Time) {
	t.Helper()

	details, err := json.Marshal([]map[string]interface{}{
		{"question_id": 1, "is_correct": percent >= 50},
	})
	require.NoError(t, err)

	require.NoError(t, st.SaveResult(context.Background(), &models.QuizResultModel{
		UserID:          userID,
		QuizType:        "unit",
		QuizScopeID:     3,
		TotalQuestions:  10,
		CorrectCount:    int(percent / 10),
		ScorePercentage: percent,
		StartTime:       completedAt.Add(-5 * time.Minute),
		EndTime:         completedAt,
		Details:         details,
		CompletedAt:     completedAt,
	}))
}

func TestMemoryStorage_ResultsRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	require.NoError(t, st.UpsertUser(ctx, newUser(1)))
	saveResult(t, st, 1, 80, time.Now())
	saveResult(t, st, 1, 60, time.Now())
	saveResult(t, st, 2, 40, time.Now())

	results, err := st.RecentResults(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Свежие результаты идут первыми.
	assert.InDelta(t, 60.0, results[0].ScorePercentage, 0.001)
	assert.InDelta(t, 80.0, results[1].ScorePercentage, 0.001)
	assert.NotZero(t, results[0].ResultID)
	assert.Equal(t, 10, results[0].TotalQuestions)
}

func TestMemoryStorage_RecentResults_Limit(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	for i := 0; i < 5; i++ {
		saveResult(t, st, 1, float64(i*10), time.Now())
	}

	results, err := st.RecentResults(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryStorage_Overview_Window(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	now := time.Now()

	saveResult(t, st, 1, 80, now.Add(-time.Hour))
	saveResult(t, st, 2, 40, now.AddDate(0, 0, -10)) // вне недельного окна

	stats, err := st.Overview(ctx, now.AddDate(0, 0, -7), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 1, stats.TotalQuizzes)
	assert.InDelta(t, 80.0, stats.AverageScore, 0.001)

	all, err := st.Overview(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalQuizzes)
	assert.Equal(t, 2, all.ActiveUsers)
}

func TestMemoryStorage_ScoreDistribution(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	now := time.Now()

	saveResult(t, st, 1, 10, now)
	saveResult(t, st, 1, 55, now)
	saveResult(t, st, 1, 100, now)

	buckets, err := st.ScoreDistribution(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, buckets, 5)

	total := 0
	for _, bucket := range buckets {
		total += bucket.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, buckets[0].Count) // 0-19%
	assert.Equal(t, 1, buckets[2].Count) // 40-59%
	assert.Equal(t, 1, buckets[4].Count) // 80-100%
}

func TestMemoryStorage_Leaderboard(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()
	now := time.Now()

	require.NoError(t, st.UpsertUser(ctx, newUser(1)))
	require.NoError(t, st.UpsertUser(ctx, newUser(2)))
	require.NoError(t, st.SaveProfile(ctx, 1, "طالب أول", "a@example.com", "0501234567", "secondary_1"))
	require.NoError(t, st.SaveProfile(ctx, 2, "طالب ثاني", "b@example.com", "0501234568", "secondary_1"))

	saveResult(t, st, 1, 90, now)
	saveResult(t, st, 1, 70, now)
	saveResult(t, st, 2, 50, now)

	entries, err := st.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.InDelta(t, 80.0, entries[0].AveragePercent, 0.001)
	assert.Equal(t, 2, entries[0].QuizCount)
	assert.Equal(t, int64(2), entries[1].UserID)
}

func TestMemoryStorage_Snapshots(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	snap := &models.SavedQuizModel{
		QuizID:   "q-1",
		UserID:   1,
		ChatID:   10,
		QuizName: "الوحدة الأولى",
		QuizType: "unit",
		ScopeID:  3,
		Snapshot: []byte(`{"id":"q-1"}`),
		SavedAt:  time.Now(),
	}
	require.NoError(t, st.SaveSnapshot(ctx, snap))

	list, err := st.ListSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "q-1", list[0].QuizID)

	got, err := st.GetSnapshot(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, snap.Snapshot, got.Snapshot)

	require.NoError(t, st.DeleteSnapshot(ctx, "q-1"))

	_, err = st.GetSnapshot(ctx, "q-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_SystemMessages(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStorage()

	_, err := st.SystemMessage(ctx, "welcome")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.SetSystemMessage(ctx, "welcome", "أهلاً"))

	text, err := st.SystemMessage(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "أهلاً", text)
}

func TestWindow_Since(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), WindowToday.Since(now))
	assert.Equal(t, now.AddDate(0, 0, -7), WindowWeek.Since(now))
	assert.Equal(t, now.AddDate(0, 0, -30), WindowMonth.Since(now))
	assert.True(t, WindowAll.Since(now).IsZero())
}
