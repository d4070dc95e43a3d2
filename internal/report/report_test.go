package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/letsssgooo/chembot/internal/domain/models"
	"github.com/letsssgooo/chembot/internal/storage"
)

func TestNextRun(t *testing.T) {
	// Среда 12:00 — ближайшая пятница на этой неделе.
	wednesday := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	next := nextRun(wednesday)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.Equal(t, reportHour, next.Hour())
	assert.Equal(t, 28, next.Day())

	// Пятница после срабатывания — следующая неделя.
	lateFriday := time.Date(2026, 8, 28, 20, 0, 0, 0, time.UTC)
	next = nextRun(lateFriday)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.Equal(t, 4, next.Day())

	// Ровно в момент запуска — тоже следующая неделя.
	exactly := time.Date(2026, 8, 28, reportHour, 0, 0, 0, time.UTC)
	assert.Equal(t, 4, nextRun(exactly).Day())
}

func seedStorage(t *testing.T) *storage.MemoryStorage {
	t.Helper()

	ctx := context.Background()
	st := storage.NewMemoryStorage()
	now := time.Now()

	require.NoError(t, st.UpsertUser(ctx, &models.UserModel{UserID: 1}))
	require.NoError(t, st.SaveProfile(ctx, 1, "أحمد العلي", "a@example.com", "0501234567", "secondary_2"))

	details, err := json.Marshal([]map[string]interface{}{
		{"question_id": 7, "question_text": "صعب", "is_correct": false},
		{"question_id": 8, "question_text": "سهل", "is_correct": true},
	})
	require.NoError(t, err)

	require.NoError(t, st.SaveResult(ctx, &models.QuizResultModel{
		UserID:          1,
		QuizType:        "unit",
		QuizScopeID:     3,
		TotalQuestions:  2,
		CorrectCount:    1,
		WrongCount:      1,
		ScorePercentage: 50,
		StartTime:       now.Add(-10 * time.Minute),
		EndTime:         now.Add(-5 * time.Minute),
		Details:         details,
		CompletedAt:     now.Add(-5 * time.Minute),
	}))

	return st
}

func TestGenerate_BuildsWorkbook(t *testing.T) {
	st := seedStorage(t)
	service := New(st, nil)

	until := time.Now()
	fileName, data, err := service.Generate(context.Background(), until.AddDate(0, 0, -7), until)
	require.NoError(t, err)

	assert.Contains(t, fileName, "weekly_report_")
	assert.Contains(t, fileName, ".xlsx")
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, sheetSummary)
	assert.Contains(t, sheets, sheetUserProgress)
	assert.Contains(t, sheets, sheetGrades)
	assert.Contains(t, sheets, sheetDifficult)
	assert.Contains(t, sheets, sheetRecommendations)
	assert.NotContains(t, sheets, "Sheet1")

	rows, err := f.GetRows(sheetUserProgress)
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	assert.Equal(t, "أحمد العلي", rows[1][0])
}

func TestEmail_NoMailerIsNoop(t *testing.T) {
	service := New(storage.NewMemoryStorage(), nil)
	assert.NoError(t, service.Email("report.xlsx", []byte("data")))
}
