package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/chembot/internal/content"
)

func testQuestions(n int) []content.Question {
	questions := make([]content.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, content.Question{
			ID:   i + 1,
			Text: "question",
			Options: []content.Option{
				{ID: "a", Text: "right", IsCorrect: true},
				{ID: "b", Text: "wrong"},
			},
		})
	}

	return questions
}

// startSession запускает сессию без лимита времени на вопрос.
func startSession(t *testing.T, n int) (*Manager, *Session) {
	t.Helper()

	manager := NewManager(0)
	session, err := manager.Start(1, 10, "test", "unit", 3, testQuestions(n), true)
	require.NoError(t, err)

	return manager, session
}

func TestStart_NoQuestions(t *testing.T) {
	manager := NewManager(0)

	_, err := manager.Start(1, 10, "test", "unit", 3, nil, false)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestStart_SupersedesActiveSession(t *testing.T) {
	manager, first := startSession(t, 3)

	second, err := manager.Start(1, 10, "test", "unit", 3, testQuestions(3), true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// Действия по старой сессии больше не принимаются.
	_, _, err = manager.Answer(1, first.ID, 0, "a")
	assert.Error(t, err)

	active, ok := manager.Active(1)
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
}

func TestAnswer_CorrectIncrementsScore(t *testing.T) {
	manager, session := startSession(t, 2)

	record, advance, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	assert.True(t, record.IsCorrect)
	assert.Equal(t, StatusAnswered, record.Status)
	assert.Equal(t, "right", record.ChosenOptionText)
	assert.Equal(t, "a", record.CorrectOptionID)
	assert.False(t, advance.Done)
	assert.Equal(t, 1, advance.Index)
	assert.Equal(t, 1, session.Score)
}

func TestAnswer_UnknownOptionCountsAsWrong(t *testing.T) {
	manager, session := startSession(t, 1)

	record, advance, err := manager.Answer(1, session.ID, 0, "zzz")
	require.NoError(t, err)

	assert.False(t, record.IsCorrect)
	assert.Equal(t, "غير معروف", record.ChosenOptionText)
	require.True(t, advance.Done)
	assert.Equal(t, 0, advance.Results.Correct)
	assert.Equal(t, 1, advance.Results.Wrong)
}

func TestAnswer_StaleIndexRejected(t *testing.T) {
	manager, session := startSession(t, 3)

	_, _, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	// Повторное нажатие кнопки уже отвеченного вопроса.
	_, _, err = manager.Answer(1, session.ID, 0, "b")
	assert.ErrorIs(t, err, ErrStaleAction)

	// Счёт и журнал не изменились.
	assert.Equal(t, 1, session.Score)
	assert.Len(t, session.Answers, 1)
}

func TestAnswer_WrongSessionIDRejected(t *testing.T) {
	manager, _ := startSession(t, 3)

	_, _, err := manager.Answer(1, "other-session", 0, "a")
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestTimeout_AfterAnswerIsNoop(t *testing.T) {
	manager, session := startSession(t, 2)

	_, _, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	// Опоздавший таймер первого вопроса.
	_, ok := manager.Timeout(1, session.ID, 0)
	assert.False(t, ok)
	assert.Len(t, session.Answers, 1)
	assert.Equal(t, 1, session.Score)
}

func TestTimeout_RecordsTimedOutAnswer(t *testing.T) {
	manager, session := startSession(t, 2)

	advance, ok := manager.Timeout(1, session.ID, 0)
	require.True(t, ok)

	assert.False(t, advance.Done)
	require.Len(t, session.Answers, 1)
	assert.Equal(t, StatusTimedOut, session.Answers[0].Status)
	assert.False(t, session.Answers[0].IsCorrect)
	assert.Equal(t, "a", session.Answers[0].CorrectOptionID)
}

func TestTimer_FiresHandler(t *testing.T) {
	manager := NewManager(20 * time.Millisecond)

	fired := make(chan struct{})
	manager.SetTimeoutHandler(func(userID int64, sessionID string, index int) {
		if _, ok := manager.Timeout(userID, sessionID, index); ok {
			close(fired)
		}
	})

	session, err := manager.Start(1, 10, "test", "unit", 3, testQuestions(1), false)
	require.NoError(t, err)

	manager.ArmTimer(1, session.ID, 0)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("question timer did not fire")
	}
}

func TestTimer_StoppedByAnswer(t *testing.T) {
	manager := NewManager(50 * time.Millisecond)

	fired := make(chan struct{}, 1)
	manager.SetTimeoutHandler(func(userID int64, sessionID string, index int) {
		if _, ok := manager.Timeout(userID, sessionID, index); ok {
			fired <- struct{}{}
		}
	})

	session, err := manager.Start(1, 10, "test", "unit", 3, testQuestions(2), false)
	require.NoError(t, err)

	manager.ArmTimer(1, session.ID, 0)

	_, _, err = manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	select {
	case <-fired:
		t.Fatal("timer fired after the question was answered")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestQuiz_FullRun(t *testing.T) {
	manager, session := startSession(t, 5)

	// 3 правильных, 1 неправильный, 1 пропуск — журнал полный.
	for i := 0; i < 3; i++ {
		_, _, err := manager.Answer(1, session.ID, i, "a")
		require.NoError(t, err)
	}

	_, _, err := manager.Answer(1, session.ID, 3, "b")
	require.NoError(t, err)

	advance, err := manager.Skip(1, session.ID, 4)
	require.NoError(t, err)
	require.True(t, advance.Done)

	results := advance.Results
	require.NotNil(t, results)
	assert.Equal(t, 5, results.Total)
	assert.Equal(t, 3, results.Correct)
	assert.Equal(t, 1, results.Wrong)
	assert.Equal(t, 1, results.Skipped)
	assert.InDelta(t, 60.0, results.Percentage, 0.001)
	assert.Len(t, results.Answers, 5)

	// Сессия снята с учёта.
	_, ok := manager.Active(1)
	assert.False(t, ok)
}

func TestQuiz_MixedOutcomes(t *testing.T) {
	manager, session := startSession(t, 5)

	// 3 правильных, 1 пропуск, 1 таймаут — 60% и полный журнал.
	for i := 0; i < 3; i++ {
		_, _, err := manager.Answer(1, session.ID, i, "a")
		require.NoError(t, err)
	}

	_, err := manager.Skip(1, session.ID, 3)
	require.NoError(t, err)

	advance, ok := manager.Timeout(1, session.ID, 4)
	require.True(t, ok)
	require.True(t, advance.Done)

	results := advance.Results
	assert.Equal(t, 3, results.Correct)
	assert.Equal(t, 1, results.Skipped)
	assert.Equal(t, 1, results.TimedOut)
	assert.InDelta(t, 60.0, results.Percentage, 0.001)
	require.Len(t, results.Answers, 5)

	statuses := map[AnswerStatus]int{}
	for _, record := range results.Answers {
		statuses[record.Status]++
	}
	assert.Equal(t, 3, statuses[StatusAnswered])
	assert.Equal(t, 1, statuses[StatusSkipped])
	assert.Equal(t, 1, statuses[StatusTimedOut])
}

func TestEnd_BackfillsUnansweredAsSkipped(t *testing.T) {
	manager, session := startSession(t, 5)

	_, _, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	results, err := manager.End(1, session.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, results.Total)
	assert.Equal(t, 1, results.Correct)
	assert.Equal(t, 4, results.Skipped)
	require.Len(t, results.Answers, 5)
	for _, record := range results.Answers[1:] {
		assert.Equal(t, StatusSkipped, record.Status)
	}
	assert.InDelta(t, 20.0, results.Percentage, 0.001)
}

func TestEnd_UnknownSession(t *testing.T) {
	manager, _ := startSession(t, 2)

	_, err := manager.End(1, "other-session")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSuspend_OnlyResumable(t *testing.T) {
	manager := NewManager(0)
	session, err := manager.Start(1, 10, "test", "unit", 3, testQuestions(2), false)
	require.NoError(t, err)

	_, err = manager.Suspend(1, session.ID)
	assert.Error(t, err)
}

func TestSuspend_RemovesSession(t *testing.T) {
	manager, session := startSession(t, 3)

	_, _, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	suspended, err := manager.Suspend(1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, suspended.Index)

	_, ok := manager.Active(1)
	assert.False(t, ok)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	manager, session := startSession(t, 3)

	_, _, err := manager.Answer(1, session.ID, 0, "a")
	require.NoError(t, err)

	suspended, err := manager.Suspend(1, session.ID)
	require.NoError(t, err)

	data, err := suspended.Snapshot()
	require.NoError(t, err)

	restored, err := RestoreSnapshot(data)
	require.NoError(t, err)

	assert.Equal(t, suspended.ID, restored.ID)
	assert.Equal(t, suspended.UserID, restored.UserID)
	assert.Equal(t, 1, restored.Index)
	assert.Equal(t, 1, restored.Score)
	assert.Len(t, restored.Questions, 3)
	require.Len(t, restored.Answers, 1)
	assert.True(t, restored.Answers[0].IsCorrect)

	// Восстановленная сессия продолжается со второго вопроса.
	require.NoError(t, manager.Restore(restored))

	_, advance, err := manager.Answer(1, restored.ID, 1, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, advance.Index)
}

func TestRestoreSnapshot_Invalid(t *testing.T) {
	_, err := RestoreSnapshot([]byte(`{broken`))
	assert.Error(t, err)

	_, err = RestoreSnapshot([]byte(`{"id":"x","questions":[]}`))
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestMarkSendFailed_AdvancesSession(t *testing.T) {
	manager, session := startSession(t, 2)

	advance, err := manager.MarkSendFailed(1, session.ID, 0)
	require.NoError(t, err)

	assert.False(t, advance.Done)
	require.Len(t, session.Answers, 1)
	assert.Equal(t, StatusSendFailed, session.Answers[0].Status)
}
