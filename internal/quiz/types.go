package quiz

import (
	"errors"
	"time"

	"github.com/letsssgooo/chembot/internal/content"
)

// AnswerStatus — итог одного вопроса сессии.
type AnswerStatus string

const (
	StatusAnswered   AnswerStatus = "answered"
	StatusSkipped    AnswerStatus = "skipped"
	StatusTimedOut   AnswerStatus = "timed_out"
	StatusSendFailed AnswerStatus = "send_failed"
)

// AnswerRecord — запись журнала ответов по одному вопросу.
// Каждый вопрос завершённой сессии даёт ровно одну запись,
// включая пропуски и таймауты.
type AnswerRecord struct {
	QuestionID        int          `json:"question_id"`
	QuestionText      string       `json:"question_text"`
	ChosenOptionID    string       `json:"chosen_option_id,omitempty"`
	ChosenOptionText  string       `json:"chosen_option_text,omitempty"`
	CorrectOptionID   string       `json:"correct_option_id"`
	CorrectOptionText string       `json:"correct_option_text"`
	IsCorrect         bool         `json:"is_correct"`
	TimeTaken         float64      `json:"time_taken"`
	Status            AnswerStatus `json:"status"`
}

// Session — одна попытка прохождения квиза одним пользователем.
// Экземпляр принадлежит Manager и живёт от старта до результатов
// либо отмены.
type Session struct {
	ID        string
	UserID    int64
	ChatID    int64
	Name      string
	QuizType  string
	ScopeID   int
	Questions []content.Question

	Index     int
	Score     int
	Answers   []AnswerRecord
	StartedAt time.Time

	// QuestionStartedAt выставляется при взведении таймера вопроса.
	QuestionStartedAt time.Time

	Resumable bool

	active bool
	timer  *time.Timer
}

// Total возвращает число вопросов сессии.
func (s *Session) Total() int {
	return len(s.Questions)
}

// Current возвращает текущий вопрос сессии.
func (s *Session) Current() *content.Question {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return nil
	}

	return &s.Questions[s.Index]
}

// Results — итог завершённой сессии.
type Results struct {
	SessionID  string
	UserID     int64
	Name       string
	QuizType   string
	ScopeID    int
	Total      int
	Correct    int
	Wrong      int
	Skipped    int
	TimedOut   int
	Percentage float64
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Answers    []AnswerRecord
}

// Advance — результат очередного шага сессии: либо следующий вопрос,
// либо итоговые результаты.
type Advance struct {
	Done     bool
	Index    int
	Question *content.Question
	Results  *Results
}

// Ошибки движка квизов
var (
	ErrNoSession   = errors.New("no active quiz session")
	ErrStaleAction = errors.New("stale quiz action")
	ErrNoQuestions = errors.New("quiz needs at least one question")
)

// TimeoutFunc вызывается из таймера при истечении времени на вопрос.
// Обработчик обязан передать событие в Manager.Timeout, где стоит
// защита от устаревших срабатываний.
type TimeoutFunc func(userID int64, sessionID string, index int)
