package quiz

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/letsssgooo/chembot/internal/content"
)

// Manager владеет активными сессиями квизов: не больше одной на пользователя.
// Все изменения состояния сессий проходят через мьютекс менеджера, а защита
// от устаревших нажатий и таймеров — сверка (sessionID, index) с текущим
// состоянием сессии.
type Manager struct {
	mu        sync.Mutex
	sessions  map[int64]*Session // ключ — userID
	timeLimit time.Duration
	onTimeout TimeoutFunc
}

// NewManager создаёт новый Manager с лимитом времени на вопрос.
func NewManager(timeLimit time.Duration) *Manager {
	return &Manager{
		sessions:  make(map[int64]*Session),
		timeLimit: timeLimit,
	}
}

// SetTimeoutHandler задаёт обработчик истечения времени на вопрос.
func (m *Manager) SetTimeoutHandler(fn TimeoutFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onTimeout = fn
}

// TimeLimit возвращает лимит времени на вопрос.
func (m *Manager) TimeLimit() time.Duration {
	return m.timeLimit
}

// Start создаёт новую сессию для пользователя и возвращает её вместе
// с первым вопросом. Уже активная сессия пользователя отменяется.
func (m *Manager) Start(
	userID int64,
	chatID int64,
	name string,
	quizType string,
	scopeID int,
	questions []content.Question,
	resumable bool,
) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[userID]; ok {
		slog.Info("superseding active quiz session", "user_id", userID, "session_id", old.ID)
		old.deactivate()
	}

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChatID:    chatID,
		Name:      name,
		QuizType:  quizType,
		ScopeID:   scopeID,
		Questions: questions,
		Answers:   make([]AnswerRecord, 0, len(questions)),
		StartedAt: time.Now(),
		Resumable: resumable,
		active:    true,
	}
	m.sessions[userID] = session

	return session, nil
}

// Restore регистрирует восстановленную из снимка сессию как активную.
func (m *Manager) Restore(session *Session) error {
	if session == nil || len(session.Questions) == 0 {
		return ErrNoQuestions
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sessions[session.UserID]; ok {
		old.deactivate()
	}

	session.active = true
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	m.sessions[session.UserID] = session

	return nil
}

// Active возвращает активную сессию пользователя.
func (m *Manager) Active(userID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	return session, ok
}

// ArmTimer взводит таймер текущего вопроса. Вызывается после того,
// как вопрос отправлен в чат. Срабатывание уходит в обработчик,
// заданный через SetTimeoutHandler.
func (m *Manager) ArmTimer(userID int64, sessionID string, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok || session.ID != sessionID || session.Index != index {
		return
	}

	session.stopTimer()
	session.QuestionStartedAt = time.Now()

	if m.timeLimit <= 0 || m.onTimeout == nil {
		return
	}

	fn := m.onTimeout
	session.timer = time.AfterFunc(m.timeLimit, func() {
		fn(userID, sessionID, index)
	})
}

// Answer регистрирует ответ пользователя на вопрос index сессии sessionID.
// Несовпадение (sessionID, index) с текущим состоянием — устаревшее нажатие,
// возвращается ErrStaleAction и ничего не меняется. Неизвестный optionID
// записывается как неправильный ответ.
func (m *Manager) Answer(userID int64, sessionID string, index int, optionID string) (AnswerRecord, Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentFor(userID, sessionID, index)
	if err != nil {
		return AnswerRecord{}, Advance{}, err
	}

	session.stopTimer()

	question := session.Questions[index]
	timeTaken := session.timeTaken()

	record := AnswerRecord{
		QuestionID:       question.ID,
		QuestionText:     question.Text,
		ChosenOptionID:   optionID,
		ChosenOptionText: "غير معروف",
		TimeTaken:        timeTaken,
		Status:           StatusAnswered,
	}
	fillCorrect(&record, question)

	for _, opt := range question.Options {
		if opt.ID == optionID {
			record.ChosenOptionText = optionLogText(opt)
			record.IsCorrect = opt.IsCorrect
			break
		}
	}

	if record.IsCorrect {
		session.Score++
	}

	session.Answers = append(session.Answers, record)

	return record, m.advance(session), nil
}

// Skip пропускает вопрос index сессии sessionID по явному действию пользователя.
func (m *Manager) Skip(userID int64, sessionID string, index int) (Advance, error) {
	return m.resolveWithout(userID, sessionID, index, StatusSkipped)
}

// MarkSendFailed помечает вопрос, который не удалось отправить в чат,
// как автоматический пропуск и продвигает сессию дальше.
func (m *Manager) MarkSendFailed(userID int64, sessionID string, index int) (Advance, error) {
	return m.resolveWithout(userID, sessionID, index, StatusSendFailed)
}

// Timeout регистрирует истечение времени на вопрос. Устаревшее срабатывание
// (вопрос уже отвечен или сессия ушла дальше) — no-op, второго значения false.
func (m *Manager) Timeout(userID int64, sessionID string, index int) (Advance, bool) {
	advance, err := m.resolveWithout(userID, sessionID, index, StatusTimedOut)
	if err != nil {
		slog.Debug("stale question timeout ignored",
			"user_id", userID, "session_id", sessionID, "index", index)
		return Advance{}, false
	}

	return advance, true
}

// End завершает сессию досрочно. Неотвеченные вопросы добиваются в журнал
// как пропущенные, чтобы у каждого вопроса была ровно одна запись.
func (m *Manager) End(userID int64, sessionID string) (*Results, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok || !session.active || session.ID != sessionID {
		return nil, ErrNoSession
	}

	session.stopTimer()

	for session.Index < session.Total() {
		question := session.Questions[session.Index]
		record := AnswerRecord{
			QuestionID:       question.ID,
			QuestionText:     question.Text,
			ChosenOptionText: "تم إنهاء الاختبار",
			Status:           StatusSkipped,
		}
		fillCorrect(&record, question)
		session.Answers = append(session.Answers, record)
		session.Index++
	}

	results := session.results()
	session.deactivate()
	delete(m.sessions, userID)

	return results, nil
}

// Suspend снимает сессию с учёта для сохранения и продолжения позже.
// Таймер останавливается, сессия перестаёт быть активной.
func (m *Manager) Suspend(userID int64, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok || session.ID != sessionID {
		return nil, ErrNoSession
	}

	if !session.Resumable {
		return nil, fmt.Errorf("session %s is not resumable", sessionID)
	}

	session.stopTimer()
	session.active = false
	delete(m.sessions, userID)

	return session, nil
}

// Cancel убирает активную сессию пользователя без подсчёта результатов.
func (m *Manager) Cancel(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[userID]; ok {
		session.deactivate()
		delete(m.sessions, userID)
	}
}

// resolveWithout закрывает текущий вопрос записью без выбранного варианта
// (пропуск, таймаут, ошибка отправки) и продвигает сессию.
func (m *Manager) resolveWithout(userID int64, sessionID string, index int, status AnswerStatus) (Advance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.currentFor(userID, sessionID, index)
	if err != nil {
		return Advance{}, err
	}

	session.stopTimer()

	question := session.Questions[index]

	record := AnswerRecord{
		QuestionID:   question.ID,
		QuestionText: question.Text,
		Status:       status,
	}
	fillCorrect(&record, question)

	switch status {
	case StatusTimedOut:
		record.ChosenOptionText = "انتهى الوقت"
		record.TimeTaken = m.timeLimit.Seconds()
	case StatusSkipped:
		record.ChosenOptionText = "تم التخطي"
		record.TimeTaken = session.timeTaken()
	case StatusSendFailed:
		record.ChosenOptionText = "تعذر إرسال السؤال"
	}

	session.Answers = append(session.Answers, record)

	return m.advance(session), nil
}

// currentFor возвращает сессию, если (sessionID, index) совпадают с её
// текущим состоянием. Любое несовпадение — устаревшее действие.
func (m *Manager) currentFor(userID int64, sessionID string, index int) (*Session, error) {
	session, ok := m.sessions[userID]
	if !ok || !session.active {
		return nil, ErrNoSession
	}

	if session.ID != sessionID || session.Index != index {
		return nil, fmt.Errorf("%w: session %s index %d, current %d",
			ErrStaleAction, sessionID, index, session.Index)
	}

	return session, nil
}

// advance переводит сессию к следующему вопросу либо завершает её.
// Вызывается под мьютексом.
func (m *Manager) advance(session *Session) Advance {
	session.Index++

	if session.Index < session.Total() {
		return Advance{
			Index:    session.Index,
			Question: &session.Questions[session.Index],
		}
	}

	results := session.results()
	session.deactivate()
	delete(m.sessions, session.UserID)

	return Advance{Done: true, Index: session.Index, Results: results}
}

func (s *Session) timeTaken() float64 {
	if s.QuestionStartedAt.IsZero() {
		return 0
	}

	return math.Round(time.Since(s.QuestionStartedAt).Seconds()*100) / 100
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) deactivate() {
	s.stopTimer()
	s.active = false
}

// results считает итог сессии по журналу ответов.
func (s *Session) results() *Results {
	finished := time.Now()

	results := &Results{
		SessionID:  s.ID,
		UserID:     s.UserID,
		Name:       s.Name,
		QuizType:   s.QuizType,
		ScopeID:    s.ScopeID,
		Total:      s.Total(),
		StartedAt:  s.StartedAt,
		FinishedAt: finished,
		Duration:   finished.Sub(s.StartedAt),
		Answers:    s.Answers,
	}

	for _, record := range s.Answers {
		switch {
		case record.IsCorrect:
			results.Correct++
		case record.Status == StatusTimedOut:
			results.TimedOut++
		case record.Status == StatusAnswered:
			results.Wrong++
		default:
			results.Skipped++
		}
	}

	if results.Total > 0 {
		results.Percentage = math.Round(float64(results.Correct)/float64(results.Total)*10000) / 100
	}

	return results
}

func fillCorrect(record *AnswerRecord, question content.Question) {
	correct := question.CorrectOption()
	record.CorrectOptionID = correct.ID
	record.CorrectOptionText = optionLogText(correct)
}

func optionLogText(opt content.Option) string {
	if opt.Text != "" {
		return opt.Text
	}

	if opt.ImageURL != "" {
		return "صورة"
	}

	return ""
}
