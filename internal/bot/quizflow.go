package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/content"
	"github.com/letsssgooo/chembot/internal/domain/models"
	"github.com/letsssgooo/chembot/internal/quiz"
)

const (
	minQuestionCount = 1
	maxQuestionCount = 50
)

// Буквенные метки вариантов ответа с картинками.
var optionLetters = []string{"أ", "ب", "ج", "د"}

// sendQuizTypeMenu показывает выбор типа квиза.
func (b *Bot) sendQuizTypeMenu(chatID int64) error {
	b.states.reset(chatID, StateQuizType)

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "📖 اختبار وحدة", CallbackData: "qt_unit"}},
		{{Text: "📚 اختبار شامل لمقرر", CallbackData: "qt_course"}},
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	_, err := b.client.SendMessage(chatID, msgQuizTypeMenu, &client.SendOptions{ReplyMarkup: markup})
	return err
}

func (b *Bot) handleQuizTypeSelection(ctx context.Context, chatID int64, state *chatState, quizType string) error {
	if state.State != StateQuizType {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	if quizType != "unit" && quizType != "course" {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	state.QuizType = quizType
	state.State = StateQuizScope

	courses, err := b.content.Courses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}
	if len(courses) == 0 {
		return b.sendPlainErr(chatID, msgNoQuestions)
	}

	rows := make([][]client.InlineKeyboardButton, 0, len(courses)+1)
	for _, course := range courses {
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: course.Name, CallbackData: "course_" + strconv.Itoa(course.ID)},
		})
	}
	rows = append(rows, []client.InlineKeyboardButton{
		{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"},
	})

	_, err = b.client.SendMessage(chatID, msgQuizScopeCourse, &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

func (b *Bot) handleCourseSelection(ctx context.Context, chatID int64, state *chatState, raw string) error {
	if state.State != StateQuizScope {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	courseID, ok := parseID(raw)
	if !ok {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	courseName := b.courseName(ctx, courseID)

	// Квиз по целому курсу: область выбрана, остался размер.
	if state.QuizType == "course" {
		state.ScopeID = courseID
		state.ScopeName = courseName
		state.State = StateQuizCount
		return b.sendPlainErr(chatID, msgAskQuestionCount)
	}

	state.CourseID = courseID

	units, err := b.content.Units(ctx, courseID)
	if err != nil {
		return fmt.Errorf("failed to list units of course %d: %w", courseID, err)
	}
	if len(units) == 0 {
		return b.sendPlainErr(chatID, msgNoQuestions)
	}

	rows := make([][]client.InlineKeyboardButton, 0, len(units)+1)
	for _, unit := range units {
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: unit.Name, CallbackData: "unit_" + strconv.Itoa(unit.ID)},
		})
	}
	rows = append(rows, []client.InlineKeyboardButton{
		{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"},
	})

	_, err = b.client.SendMessage(chatID, msgQuizScopeUnit, &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

func (b *Bot) handleUnitSelection(ctx context.Context, chatID int64, state *chatState, raw string) error {
	if state.State != StateQuizScope || state.QuizType != "unit" {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	unitID, ok := parseID(raw)
	if !ok {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	state.ScopeID = unitID
	state.ScopeName = b.unitName(ctx, state.CourseID, unitID)
	state.State = StateQuizCount

	return b.sendPlainErr(chatID, msgAskQuestionCount)
}

// courseName возвращает название курса. Недоступный API не срывает
// подготовку квиза: возвращается запасное название.
func (b *Bot) courseName(ctx context.Context, courseID int) string {
	courses, err := b.content.Courses(ctx)
	if err == nil {
		for _, course := range courses {
			if course.ID == courseID {
				return course.Name
			}
		}
	}

	return fmt.Sprintf("مقرر %d", courseID)
}

func (b *Bot) unitName(ctx context.Context, courseID, unitID int) string {
	units, err := b.content.Units(ctx, courseID)
	if err == nil {
		for _, unit := range units {
			if unit.ID == unitID {
				return unit.Name
			}
		}
	}

	return fmt.Sprintf("وحدة %d", unitID)
}

// handleQuestionCountInput обрабатывает ввод числа вопросов и запускает квиз.
func (b *Bot) handleQuestionCountInput(ctx context.Context, msg *client.Message, state *chatState) error {
	count, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || count < minQuestionCount || count > maxQuestionCount {
		return b.sendPlainErr(msg.Chat.ID, msgBadQuestionCount)
	}

	questions, err := b.fetchQuestions(ctx, state, count)
	if err != nil {
		slog.Error("failed to fetch quiz questions",
			"quiz_type", state.QuizType, "scope_id", state.ScopeID, "err", err)
		return b.sendPlainErr(msg.Chat.ID, msgTryAgainLater)
	}
	if len(questions) == 0 {
		b.states.reset(msg.Chat.ID, StateMainMenu)
		return b.sendPlainErr(msg.Chat.ID, msgNoQuestions)
	}

	// Новый квиз вытесняет активный, сообщения старого больше не нужны.
	if old, ok := b.engine.Active(msg.From.ID); ok {
		b.forgetQuestionMessages(old.ID)
	}

	session, err := b.engine.Start(
		msg.From.ID, msg.Chat.ID,
		state.ScopeName, state.QuizType, state.ScopeID,
		questions, true,
	)
	if err != nil {
		return err
	}

	b.states.reset(msg.Chat.ID, StateTakingQuiz)

	b.sendQuestion(ctx, session.UserID, session.ChatID, session.ID, session.Index,
		session.Current(), session.Total(), session.Resumable)
	return nil
}

// fetchQuestions получает вопросы для выбранной области. Для квиза по
// целому курсу вопросы собираются по всем его разделам и перемешиваются.
func (b *Bot) fetchQuestions(ctx context.Context, state *chatState, count int) ([]content.Question, error) {
	if state.QuizType == "unit" {
		return b.content.Questions(ctx, state.ScopeID, count)
	}

	units, err := b.content.Units(ctx, state.ScopeID)
	if err != nil {
		return nil, err
	}

	var pool []content.Question
	for _, unit := range units {
		questions, err := b.content.Questions(ctx, unit.ID, count)
		if err != nil {
			slog.Warn("skipping unit questions", "unit_id", unit.ID, "err", err)
			continue
		}
		pool = append(pool, questions...)
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if len(pool) > count {
		pool = pool[:count]
	}

	return pool, nil
}

// sendQuestion отправляет вопрос index в чат и взводит его таймер.
// Вопрос, который не удалось отправить, закрывается как автопропуск,
// и сессия продолжается со следующего.
func (b *Bot) sendQuestion(
	ctx context.Context,
	userID, chatID int64,
	sessionID string,
	index int,
	question *content.Question,
	total int,
	resumable bool,
) {
	if question == nil {
		return
	}

	sent, err := b.deliverQuestion(chatID, sessionID, index, question, total, resumable)
	if err != nil {
		slog.Error("failed to send question, auto skipping",
			"session_id", sessionID, "index", index, "err", err)

		advance, skipErr := b.engine.MarkSendFailed(userID, sessionID, index)
		if skipErr != nil {
			slog.Warn("failed to auto skip question", "session_id", sessionID, "err", skipErr)
			return
		}

		b.proceed(ctx, userID, chatID, sessionID, advance, resumable)
		return
	}

	b.rememberQuestionMessages(sessionID, sent)
	b.engine.ArmTimer(userID, sessionID, index)
}

// deliverQuestion формирует и отправляет сообщение вопроса с inline
// клавиатурой. Варианты с картинками отправляются отдельными фото
// с буквенными метками, кнопки несут те же буквы.
func (b *Bot) deliverQuestion(
	chatID int64,
	sessionID string,
	index int,
	question *content.Question,
	total int,
	resumable bool,
) (*questionMessages, error) {
	header := fmt.Sprintf("السؤال %d من %d (%d ث ⏱)\n\n%s",
		index+1, total, int(b.engine.TimeLimit().Seconds()), subscriptFormulas(question.Text))

	sent := &questionMessages{ChatID: chatID}

	var rows [][]client.InlineKeyboardButton
	imageOptions := false

	for i, opt := range question.Options {
		label := subscriptFormulas(opt.Text)
		if opt.HasImage() {
			imageOptions = true
			label = optionLetters[i%len(optionLetters)]
		}
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: label, CallbackData: answerCallbackData(sessionID, index, opt.ID)},
		})
	}

	controls := []client.InlineKeyboardButton{
		{Text: "⏭️ تخطي", CallbackData: actionCallbackData(cbSkip, sessionID, index)},
		{Text: "🛑 إنهاء", CallbackData: actionCallbackData(cbEnd, sessionID, index)},
	}
	if resumable {
		controls = append(controls, client.InlineKeyboardButton{
			Text: "💾 حفظ", CallbackData: actionCallbackData(cbSave, sessionID, index),
		})
	}
	rows = append(rows, controls)

	if imageOptions {
		for i, opt := range question.Options {
			if !opt.HasImage() {
				continue
			}
			photo, err := b.client.SendPhoto(chatID, opt.ImageURL,
				"الخيار "+optionLetters[i%len(optionLetters)], nil)
			if err != nil {
				return nil, fmt.Errorf("failed to send option image: %w", err)
			}
			sent.OptionMsgIDs = append(sent.OptionMsgIDs, photo.MessageID)
		}
	}

	opts := &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	}

	var (
		msg *client.Message
		err error
	)

	if question.ImageURL != "" {
		msg, err = b.client.SendPhoto(chatID, question.ImageURL, header, opts)
		sent.HasImage = true
	} else {
		msg, err = b.client.SendMessage(chatID, header, opts)
	}
	if err != nil {
		return nil, err
	}

	sent.MessageID = msg.MessageID
	return sent, nil
}

// handleQuizCallback обрабатывает кнопки активного квиза.
func (b *Bot) handleQuizCallback(ctx context.Context, cb *client.CallbackQuery) error {
	parsed, err := parseQuizCallback(cb.Data)
	if err != nil {
		_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
		return nil
	}

	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	session, ok := b.engine.Active(userID)
	if !ok {
		_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
		return nil
	}
	resumable := session.Resumable

	switch parsed.Action {
	case cbAnswer:
		record, advance, err := b.engine.Answer(userID, parsed.SessionID, parsed.Index, parsed.OptionID)
		if err != nil {
			_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
			return nil
		}

		feedback := "❌ إجابة خاطئة"
		if record.IsCorrect {
			feedback = "✅ إجابة صحيحة"
		}
		_ = b.client.AnswerCallback(cb.ID, feedback)

		b.closeQuestionMessage(parsed.SessionID, b.answerVerdict(record))
		b.proceed(ctx, userID, chatID, parsed.SessionID, advance, resumable)
		return nil

	case cbSkip:
		advance, err := b.engine.Skip(userID, parsed.SessionID, parsed.Index)
		if err != nil {
			_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
			return nil
		}

		_ = b.client.AnswerCallback(cb.ID, msgQuestionSkipped)
		b.closeQuestionMessage(parsed.SessionID, msgQuestionSkipped)
		b.proceed(ctx, userID, chatID, parsed.SessionID, advance, resumable)
		return nil

	case cbEnd:
		results, err := b.engine.End(userID, parsed.SessionID)
		if err != nil {
			_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
			return nil
		}

		_ = b.client.AnswerCallback(cb.ID, msgQuizEnded)
		b.closeQuestionMessage(parsed.SessionID, msgQuizEnded)
		b.finishQuiz(ctx, chatID, results)
		return nil

	case cbSave:
		return b.handleSaveQuiz(ctx, cb, parsed)
	}

	return nil
}

// answerVerdict — краткий вердикт для погашенного сообщения вопроса.
func (b *Bot) answerVerdict(record quiz.AnswerRecord) string {
	if record.IsCorrect {
		return "✅ " + msgAnswerAccepted
	}

	return fmt.Sprintf("❌ الإجابة الصحيحة: %s", subscriptFormulas(record.CorrectOptionText))
}

// proceed либо отправляет следующий вопрос, либо показывает результаты.
func (b *Bot) proceed(ctx context.Context, userID, chatID int64, sessionID string, advance quiz.Advance, resumable bool) {
	if advance.Done {
		b.forgetQuestionMessages(sessionID)
		b.finishQuiz(ctx, chatID, advance.Results)
		return
	}

	total := advance.Index + 1
	if session, ok := b.engine.Active(userID); ok && session.ID == sessionID {
		total = session.Total()
	}

	b.sendQuestion(ctx, userID, chatID, sessionID, advance.Index,
		advance.Question, total, resumable)
}

// onQuestionTimeout вызывается таймером вопроса. Устаревшие срабатывания
// движок отбрасывает сам.
func (b *Bot) onQuestionTimeout(userID int64, sessionID string, index int) {
	session, ok := b.engine.Active(userID)
	if !ok {
		return
	}
	chatID := session.ChatID
	resumable := session.Resumable

	advance, ok := b.engine.Timeout(userID, sessionID, index)
	if !ok {
		return
	}

	b.closeQuestionMessage(sessionID, msgTimeUp)
	b.proceed(context.Background(), userID, chatID, sessionID, advance, resumable)
}

// handleSaveQuiz снимает сессию с учёта и сохраняет её снимок в БД.
func (b *Bot) handleSaveQuiz(ctx context.Context, cb *client.CallbackQuery, parsed quizCallback) error {
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	session, err := b.engine.Suspend(userID, parsed.SessionID)
	if err != nil {
		_ = b.client.AnswerCallback(cb.ID, msgStaleButton)
		return nil
	}

	data, err := session.Snapshot()
	if err != nil {
		// Снимок не снялся — возвращаем сессию в работу.
		_ = b.engine.Restore(session)
		return fmt.Errorf("failed to snapshot session %s: %w", session.ID, err)
	}

	snap := &models.SavedQuizModel{
		QuizID:   session.ID,
		UserID:   session.UserID,
		ChatID:   session.ChatID,
		QuizName: session.Name,
		QuizType: session.QuizType,
		ScopeID:  session.ScopeID,
		Snapshot: data,
		SavedAt:  time.Now(),
	}
	if err := b.storage.SaveSnapshot(ctx, snap); err != nil {
		_ = b.engine.Restore(session)
		return fmt.Errorf("failed to save quiz snapshot: %w", err)
	}

	_ = b.client.AnswerCallback(cb.ID, "")
	b.closeQuestionMessage(parsed.SessionID, msgQuizSaved)
	b.forgetQuestionMessages(parsed.SessionID)
	b.states.reset(chatID, StateMainMenu)

	return b.sendMainMenu(ctx, chatID, userID)
}

// sendSavedQuizzes показывает сохранённые квизы пользователя.
func (b *Bot) sendSavedQuizzes(ctx context.Context, chatID, userID int64) error {
	snaps, err := b.storage.ListSnapshots(ctx, userID)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return b.sendPlainErr(chatID, msgNoSavedQuizzes)
	}

	rows := make([][]client.InlineKeyboardButton, 0, len(snaps)+1)
	for _, snap := range snaps {
		label := fmt.Sprintf("▶️ %s (%s)", snap.QuizName, snap.SavedAt.Format("02.01 15:04"))
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: label, CallbackData: "resume_" + snap.QuizID},
		})
	}
	rows = append(rows, []client.InlineKeyboardButton{
		{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"},
	})

	_, err = b.client.SendMessage(chatID, "اختر اختباراً لاستكماله:", &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

// handleResumeQuiz восстанавливает сохранённый квиз и продолжает его
// с первого неотвеченного вопроса.
func (b *Bot) handleResumeQuiz(ctx context.Context, chatID, userID int64, quizID string) error {
	snap, err := b.storage.GetSnapshot(ctx, quizID)
	if err != nil {
		return b.sendPlainErr(chatID, msgNoSavedQuizzes)
	}
	if snap.UserID != userID {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	session, err := quiz.RestoreSnapshot(snap.Snapshot)
	if err != nil {
		slog.Error("failed to restore quiz snapshot", "quiz_id", quizID, "err", err)
		_ = b.storage.DeleteSnapshot(ctx, quizID)
		return b.sendPlainErr(chatID, msgTryAgainLater)
	}

	session.ChatID = chatID
	if err := b.engine.Restore(session); err != nil {
		return err
	}

	if err := b.storage.DeleteSnapshot(ctx, quizID); err != nil {
		slog.Warn("failed to delete quiz snapshot", "quiz_id", quizID, "err", err)
	}

	b.states.reset(chatID, StateTakingQuiz)

	// Снимок мог быть снят после последнего вопроса.
	if session.Index >= session.Total() {
		results, err := b.engine.End(userID, session.ID)
		if err != nil {
			return err
		}
		b.finishQuiz(ctx, chatID, results)
		return nil
	}

	b.sendQuestion(ctx, userID, chatID, session.ID, session.Index,
		session.Current(), session.Total(), session.Resumable)
	return nil
}

// finishQuiz показывает результаты и сохраняет их в БД. Сбой записи
// не скрывает итоги от пользователя.
func (b *Bot) finishQuiz(ctx context.Context, chatID int64, results *quiz.Results) {
	if results == nil {
		return
	}

	b.states.reset(chatID, StateMainMenu)

	if err := b.persistResults(ctx, results); err != nil {
		slog.Error("failed to persist quiz results",
			"session_id", results.SessionID, "user_id", results.UserID, "err", err)
	}

	text := fmt.Sprintf(
		"انتهى الاختبار! 🎉\n\n📊 النتيجة: %d من %d (%.1f%%)\n✅ صحيحة: %d\n❌ خاطئة: %d\n⏭️ متخطاة: %d\n⏰ انتهى وقتها: %d\n🕒 المدة: %s",
		results.Correct, results.Total, results.Percentage,
		results.Correct, results.Wrong, results.Skipped, results.TimedOut,
		formatDuration(results.Duration),
	)

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "🔁 اختبار جديد", CallbackData: "menu_quiz"}},
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	if _, err := b.client.SendMessage(chatID, text, &client.SendOptions{ReplyMarkup: markup}); err != nil {
		slog.Error("failed to send quiz results", "chat_id", chatID, "err", err)
	}
}

// persistResults записывает финализированный результат в хранилище.
func (b *Bot) persistResults(ctx context.Context, results *quiz.Results) error {
	details, err := json.Marshal(results.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answer log: %w", err)
	}

	return b.storage.SaveResult(ctx, &models.QuizResultModel{
		UserID:          results.UserID,
		QuizType:        results.QuizType,
		QuizScopeID:     results.ScopeID,
		TotalQuestions:  results.Total,
		CorrectCount:    results.Correct,
		WrongCount:      results.Wrong,
		SkippedCount:    results.Skipped + results.TimedOut,
		ScorePercentage: results.Percentage,
		StartTime:       results.StartedAt,
		EndTime:         results.FinishedAt,
		Details:         details,
		CompletedAt:     results.FinishedAt,
	})
}

// rememberQuestionMessages запоминает сообщения отправленного вопроса.
func (b *Bot) rememberQuestionMessages(sessionID string, sent *questionMessages) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.questionMsgs[sessionID] = sent
}

func (b *Bot) forgetQuestionMessages(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.questionMsgs, sessionID)
}

// closeQuestionMessage гасит кнопки закрытого вопроса и дописывает вердикт,
// чтобы старые кнопки не провоцировали устаревшие нажатия.
func (b *Bot) closeQuestionMessage(sessionID string, verdict string) {
	b.mu.Lock()
	sent, ok := b.questionMsgs[sessionID]
	if ok {
		delete(b.questionMsgs, sessionID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	for _, msgID := range sent.OptionMsgIDs {
		if err := b.client.DeleteMessage(sent.ChatID, msgID); err != nil {
			slog.Debug("failed to delete option image", "chat_id", sent.ChatID, "err", err)
		}
	}

	var err error
	if sent.HasImage {
		err = b.client.EditMessageCaption(sent.ChatID, sent.MessageID, verdict, nil)
	} else {
		err = b.client.EditMessage(sent.ChatID, sent.MessageID, verdict, nil)
	}
	if err != nil {
		slog.Debug("failed to close question message", "chat_id", sent.ChatID, "err", err)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
