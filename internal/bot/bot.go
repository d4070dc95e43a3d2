package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/letsssgooo/chembot/internal/auth"
	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/content"
	"github.com/letsssgooo/chembot/internal/quiz"
	"github.com/letsssgooo/chembot/internal/report"
	"github.com/letsssgooo/chembot/internal/storage"
)

const pollTimeout = 30 // секунд, long polling

// Bot реализует Telegram бота для химических квизов.
type Bot struct {
	client  client.Client
	engine  *quiz.Manager
	content *content.Client
	storage storage.Storage
	gate    *auth.Gate
	reports *report.Service

	states *stateStore
	offset int

	// Сообщения текущего вопроса по сессиям: нужны, чтобы погасить
	// кнопки после ответа или таймаута.
	mu           sync.Mutex
	questionMsgs map[string]*questionMessages
}

// questionMessages — идентификаторы сообщений отправленного вопроса.
type questionMessages struct {
	ChatID       int64
	MessageID    int
	HasImage     bool
	OptionMsgIDs []int
}

// New создаёт нового бота и подписывает его на таймауты вопросов.
// statePath — файл для сохранения состояний диалогов между
// перезапусками; пустой путь отключает сохранение.
func New(
	cl client.Client,
	engine *quiz.Manager,
	contentClient *content.Client,
	st storage.Storage,
	reports *report.Service,
	statePath string,
) *Bot {
	b := &Bot{
		client:       cl,
		engine:       engine,
		content:      contentClient,
		storage:      st,
		gate:         auth.NewGate(st),
		reports:      reports,
		states:       newStateStoreFromFile(statePath),
		questionMsgs: make(map[string]*questionMessages),
	}

	engine.SetTimeoutHandler(b.onQuestionTimeout)

	return b
}

// Run запускает цикл long polling. Блокируется до отмены ctx.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("bot long polling started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := b.client.GetUpdates(ctx, b.offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("failed to get updates", "err", err)
			continue
		}

		for _, update := range updates {
			b.offset = update.UpdateID + 1
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate обрабатывает одно обновление. Ошибки обработчиков
// логируются и превращаются в общий ответ пользователю: падение
// одного обновления не должно останавливать цикл.
func (b *Bot) HandleUpdate(ctx context.Context, update client.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			slog.Error("callback handling failed",
				"data", update.CallbackQuery.Data, "err", err)
			b.sendPlain(update.CallbackQuery.Message.Chat.ID, msgTryAgainLater)
		}
	case update.Message != nil:
		if err := b.handleMessage(ctx, update.Message); err != nil {
			slog.Error("message handling failed",
				"chat_id", update.Message.Chat.ID, "err", err)
			b.sendPlain(update.Message.Chat.ID, msgTryAgainLater)
		}
	}

	b.states.flush()
}

func (b *Bot) handleMessage(ctx context.Context, msg *client.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	if err := b.gate.EnsureUser(ctx, msg.From); err != nil {
		slog.Warn("failed to upsert user", "user_id", msg.From.ID, "err", err)
	}

	// Заблокированные пользователи игнорируются молча.
	if blocked, err := b.gate.IsBlocked(ctx, msg.From.ID); err == nil && blocked {
		return nil
	}

	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		return b.handleStart(ctx, msg)
	case text == "/cancel":
		b.engine.Cancel(msg.From.ID)
		b.states.reset(msg.Chat.ID, StateMainMenu)
		return b.sendMainMenu(ctx, msg.Chat.ID, msg.From.ID)
	case text == "/admin":
		return b.handleAdminCommand(ctx, msg)
	}

	state := b.states.get(msg.Chat.ID)

	switch state.State {
	case StateRegName, StateRegEmail, StateRegPhone:
		return b.handleRegistrationInput(ctx, msg, state)
	case StateRegGrade:
		// На этом шаге ждём нажатия кнопки, а не текста.
		return b.sendGradeKeyboard(msg.Chat.ID, msgAskGrade)
	case StateRegConfirm:
		return b.sendRegistrationSummary(msg.Chat.ID, state.Profile)
	case StateTakingQuiz:
		return b.sendPlainErr(msg.Chat.ID, msgQuizInProgress)
	case StateEditField:
		return b.handleEditFieldInput(ctx, msg, state)
	case StateQuizCount:
		return b.handleQuestionCountInput(ctx, msg, state)
	case StateBroadcast:
		return b.handleBroadcastInput(ctx, msg, state)
	case StateEditSysMsg:
		return b.handleSysMsgInput(ctx, msg, state)
	case StateBlockUser:
		return b.handleBlockToggleInput(ctx, msg, state)
	default:
		// Свободный текст вне диалога: показываем главное меню.
		return b.handleStart(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *client.Message) error {
	registered, err := b.gate.IsRegistered(ctx, msg.From.ID)
	if err != nil {
		return err
	}

	if !registered {
		b.states.reset(msg.Chat.ID, StateRegName)
		welcome := b.systemMessage(ctx, "welcome", msgWelcome)
		if _, err := b.client.SendMessage(msg.Chat.ID, welcome, nil); err != nil {
			return err
		}
		_, err := b.client.SendMessage(msg.Chat.ID, msgAskName, nil)
		return err
	}

	b.states.reset(msg.Chat.ID, StateMainMenu)
	return b.sendMainMenu(ctx, msg.Chat.ID, msg.From.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *client.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	if blocked, err := b.gate.IsBlocked(ctx, userID); err == nil && blocked {
		return nil
	}

	// Кнопки активного квиза обрабатываются отдельно: там своя защита
	// от устаревших нажатий.
	if isQuizCallback(data) {
		return b.handleQuizCallback(ctx, cb)
	}

	_ = b.client.AnswerCallback(cb.ID, "")

	state := b.states.get(chatID)

	switch {
	case data == "main_menu":
		b.states.reset(chatID, StateMainMenu)
		return b.sendMainMenu(ctx, chatID, userID)

	case strings.HasPrefix(data, "menu_"):
		return b.handleMenuSelection(ctx, chatID, userID, strings.TrimPrefix(data, "menu_"))

	case strings.HasPrefix(data, "grade_"):
		return b.handleGradeSelection(ctx, chatID, userID, state, strings.TrimPrefix(data, "grade_"))

	case data == "confirm_registration":
		return b.handleRegistrationConfirm(ctx, chatID, userID, state)

	case strings.HasPrefix(data, "edit_"):
		return b.handleEditSelection(ctx, chatID, state, strings.TrimPrefix(data, "edit_"))

	case strings.HasPrefix(data, "qt_"):
		return b.handleQuizTypeSelection(ctx, chatID, state, strings.TrimPrefix(data, "qt_"))

	case strings.HasPrefix(data, "course_"):
		return b.handleCourseSelection(ctx, chatID, state, strings.TrimPrefix(data, "course_"))

	case strings.HasPrefix(data, "unit_"):
		return b.handleUnitSelection(ctx, chatID, state, strings.TrimPrefix(data, "unit_"))

	case strings.HasPrefix(data, "resume_"):
		return b.handleResumeQuiz(ctx, chatID, userID, strings.TrimPrefix(data, "resume_"))

	case strings.HasPrefix(data, "adm_"):
		return b.handleAdminCallback(ctx, chatID, userID, state, strings.TrimPrefix(data, "adm_"))
	}

	slog.Debug("unknown callback ignored", "data", data)
	return nil
}

// sendMainMenu показывает главное меню с учётом прав пользователя.
func (b *Bot) sendMainMenu(ctx context.Context, chatID, userID int64) error {
	rows := [][]client.InlineKeyboardButton{
		{{Text: "📝 بدء اختبار", CallbackData: "menu_quiz"}},
		{{Text: "📚 الاختبارات المحفوظة", CallbackData: "menu_saved"}},
		{
			{Text: "📊 إحصائياتي", CallbackData: "menu_stats"},
			{Text: "🏆 المتصدرون", CallbackData: "menu_leaderboard"},
		},
		{{Text: "👤 ملفي الشخصي", CallbackData: "menu_profile"}},
	}

	if isAdmin, err := b.gate.IsAdmin(ctx, userID); err == nil && isAdmin {
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: "🛠 لوحة المشرف", CallbackData: "menu_admin"},
		})
	}

	_, err := b.client.SendMessage(chatID, msgMainMenu, &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

func (b *Bot) handleMenuSelection(ctx context.Context, chatID, userID int64, item string) error {
	registered, err := b.gate.IsRegistered(ctx, userID)
	if err != nil {
		return err
	}
	if !registered {
		return b.sendPlainErr(chatID, msgNotRegistered)
	}

	switch item {
	case "quiz":
		return b.sendQuizTypeMenu(chatID)
	case "saved":
		return b.sendSavedQuizzes(ctx, chatID, userID)
	case "stats":
		return b.sendPersonalStats(ctx, chatID, userID)
	case "leaderboard":
		return b.sendLeaderboard(ctx, chatID)
	case "profile":
		return b.sendProfile(ctx, chatID, userID)
	case "admin":
		return b.sendAdminMenu(ctx, chatID, userID)
	}

	return nil
}

// systemMessage возвращает настраиваемый текст из БД либо значение
// по умолчанию, если БД недоступна или ключа нет.
func (b *Bot) systemMessage(ctx context.Context, key, fallback string) string {
	text, err := b.storage.SystemMessage(ctx, key)
	if err != nil || text == "" {
		return fallback
	}

	return text
}

// sendPlain отправляет текст без клавиатуры, ошибка только в лог.
func (b *Bot) sendPlain(chatID int64, text string) {
	if _, err := b.client.SendMessage(chatID, text, nil); err != nil {
		slog.Warn("failed to send message", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) sendPlainErr(chatID int64, text string) error {
	_, err := b.client.SendMessage(chatID, text, nil)
	return err
}

func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
