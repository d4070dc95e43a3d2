package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/storage"
)

// Названия окон статистики для кнопок и заголовков.
var windowLabels = map[storage.Window]string{
	storage.WindowToday: "اليوم",
	storage.WindowWeek:  "آخر أسبوع",
	storage.WindowMonth: "آخر شهر",
	storage.WindowAll:   "كل الفترة",
}

var adminWindows = []storage.Window{
	storage.WindowToday, storage.WindowWeek, storage.WindowMonth, storage.WindowAll,
}

// Ключи системных сообщений, доступные для редактирования.
var editableSysMsgs = []string{"welcome", "maintenance", "quiz_intro", "support_hint"}

func (b *Bot) handleAdminCommand(ctx context.Context, msg *client.Message) error {
	return b.sendAdminMenu(ctx, msg.Chat.ID, msg.From.ID)
}

// sendAdminMenu показывает панель администратора.
func (b *Bot) sendAdminMenu(ctx context.Context, chatID, userID int64) error {
	isAdmin, err := b.gate.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return b.sendPlainErr(chatID, msgAdminOnly)
	}

	b.states.reset(chatID, StateAdminMenu)

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "📈 نظرة عامة", CallbackData: "adm_stats"}},
		{{Text: "📊 توزيع النتائج", CallbackData: "adm_dist"}},
		{{Text: "🔥 الاختبارات الأكثر طلباً", CallbackData: "adm_scopes"}},
		{{Text: "📣 رسالة جماعية", CallbackData: "adm_broadcast"}},
		{{Text: "⛔️ حظر / فك حظر مستخدم", CallbackData: "adm_block"}},
		{{Text: "📄 التقرير الأسبوعي الآن", CallbackData: "adm_report"}},
		{{Text: "✏️ الرسائل النظامية", CallbackData: "adm_msgs"}},
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	_, err = b.client.SendMessage(chatID, msgAdminMenu, &client.SendOptions{ReplyMarkup: markup})
	return err
}

// handleAdminCallback обрабатывает кнопки панели администратора.
// item — callback без префикса adm_.
func (b *Bot) handleAdminCallback(ctx context.Context, chatID, userID int64, state *chatState, item string) error {
	isAdmin, err := b.gate.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return b.sendPlainErr(chatID, msgAdminOnly)
	}

	switch {
	case item == "stats" || item == "dist" || item == "scopes":
		return b.sendWindowKeyboard(chatID, item)

	case strings.HasPrefix(item, "stats_"):
		return b.sendOverview(ctx, chatID, storage.Window(strings.TrimPrefix(item, "stats_")))

	case strings.HasPrefix(item, "dist_"):
		return b.sendDistribution(ctx, chatID, storage.Window(strings.TrimPrefix(item, "dist_")))

	case strings.HasPrefix(item, "scopes_"):
		return b.sendPopularScopes(ctx, chatID, storage.Window(strings.TrimPrefix(item, "scopes_")))

	case item == "broadcast":
		state.State = StateBroadcast
		return b.sendPlainErr(chatID, msgBroadcastAsk)

	case item == "block":
		state.State = StateBlockUser
		return b.sendPlainErr(chatID, msgBlockAsk)

	case item == "report":
		return b.runReportNow(ctx, chatID)

	case item == "msgs":
		return b.sendSysMsgKeyboard(chatID)

	case strings.HasPrefix(item, "msg_"):
		return b.startSysMsgEdit(ctx, chatID, state, strings.TrimPrefix(item, "msg_"))
	}

	return nil
}

// sendWindowKeyboard показывает выбор окна для раздела статистики section.
func (b *Bot) sendWindowKeyboard(chatID int64, section string) error {
	rows := make([][]client.InlineKeyboardButton, 0, len(adminWindows)+1)
	for _, window := range adminWindows {
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: windowLabels[window], CallbackData: fmt.Sprintf("adm_%s_%s", section, window)},
		})
	}
	rows = append(rows, []client.InlineKeyboardButton{
		{Text: "◀️ رجوع", CallbackData: "menu_admin"},
	})

	_, err := b.client.SendMessage(chatID, "اختر الفترة:", &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

func (b *Bot) sendOverview(ctx context.Context, chatID int64, window storage.Window) error {
	since := window.Since(time.Now())

	stats, err := b.storage.Overview(ctx, since, time.Time{})
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"📈 نظرة عامة (%s):\n\n👥 مستخدمون نشطون: %d\n📝 اختبارات مكتملة: %d\n📊 متوسط النتيجة: %.1f%%\n🕒 متوسط المدة: %s\n✅ نسبة الإكمال: %.1f%%\n🔁 اختبارات لكل مستخدم: %.1f",
		windowLabels[window],
		stats.ActiveUsers, stats.TotalQuizzes, stats.AverageScore,
		formatDuration(stats.AverageDuration),
		stats.CompletionRate, stats.QuizzesPerUser,
	)

	return b.sendWithAdminBack(chatID, text)
}

func (b *Bot) sendDistribution(ctx context.Context, chatID int64, window storage.Window) error {
	since := window.Since(time.Now())

	buckets, err := b.storage.ScoreDistribution(ctx, since, time.Time{})
	if err != nil {
		return err
	}

	total := 0
	for _, bucket := range buckets {
		total += bucket.Count
	}
	if total == 0 {
		return b.sendWithAdminBack(chatID, msgNoStatsYet)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 توزيع النتائج (%s):\n", windowLabels[window]))

	for _, bucket := range buckets {
		share := float64(bucket.Count) / float64(total) * 100
		sb.WriteString(fmt.Sprintf("\n%s: %d (%.0f%%) %s",
			bucket.Label, bucket.Count, share, bar(share)))
	}

	return b.sendWithAdminBack(chatID, sb.String())
}

func (b *Bot) sendPopularScopes(ctx context.Context, chatID int64, window storage.Window) error {
	since := window.Since(time.Now())

	scopes, err := b.storage.PopularScopes(ctx, since, time.Time{}, 10)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return b.sendWithAdminBack(chatID, msgNoStatsYet)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔥 الاختبارات الأكثر طلباً (%s):\n", windowLabels[window]))

	for i, scope := range scopes {
		sb.WriteString(fmt.Sprintf("\n%d. %s — %d مرة", i+1, scopeLabel(scope.QuizType, scope.ScopeID), scope.Count))
	}

	return b.sendWithAdminBack(chatID, sb.String())
}

func scopeLabel(quizType string, scopeID int) string {
	if quizType == "course" {
		return fmt.Sprintf("مقرر %d", scopeID)
	}

	return fmt.Sprintf("وحدة %d", scopeID)
}

// bar строит текстовую полосу для процентной доли.
func bar(share float64) string {
	filled := int(share / 10)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func (b *Bot) sendWithAdminBack(chatID int64, text string) error {
	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "◀️ رجوع", CallbackData: "menu_admin"}},
	}}

	_, err := b.client.SendMessage(chatID, text, &client.SendOptions{ReplyMarkup: markup})
	return err
}

// handleBroadcastInput рассылает введённый текст всем незаблокированным
// пользователям. Недоставленные сообщения только логируются.
func (b *Bot) handleBroadcastInput(ctx context.Context, msg *client.Message, state *chatState) error {
	userIDs, err := b.storage.ActiveUserIDs(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, userID := range userIDs {
		if _, err := b.client.SendMessage(userID, msg.Text, nil); err != nil {
			slog.Warn("broadcast delivery failed", "user_id", userID, "err", err)
			continue
		}
		sent++
	}

	slog.Info("broadcast finished", "recipients", len(userIDs), "delivered", sent)
	b.states.reset(msg.Chat.ID, StateAdminMenu)

	return b.sendPlainErr(msg.Chat.ID,
		fmt.Sprintf("%s (%d/%d)", msgBroadcastDone, sent, len(userIDs)))
}

// handleBlockToggleInput переключает блокировку пользователя по его
// идентификатору. Заблокированный теряет доступ к боту и выпадает
// из рассылок и таблицы лидеров.
func (b *Bot) handleBlockToggleInput(ctx context.Context, msg *client.Message, state *chatState) error {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil || targetID <= 0 {
		return b.sendPlainErr(msg.Chat.ID, msgBadUserID)
	}
	if targetID == msg.From.ID {
		return b.sendPlainErr(msg.Chat.ID, msgCannotBlockSelf)
	}

	user, err := b.storage.GetUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return b.sendPlainErr(msg.Chat.ID, msgUserNotFound)
		}
		return err
	}

	blocked := !user.IsBlocked
	if err := b.storage.SetBlocked(ctx, targetID, blocked); err != nil {
		return err
	}

	slog.Info("user block toggled", "target_id", targetID, "blocked", blocked, "admin_id", msg.From.ID)
	b.states.reset(msg.Chat.ID, StateAdminMenu)

	if blocked {
		return b.sendPlainErr(msg.Chat.ID, fmt.Sprintf("تم حظر المستخدم %d. ⛔️", targetID))
	}
	return b.sendPlainErr(msg.Chat.ID, fmt.Sprintf("تم فك حظر المستخدم %d. ✅", targetID))
}

// runReportNow формирует еженедельный отчёт немедленно: файл уходит
// в чат администратора, и по почте, если почта настроена.
func (b *Bot) runReportNow(ctx context.Context, chatID int64) error {
	if err := b.sendPlainErr(chatID, msgReportRunning); err != nil {
		return err
	}

	fileName, data, err := b.reports.Generate(ctx, time.Now().AddDate(0, 0, -7), time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if err := b.client.SendDocument(chatID, fileName, data); err != nil {
		return fmt.Errorf("failed to send report document: %w", err)
	}

	if err := b.reports.Email(fileName, data); err != nil {
		slog.Warn("failed to email report", "err", err)
	}

	return nil
}

// sendSysMsgKeyboard показывает список редактируемых системных сообщений.
func (b *Bot) sendSysMsgKeyboard(chatID int64) error {
	rows := make([][]client.InlineKeyboardButton, 0, len(editableSysMsgs)+1)
	for _, key := range editableSysMsgs {
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: key, CallbackData: "adm_msg_" + key},
		})
	}
	rows = append(rows, []client.InlineKeyboardButton{
		{Text: "◀️ رجوع", CallbackData: "menu_admin"},
	})

	_, err := b.client.SendMessage(chatID, "اختر الرسالة لتعديلها:", &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

// startSysMsgEdit показывает текущий текст сообщения и ждёт новый.
func (b *Bot) startSysMsgEdit(ctx context.Context, chatID int64, state *chatState, key string) error {
	current, err := b.storage.SystemMessage(ctx, key)
	if err != nil {
		slog.Warn("failed to load system message", "key", key, "err", err)
	}

	state.State = StateEditSysMsg
	state.SysMsgKey = key

	text := fmt.Sprintf("النص الحالي لـ %q:\n\n%s\n\nأرسل النص الجديد:", key, current)
	return b.sendPlainErr(chatID, text)
}

// handleSysMsgInput сохраняет новый текст системного сообщения.
func (b *Bot) handleSysMsgInput(ctx context.Context, msg *client.Message, state *chatState) error {
	if err := b.storage.SetSystemMessage(ctx, state.SysMsgKey, msg.Text); err != nil {
		return err
	}

	b.states.reset(msg.Chat.ID, StateAdminMenu)
	return b.sendPlainErr(msg.Chat.ID, "تم تحديث الرسالة. ✅")
}
