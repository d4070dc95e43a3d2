package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/letsssgooo/chembot/internal/auth"
	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/storage"
)

// handleRegistrationInput обрабатывает текстовый ввод шагов имя/почта/телефон.
// При ошибке валидации шаг повторяется, черновик анкеты не меняется.
func (b *Bot) handleRegistrationInput(ctx context.Context, msg *client.Message, state *chatState) error {
	text := strings.TrimSpace(msg.Text)

	switch state.State {
	case StateRegName:
		fullName, err := auth.ValidateFullName(text)
		if err != nil {
			return b.sendPlainErr(msg.Chat.ID, msgBadName)
		}
		state.Profile.FullName = fullName
		state.State = StateRegEmail
		return b.sendPlainErr(msg.Chat.ID, msgAskEmail)

	case StateRegEmail:
		email, err := auth.ValidateEmail(text)
		if err != nil {
			return b.sendPlainErr(msg.Chat.ID, msgBadEmail)
		}
		state.Profile.Email = email
		state.State = StateRegPhone
		return b.sendPlainErr(msg.Chat.ID, msgAskPhone)

	case StateRegPhone:
		phone, err := auth.ValidatePhone(text)
		if err != nil {
			return b.sendPlainErr(msg.Chat.ID, msgBadPhone)
		}
		state.Profile.Phone = phone
		state.State = StateRegGrade
		return b.sendGradeKeyboard(msg.Chat.ID, msgAskGrade)
	}

	return nil
}

// sendGradeKeyboard отправляет клавиатуру выбора учебного класса.
func (b *Bot) sendGradeKeyboard(chatID int64, text string) error {
	rows := make([][]client.InlineKeyboardButton, 0, len(auth.GradeCodes))
	for _, code := range auth.GradeCodes {
		label, _ := auth.GradeLabel(code)
		rows = append(rows, []client.InlineKeyboardButton{
			{Text: label, CallbackData: "grade_" + code},
		})
	}

	_, err := b.client.SendMessage(chatID, text, &client.SendOptions{
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	return err
}

// handleGradeSelection обрабатывает выбор класса как при регистрации,
// так и при редактировании поля.
func (b *Bot) handleGradeSelection(ctx context.Context, chatID, userID int64, state *chatState, code string) error {
	grade, err := auth.ValidateGrade(code)
	if err != nil {
		return b.sendGradeKeyboard(chatID, msgAskGrade)
	}

	if state.State == StateEditField && state.EditField == storage.FieldGrade {
		if err := b.gate.UpdateField(ctx, userID, storage.FieldGrade, grade); err != nil {
			return err
		}
		b.states.reset(chatID, StateMainMenu)
		return b.sendProfile(ctx, chatID, userID)
	}

	if state.State != StateRegGrade {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	state.Profile.Grade = grade
	state.State = StateRegConfirm
	return b.sendRegistrationSummary(chatID, state.Profile)
}

// sendRegistrationSummary показывает собранную анкету с кнопкой подтверждения.
func (b *Bot) sendRegistrationSummary(chatID int64, profile auth.Profile) error {
	gradeLabel, _ := auth.GradeLabel(profile.Grade)

	text := fmt.Sprintf("%s\n\n👤 %s\n📧 %s\n📱 %s\n🎓 %s",
		msgConfirmRegistration,
		profile.FullName, profile.Email, profile.Phone, gradeLabel)

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{{Text: "✅ تأكيد", CallbackData: "confirm_registration"}},
		{{Text: "✏️ تعديل الاسم", CallbackData: "edit_reg_name"}},
		{{Text: "✏️ تعديل البريد", CallbackData: "edit_reg_email"}},
		{{Text: "✏️ تعديل الجوال", CallbackData: "edit_reg_phone"}},
		{{Text: "✏️ تعديل الصف", CallbackData: "edit_reg_grade"}},
	}}

	_, err := b.client.SendMessage(chatID, text, &client.SendOptions{ReplyMarkup: markup})
	return err
}

// handleRegistrationConfirm завершает регистрацию.
func (b *Bot) handleRegistrationConfirm(ctx context.Context, chatID, userID int64, state *chatState) error {
	if state.State != StateRegConfirm {
		return b.sendPlainErr(chatID, msgStaleButton)
	}

	if err := b.gate.CompleteRegistration(ctx, userID, state.Profile); err != nil {
		return err
	}

	b.states.reset(chatID, StateMainMenu)

	if err := b.sendPlainErr(chatID, msgRegistered); err != nil {
		return err
	}

	return b.sendMainMenu(ctx, chatID, userID)
}

// handleEditSelection обрабатывает кнопки «изменить поле» — и на экране
// подтверждения регистрации (edit_reg_*), и в профиле (edit_*).
func (b *Bot) handleEditSelection(ctx context.Context, chatID int64, state *chatState, item string) error {
	// Возврат к отдельному шагу регистрации с экрана подтверждения.
	if regField, ok := strings.CutPrefix(item, "reg_"); ok {
		if state.State != StateRegConfirm {
			return b.sendPlainErr(chatID, msgStaleButton)
		}

		switch regField {
		case "name":
			state.State = StateRegName
			return b.sendPlainErr(chatID, msgAskName)
		case "email":
			state.State = StateRegEmail
			return b.sendPlainErr(chatID, msgAskEmail)
		case "phone":
			state.State = StateRegPhone
			return b.sendPlainErr(chatID, msgAskPhone)
		case "grade":
			state.State = StateRegGrade
			return b.sendGradeKeyboard(chatID, msgAskGrade)
		}

		return nil
	}

	// Редактирование анкеты уже зарегистрированного пользователя.
	var (
		field  storage.ProfileField
		prompt string
	)

	switch item {
	case "name":
		field, prompt = storage.FieldFullName, msgAskName
	case "email":
		field, prompt = storage.FieldEmail, msgAskEmail
	case "phone":
		field, prompt = storage.FieldPhone, msgAskPhone
	case "grade":
		state.State = StateEditField
		state.EditField = storage.FieldGrade
		return b.sendGradeKeyboard(chatID, msgAskGrade)
	default:
		return nil
	}

	state.State = StateEditField
	state.EditField = field
	return b.sendPlainErr(chatID, prompt)
}

// handleEditFieldInput обрабатывает текстовый ввод редактируемого поля.
func (b *Bot) handleEditFieldInput(ctx context.Context, msg *client.Message, state *chatState) error {
	text := strings.TrimSpace(msg.Text)

	if err := b.gate.UpdateField(ctx, msg.From.ID, state.EditField, text); err != nil {
		var retry string
		switch state.EditField {
		case storage.FieldFullName:
			retry = msgBadName
		case storage.FieldEmail:
			retry = msgBadEmail
		case storage.FieldPhone:
			retry = msgBadPhone
		default:
			retry = msgTryAgainLater
		}
		return b.sendPlainErr(msg.Chat.ID, retry)
	}

	b.states.reset(msg.Chat.ID, StateMainMenu)
	return b.sendProfile(ctx, msg.Chat.ID, msg.From.ID)
}

// sendProfile показывает анкету пользователя с кнопками редактирования.
func (b *Bot) sendProfile(ctx context.Context, chatID, userID int64) error {
	user, err := b.storage.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	gradeLabel, _ := auth.GradeLabel(user.Grade)

	text := fmt.Sprintf("ملفك الشخصي:\n\n👤 %s\n📧 %s\n📱 %s\n🎓 %s",
		user.FullName, user.Email, user.Phone, gradeLabel)

	markup := &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{
		{
			{Text: "✏️ الاسم", CallbackData: "edit_name"},
			{Text: "✏️ البريد", CallbackData: "edit_email"},
		},
		{
			{Text: "✏️ الجوال", CallbackData: "edit_phone"},
			{Text: "✏️ الصف", CallbackData: "edit_grade"},
		},
		{{Text: "🏠 القائمة الرئيسية", CallbackData: "main_menu"}},
	}}

	_, err = b.client.SendMessage(chatID, text, &client.SendOptions{ReplyMarkup: markup})
	return err
}
