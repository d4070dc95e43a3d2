package client

import (
	"context"
	"time"
)

// Update представляет обновление от Telegram.
type Update struct {
	UpdateID      int            `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message представляет сообщение.
type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text"`
}

// User представляет пользователя Telegram.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// Chat представляет чат.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// CallbackQuery представляет callback от inline кнопки.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *User    `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// InlineKeyboardMarkup представляет inline клавиатуру.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton представляет кнопку inline клавиатуры.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// SendOptions содержит опции отправки сообщения.
type SendOptions struct {
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// Client определяет интерфейс Telegram клиента.
type Client interface {
	// SendMessage отправляет сообщение.
	SendMessage(chatID int64, text string, opts *SendOptions) (*Message, error)

	// SendPhoto отправляет фото по URL с подписью caption.
	SendPhoto(chatID int64, photoURL string, caption string, opts *SendOptions) (*Message, error)

	// EditMessage редактирует текст сообщения.
	EditMessage(chatID int64, messageID int, text string, opts *SendOptions) error

	// EditMessageCaption редактирует подпись сообщения с фото.
	EditMessageCaption(chatID int64, messageID int, caption string, opts *SendOptions) error

	// DeleteMessage удаляет сообщение.
	DeleteMessage(chatID int64, messageID int) error

	// AnswerCallback отвечает на callback query.
	AnswerCallback(callbackID string, text string) error

	// GetUpdates получает обновления (long polling).
	GetUpdates(ctx context.Context, offset int, timeout int) ([]Update, error)

	// SendDocument отправляет файл как документ.
	SendDocument(chatID int64, fileName string, data []byte) error
}

// Таймауты
const (
	timeoutSend   = 5 * time.Second
	timeoutUpload = 30 * time.Second
)
