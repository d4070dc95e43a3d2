package content

import (
	"errors"
	"time"
)

// Course представляет курс из банка вопросов.
type Course struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Unit представляет раздел курса.
type Unit struct {
	ID       int    `json:"id"`
	CourseID int    `json:"course_id"`
	Name     string `json:"name"`
}

// Lesson представляет урок раздела.
type Lesson struct {
	ID     int    `json:"id"`
	UnitID int    `json:"unit_id"`
	Name   string `json:"name"`
}

// Question представляет вопрос во внутреннем формате.
type Question struct {
	ID          int
	Text        string
	ImageURL    string
	Explanation string
	Options     []Option
}

// Option представляет вариант ответа во внутреннем формате.
type Option struct {
	ID        string
	Text      string
	ImageURL  string
	IsCorrect bool
}

// HasImage сообщает, есть ли у варианта ответа картинка вместо текста.
func (o Option) HasImage() bool {
	return o.ImageURL != "" && o.Text == ""
}

// CorrectOption возвращает правильный вариант ответа.
func (q Question) CorrectOption() Option {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt
		}
	}

	return Option{}
}

// Ошибки клиента банка вопросов
var (
	ErrTimeout    = errors.New("content api timeout")
	ErrBadPayload = errors.New("invalid question payload")
)

// Лимиты формата вопросов
const (
	maxOptions = 4
	minOptions = 2
)

const defaultTimeout = 15 * time.Second
