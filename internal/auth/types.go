package auth

import (
	"errors"
	"time"
)

// Profile — анкета регистрации, собираемая по одному полю за шаг.
type Profile struct {
	FullName string
	Email    string
	Phone    string
	Grade    string
}

// Ошибки регистрации
var (
	ErrValidation   = errors.New("validation error")
	ErrUnknownGrade = errors.New("unknown grade code")
)

// Коды учебных классов и их отображаемые названия.
// Код хранится в БД, название показывается пользователю.
var gradeLabels = map[string]string{
	"secondary_1": "ثانوي أول",
	"secondary_2": "ثانوي ثاني",
	"secondary_3": "ثانوي ثالث",
	"university":  "طالب جامعي",
	"teacher":     "معلم",
	"other":       "أخرى",
}

// GradeCodes — коды классов в порядке отображения на клавиатуре.
var GradeCodes = []string{
	"secondary_1", "secondary_2", "secondary_3",
	"university", "teacher", "other",
}

// GradeLabel возвращает отображаемое название класса по коду.
func GradeLabel(code string) (string, bool) {
	label, ok := gradeLabels[code]
	return label, ok
}

// Таймаут
const timeoutAuth = 3 * time.Second
