package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail проверяет формат адреса электронной почты.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !emailRe.MatchString(email) {
		return "", fmt.Errorf("%w: invalid email format", ErrValidation)
	}

	return email, nil
}

// ValidatePhone проверяет номер телефона (поддерживаются саудовские
// форматы) и возвращает его без пробелов и дефисов.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")

	digitsOnly := func(s string) bool {
		for _, r := range s {
			if !unicode.IsDigit(r) {
				return false
			}
		}
		return len(s) > 0
	}

	switch {
	case strings.HasPrefix(phone, "+966"):
		if len(phone) == 13 && digitsOnly(phone[1:]) {
			return phone, nil
		}
	case strings.HasPrefix(phone, "00966"):
		if len(phone) == 14 && digitsOnly(phone) {
			return phone, nil
		}
	case strings.HasPrefix(phone, "05"):
		if len(phone) == 10 && digitsOnly(phone) {
			return phone, nil
		}
	case strings.HasPrefix(phone, "5"):
		if len(phone) == 9 && digitsOnly(phone) {
			return phone, nil
		}
	}

	return "", fmt.Errorf("%w: invalid phone number", ErrValidation)
}

// ValidateFullName проверяет правдоподобность имени: от двух до четырёх
// слов, каждое не короче двух букв, только буквы и дефис.
func ValidateFullName(name string) (string, error) {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) < 2 || len(parts) > 4 {
		return "", fmt.Errorf("%w: fullname needs 2 to 4 parts", ErrValidation)
	}

	for _, word := range parts {
		runes := []rune(word)
		if len(runes) < 2 {
			return "", fmt.Errorf("%w: there are too few letters in a part of fullname", ErrValidation)
		}

		for _, letter := range runes {
			if letter == '-' {
				continue
			}

			if !unicode.IsLetter(letter) {
				return "", fmt.Errorf("%w: only letters and '-' can be in fullname", ErrValidation)
			}
		}
	}

	return strings.Join(parts, " "), nil
}

// ValidateGrade проверяет, что код класса известен системе.
func ValidateGrade(code string) (string, error) {
	if _, ok := gradeLabels[code]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownGrade, code)
	}

	return code, nil
}
