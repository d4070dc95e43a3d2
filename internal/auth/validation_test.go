package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail_Valid(t *testing.T) {
	for _, email := range []string{
		"student@example.com",
		"a.b-c_d%e+f@sub.example.co",
		"  padded@example.com  ",
	} {
		got, err := ValidateEmail(email)
		require.NoError(t, err, email)
		assert.NotContains(t, got, " ")
	}
}

func TestValidateEmail_Invalid(t *testing.T) {
	for _, email := range []string{
		"",
		"no-at-sign.com",
		"user@",
		"user@host",
		"user@host.c",
		"user name@example.com",
	} {
		_, err := ValidateEmail(email)
		assert.ErrorIs(t, err, ErrValidation, email)
	}
}

func TestValidatePhone_SaudiFormats(t *testing.T) {
	cases := map[string]string{
		"+966501234567":  "+966501234567",
		"00966501234567": "00966501234567",
		"0501234567":     "0501234567",
		"501234567":      "501234567",
		"050 123 4567":   "0501234567",
		"050-123-4567":   "0501234567",
	}

	for input, want := range cases {
		got, err := ValidatePhone(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}
}

func TestValidatePhone_Invalid(t *testing.T) {
	for _, phone := range []string{
		"",
		"12345",
		"+96650123456",    // короче на цифру
		"+9665012345678",  // длиннее на цифру
		"0401234567",      // не саудовский префикс
		"05012345ab",      // буквы
		"009665012345678", // длиннее на цифру
	} {
		_, err := ValidatePhone(phone)
		assert.ErrorIs(t, err, ErrValidation, phone)
	}
}

func TestValidateFullName_Valid(t *testing.T) {
	for _, name := range []string{
		"أحمد العلي",
		"أحمد محمد سالم العلي",
		"Jean-Pierre Dupont",
		"  Ivan   Petrov  ",
	} {
		got, err := ValidateFullName(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, got)
	}

	// Лишние пробелы схлопываются.
	got, err := ValidateFullName("  Ivan   Petrov  ")
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", got)
}

func TestValidateFullName_Invalid(t *testing.T) {
	for _, name := range []string{
		"",
		"أحمد",           // одно слово
		"a b c d e",      // пять слов
		"Ivan P",         // слишком короткая часть
		"Ivan Petrov123", // цифры
		"Ivan Petrov!",   // пунктуация
	} {
		_, err := ValidateFullName(name)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestValidateGrade(t *testing.T) {
	for _, code := range GradeCodes {
		got, err := ValidateGrade(code)
		require.NoError(t, err)
		assert.Equal(t, code, got)

		label, ok := GradeLabel(code)
		assert.True(t, ok)
		assert.NotEmpty(t, label)
	}

	_, err := ValidateGrade("primary_1")
	assert.ErrorIs(t, err, ErrUnknownGrade)
}
