package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuizCallback_Answer(t *testing.T) {
	data := answerCallbackData("session-id", 3, "42")

	cb, err := parseQuizCallback(data)
	require.NoError(t, err)

	assert.Equal(t, cbAnswer, cb.Action)
	assert.Equal(t, "session-id", cb.SessionID)
	assert.Equal(t, 3, cb.Index)
	assert.Equal(t, "42", cb.OptionID)
}

func TestParseQuizCallback_OptionIDWithUnderscores(t *testing.T) {
	// Синтетические идентификаторы вариантов вида i_0 не должны
	// ломать разбор.
	cb, err := parseQuizCallback("ans_sid_0_i_0")
	require.NoError(t, err)

	assert.Equal(t, "sid", cb.SessionID)
	assert.Equal(t, 0, cb.Index)
	assert.Equal(t, "i_0", cb.OptionID)
}

func TestParseQuizCallback_Actions(t *testing.T) {
	for _, action := range []string{cbSkip, cbEnd, cbSave} {
		cb, err := parseQuizCallback(actionCallbackData(action, "sid", 2))
		require.NoError(t, err)

		assert.Equal(t, action, cb.Action)
		assert.Equal(t, "sid", cb.SessionID)
		assert.Equal(t, 2, cb.Index)
	}
}

func TestParseQuizCallback_Invalid(t *testing.T) {
	for _, data := range []string{
		"",
		"ans",
		"ans_sid",
		"ans_sid_x_1",
		"skip_sid_x",
		"unknown_sid_1",
	} {
		_, err := parseQuizCallback(data)
		assert.Error(t, err, data)
	}
}

func TestIsQuizCallback(t *testing.T) {
	assert.True(t, isQuizCallback("ans_sid_0_1"))
	assert.True(t, isQuizCallback("skip_sid_0"))
	assert.True(t, isQuizCallback("end_sid_0"))
	assert.True(t, isQuizCallback("save_sid_0"))

	assert.False(t, isQuizCallback("menu_quiz"))
	assert.False(t, isQuizCallback("grade_secondary_1"))
	assert.False(t, isQuizCallback("answer"))
}
