package bot

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")

	s1 := newStateStoreFromFile(path)
	st := s1.get(10)
	st.State = StateRegEmail
	st.Profile.FullName = "أحمد محمد العلي"
	s1.flush()

	s2 := newStateStoreFromFile(path)
	got := s2.get(10)
	assert.Equal(t, StateRegEmail, got.State)
	assert.Equal(t, "أحمد محمد العلي", got.Profile.FullName)
}

func TestStateStore_QuizStateNotRestored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.json")

	s1 := newStateStoreFromFile(path)
	st := s1.get(10)
	st.State = StateTakingQuiz
	st.QuizType = "unit"
	s1.flush()

	// Сессия квиза живёт только в памяти движка: после перезапуска
	// чат возвращается в главное меню.
	s2 := newStateStoreFromFile(path)
	got := s2.get(10)
	assert.Equal(t, StateMainMenu, got.State)
	assert.Empty(t, got.QuizType)
}

func TestStateStore_MissingFileStartsClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")

	s := newStateStoreFromFile(path)
	assert.Equal(t, StateIdle, s.get(10).State)
}

func TestStateStore_NoFileIsMemoryOnly(t *testing.T) {
	s := newStateStore()
	s.get(10).State = StateMainMenu
	require.NotPanics(t, s.flush)
}
