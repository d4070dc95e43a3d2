package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Valid(t *testing.T) {
	raw := apiQuestion{
		ID:   7,
		Text: "ما هو الرمز الكيميائي للماء؟",
		Options: []apiOption{
			{OptionID: 1, Text: "H2O", IsCorrect: true},
			{OptionID: 2, Text: "CO2"},
			{OptionID: 3, Text: "O2"},
		},
	}

	question, err := raw.transform()
	require.NoError(t, err)

	assert.Equal(t, 7, question.ID)
	assert.Len(t, question.Options, 3)
	assert.Equal(t, "1", question.CorrectOption().ID)
}

func TestTransform_QuestionIDFallback(t *testing.T) {
	raw := apiQuestion{
		QuestionID: 42,
		Text:       "q",
		Options: []apiOption{
			{Text: "a", IsCorrect: true},
			{Text: "b"},
		},
	}

	question, err := raw.transform()
	require.NoError(t, err)
	assert.Equal(t, 42, question.ID)

	// Без идентификаторов вариантов берутся порядковые номера.
	assert.Equal(t, "i0", question.Options[0].ID)
	assert.Equal(t, "i1", question.Options[1].ID)
}

func TestTransform_MissingID(t *testing.T) {
	raw := apiQuestion{Text: "q"}

	_, err := raw.transform()
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestTransform_NoTextNoImage(t *testing.T) {
	raw := apiQuestion{ID: 1}

	_, err := raw.transform()
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestTransform_ImageOnlyQuestion(t *testing.T) {
	raw := apiQuestion{
		ID:       3,
		ImageURL: "https://example.com/q.png",
		Options: []apiOption{
			{OptionID: 1, ImageURL: "https://example.com/a.png", IsCorrect: true},
			{OptionID: 2, ImageURL: "https://example.com/b.png"},
		},
	}

	question, err := raw.transform()
	require.NoError(t, err)

	assert.True(t, question.Options[0].HasImage())
	assert.True(t, question.Options[1].HasImage())
}

func TestTransform_TooFewValidOptions(t *testing.T) {
	raw := apiQuestion{
		ID:   5,
		Text: "q",
		Options: []apiOption{
			{OptionID: 1, Text: "a", IsCorrect: true},
			{OptionID: 2}, // ни текста, ни картинки
		},
	}

	_, err := raw.transform()
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestTransform_NoCorrectOption(t *testing.T) {
	raw := apiQuestion{
		ID:   6,
		Text: "q",
		Options: []apiOption{
			{OptionID: 1, Text: "a"},
			{OptionID: 2, Text: "b"},
		},
	}

	_, err := raw.transform()
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestTransform_DuplicateCorrectTakesFirst(t *testing.T) {
	raw := apiQuestion{
		ID:   8,
		Text: "q",
		Options: []apiOption{
			{OptionID: 1, Text: "a", IsCorrect: true},
			{OptionID: 2, Text: "b", IsCorrect: true},
		},
	}

	question, err := raw.transform()
	require.NoError(t, err)

	assert.True(t, question.Options[0].IsCorrect)
	assert.False(t, question.Options[1].IsCorrect)
}

func TestTransform_CapsOptionsAtFour(t *testing.T) {
	raw := apiQuestion{
		ID:   9,
		Text: "q",
		Options: []apiOption{
			{OptionID: 1, Text: "a", IsCorrect: true},
			{OptionID: 2, Text: "b"},
			{OptionID: 3, Text: "c"},
			{OptionID: 4, Text: "d"},
			{OptionID: 5, Text: "e"},
		},
	}

	question, err := raw.transform()
	require.NoError(t, err)
	assert.Len(t, question.Options, 4)
}

func TestClient_Questions(t *testing.T) {
	payload := []map[string]interface{}{
		{
			"id":            1,
			"question_text": "valid",
			"options": []map[string]interface{}{
				{"option_id": 1, "option_text": "a", "is_correct": true},
				{"option_id": 2, "option_text": "b"},
			},
		},
		{
			// Пропускается: нет правильного варианта.
			"id":            2,
			"question_text": "broken",
			"options": []map[string]interface{}{
				{"option_id": 1, "option_text": "a"},
				{"option_id": 2, "option_text": "b"},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/units/3/questions", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	questions, err := client.Questions(context.Background(), 3, 10)
	require.NoError(t, err)

	require.Len(t, questions, 1)
	assert.Equal(t, 1, questions[0].ID)
}

func TestClient_CoursesAndUnits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/courses":
			_, _ = w.Write([]byte(`[{"id":1,"name":"كيمياء 1"}]`))
		case "/courses/1/units":
			_, _ = w.Write([]byte(`[{"id":5,"course_id":1,"name":"الوحدة الأولى"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)

	courses, err := client.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "كيمياء 1", courses[0].Name)

	units, err := client.Units(context.Background(), courses[0].ID)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 5, units[0].ID)
}

func TestClient_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Courses(context.Background())
	assert.Error(t, err)
}
