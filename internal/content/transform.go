package content

import (
	"fmt"
	"strconv"
)

// apiQuestion описывает вопрос в формате API банка вопросов.
// API отдаёт идентификатор то в поле id, то в question_id,
// поэтому хранятся оба варианта.
type apiQuestion struct {
	ID          int         `json:"id"`
	QuestionID  int         `json:"question_id"`
	Text        string      `json:"question_text"`
	ImageURL    string      `json:"image_url"`
	Explanation string      `json:"explanation"`
	Options     []apiOption `json:"options"`
}

// apiOption описывает вариант ответа в формате API.
type apiOption struct {
	ID        int    `json:"id"`
	OptionID  int    `json:"option_id"`
	Text      string `json:"option_text"`
	ImageURL  string `json:"image_url"`
	IsCorrect bool   `json:"is_correct"`
}

func (q apiQuestion) id() int {
	if q.ID != 0 {
		return q.ID
	}

	return q.QuestionID
}

func (o apiOption) id(index int) string {
	switch {
	case o.OptionID != 0:
		return strconv.Itoa(o.OptionID)
	case o.ID != 0:
		return strconv.Itoa(o.ID)
	default:
		// У API нет идентификатора варианта, берём порядковый номер.
		return "i" + strconv.Itoa(index)
	}
}

// transform переводит вопрос из формата API во внутренний формат.
// Правила: у вопроса должен быть идентификатор и текст или картинка,
// не меньше двух пригодных вариантов ответа и ровно один правильный
// (при дублях берётся первый). Лишние варианты сверх четырёх отбрасываются.
func (q apiQuestion) transform() (Question, error) {
	if q.id() == 0 {
		return Question{}, fmt.Errorf("%w: missing question id", ErrBadPayload)
	}

	if q.Text == "" && q.ImageURL == "" {
		return Question{}, fmt.Errorf("%w: question %d has no text and no image", ErrBadPayload, q.id())
	}

	options := make([]Option, 0, maxOptions)
	correctSeen := false

	for i, raw := range q.Options {
		if len(options) == maxOptions {
			break
		}

		if raw.Text == "" && raw.ImageURL == "" {
			continue
		}

		opt := Option{
			ID:       raw.id(i),
			Text:     raw.Text,
			ImageURL: raw.ImageURL,
		}

		if raw.IsCorrect && !correctSeen {
			opt.IsCorrect = true
			correctSeen = true
		}

		options = append(options, opt)
	}

	if len(options) < minOptions {
		return Question{}, fmt.Errorf("%w: question %d has less than %d valid options", ErrBadPayload, q.id(), minOptions)
	}

	if !correctSeen {
		return Question{}, fmt.Errorf("%w: question %d has no correct option", ErrBadPayload, q.id())
	}

	return Question{
		ID:          q.id(),
		Text:        q.Text,
		ImageURL:    q.ImageURL,
		Explanation: q.Explanation,
		Options:     options,
	}, nil
}
