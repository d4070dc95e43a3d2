package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Формат callback данных кнопок активного квиза:
// ans_{sessionID}_{questionIndex}_{optionID} — ответ,
// skip_{sessionID}_{questionIndex} — пропуск,
// end_{sessionID}_{questionIndex} — досрочное завершение,
// save_{sessionID}_{questionIndex} — сохранить и выйти.
const (
	cbAnswer = "ans"
	cbSkip   = "skip"
	cbEnd    = "end"
	cbSave   = "save"
)

// quizCallback — разобранный callback активного квиза.
type quizCallback struct {
	Action    string
	SessionID string
	Index     int
	OptionID  string
}

func answerCallbackData(sessionID string, index int, optionID string) string {
	return fmt.Sprintf("%s_%s_%d_%s", cbAnswer, sessionID, index, optionID)
}

func actionCallbackData(action, sessionID string, index int) string {
	return fmt.Sprintf("%s_%s_%d", action, sessionID, index)
}

// parseQuizCallback разбирает callback данные кнопок квиза.
// Идентификатор варианта может сам содержать подчёркивания,
// поэтому хвост после индекса склеивается обратно.
func parseQuizCallback(data string) (quizCallback, error) {
	parts := strings.Split(data, "_")
	if len(parts) < 3 {
		return quizCallback{}, fmt.Errorf("invalid quiz callback: %q", data)
	}

	cb := quizCallback{
		Action:    parts[0],
		SessionID: parts[1],
	}

	switch cb.Action {
	case cbAnswer:
		if len(parts) < 4 {
			return quizCallback{}, fmt.Errorf("invalid answer callback: %q", data)
		}
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			return quizCallback{}, fmt.Errorf("invalid question index in callback %q: %w", data, err)
		}
		cb.Index = index
		cb.OptionID = strings.Join(parts[3:], "_")
	case cbSkip, cbEnd, cbSave:
		index, err := strconv.Atoi(parts[2])
		if err != nil {
			return quizCallback{}, fmt.Errorf("invalid question index in callback %q: %w", data, err)
		}
		cb.Index = index
	default:
		return quizCallback{}, fmt.Errorf("unknown quiz callback action: %q", data)
	}

	return cb, nil
}

// isQuizCallback сообщает, относится ли callback к активному квизу.
func isQuizCallback(data string) bool {
	for _, prefix := range []string{cbAnswer + "_", cbSkip + "_", cbEnd + "_", cbSave + "_"} {
		if strings.HasPrefix(data, prefix) {
			return true
		}
	}

	return false
}
