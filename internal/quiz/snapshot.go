package quiz

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/letsssgooo/chembot/internal/content"
)

// snapshot — сериализуемый снимок сессии для таблицы сохранённых квизов.
type snapshot struct {
	ID        string             `json:"id"`
	UserID    int64              `json:"user_id"`
	ChatID    int64              `json:"chat_id"`
	Name      string             `json:"name"`
	QuizType  string             `json:"quiz_type"`
	ScopeID   int                `json:"scope_id"`
	Questions []snapshotQuestion `json:"questions"`
	Index     int                `json:"index"`
	Score     int                `json:"score"`
	Answers   []AnswerRecord     `json:"answers"`
	StartedAt time.Time          `json:"started_at"`
}

type snapshotQuestion struct {
	ID          int              `json:"id"`
	Text        string           `json:"text"`
	ImageURL    string           `json:"image_url,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	Options     []content.Option `json:"options"`
}

// Snapshot сериализует состояние сессии в JSON.
func (s *Session) Snapshot() ([]byte, error) {
	snap := snapshot{
		ID:        s.ID,
		UserID:    s.UserID,
		ChatID:    s.ChatID,
		Name:      s.Name,
		QuizType:  s.QuizType,
		ScopeID:   s.ScopeID,
		Index:     s.Index,
		Score:     s.Score,
		Answers:   s.Answers,
		StartedAt: s.StartedAt,
	}

	snap.Questions = make([]snapshotQuestion, len(s.Questions))
	for i, q := range s.Questions {
		snap.Questions[i] = snapshotQuestion{
			ID:          q.ID,
			Text:        q.Text,
			ImageURL:    q.ImageURL,
			Explanation: q.Explanation,
			Options:     q.Options,
		}
	}

	return json.Marshal(snap)
}

// RestoreSnapshot восстанавливает сессию из JSON снимка.
// Восстановленную сессию нужно зарегистрировать через Manager.Restore.
func RestoreSnapshot(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode quiz snapshot: %w", err)
	}

	if len(snap.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	if snap.Index < 0 || snap.Index > len(snap.Questions) {
		return nil, fmt.Errorf("quiz snapshot %s has invalid index %d", snap.ID, snap.Index)
	}

	session := &Session{
		ID:        snap.ID,
		UserID:    snap.UserID,
		ChatID:    snap.ChatID,
		Name:      snap.Name,
		QuizType:  snap.QuizType,
		ScopeID:   snap.ScopeID,
		Index:     snap.Index,
		Score:     snap.Score,
		Answers:   snap.Answers,
		StartedAt: snap.StartedAt,
		Resumable: true,
	}

	session.Questions = make([]content.Question, len(snap.Questions))
	for i, q := range snap.Questions {
		session.Questions[i] = content.Question{
			ID:          q.ID,
			Text:        q.Text,
			ImageURL:    q.ImageURL,
			Explanation: q.Explanation,
			Options:     q.Options,
		}
	}

	return session, nil
}
