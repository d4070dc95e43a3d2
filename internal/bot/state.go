package bot

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/letsssgooo/chembot/internal/auth"
	"github.com/letsssgooo/chembot/internal/storage"
)

// State — явное состояние диалога с пользователем. Заменяет целочисленные
// состояния ConversationHandler: каждое состояние названо по тому,
// какой ввод бот ждёт следующим.
type State string

const (
	StateIdle     State = "idle"
	StateMainMenu State = "main_menu"

	// Регистрация: по одному полю за шаг.
	StateRegName    State = "reg_name"
	StateRegEmail   State = "reg_email"
	StateRegPhone   State = "reg_phone"
	StateRegGrade   State = "reg_grade"
	StateRegConfirm State = "reg_confirm"
	StateEditField  State = "edit_field"

	// Подготовка квиза.
	StateQuizType  State = "quiz_type"
	StateQuizScope State = "quiz_scope"
	StateQuizCount State = "quiz_count"

	StateTakingQuiz State = "taking_quiz"

	// Администрирование.
	StateAdminMenu  State = "admin_menu"
	StateBroadcast  State = "broadcast"
	StateEditSysMsg State = "edit_sysmsg"
	StateBlockUser  State = "block_user"
)

// chatState хранит состояние диалога и промежуточные данные шагов.
type chatState struct {
	State State

	// Черновик анкеты регистрации.
	Profile auth.Profile

	// Какое поле анкеты редактируется в StateEditField.
	EditField storage.ProfileField

	// Параметры готовящегося квиза.
	QuizType  string
	CourseID  int
	ScopeID   int
	ScopeName string

	// Ключ системного сообщения в StateEditSysMsg.
	SysMsgKey string
}

// stateStore хранит состояния диалогов по чатам. При заданном path
// состояния переживают перезапуск процесса: снимок карты пишется
// в JSON файл после каждого обработанного обновления.
type stateStore struct {
	mu     sync.Mutex
	path   string
	states map[int64]*chatState
}

func newStateStore() *stateStore {
	return &stateStore{states: make(map[int64]*chatState)}
}

// newStateStoreFromFile загружает состояния диалогов из файла path.
// Отсутствующий или испорченный файл означает пустое хранилище.
func newStateStoreFromFile(path string) *stateStore {
	s := newStateStore()
	if path == "" {
		return s
	}
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read state file", "path", path, "err", err)
		}
		return s
	}

	if err := json.Unmarshal(data, &s.states); err != nil {
		slog.Warn("failed to parse state file, starting clean", "path", path, "err", err)
		s.states = make(map[int64]*chatState)
		return s
	}

	// Сессии квизов живут только в памяти движка и перезапуск
	// не переживают: такой чат начинает с главного меню.
	for _, st := range s.states {
		if st.State == StateTakingQuiz {
			*st = chatState{State: StateMainMenu}
		}
	}

	slog.Info("conversation states restored", "path", path, "chats", len(s.states))
	return s
}

// flush записывает снимок состояний на диск. Хранилище без файла
// ничего не делает. Ошибки записи только логируются: потеря черновика
// диалога не стоит остановки бота.
func (s *stateStore) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return
	}

	data, err := json.Marshal(s.states)
	if err != nil {
		slog.Warn("failed to marshal conversation states", "err", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		slog.Warn("failed to write state file", "path", s.path, "err", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Warn("failed to replace state file", "path", s.path, "err", err)
	}
}

// get возвращает состояние чата, создавая его при первом обращении.
func (s *stateStore) get(chatID int64) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[chatID]
	if !ok {
		st = &chatState{State: StateIdle}
		s.states[chatID] = st
	}

	return st
}

// reset сбрасывает диалог чата к состоянию state, забывая промежуточные данные.
func (s *stateStore) reset(chatID int64, state State) *chatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &chatState{State: state}
	s.states[chatID] = st

	return st
}
