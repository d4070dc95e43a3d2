package models

import (
	"time"
)

// Файл для работы с моделями для базы данных, которые доступны извне.
// Обработчики создают экземпляры моделей, заполняют их данными и
// передают в соответствующую функцию в БД.

// UserModel определяет модель для таблицы пользователей
type UserModel struct {
	UserID          int64
	Username        string
	FirstName       string
	LastName        string
	LanguageCode    string
	FullName        string
	Email           string
	Phone           string
	Grade           string
	IsAdmin         bool
	IsRegistered    bool
	IsBlocked       bool
	RegisteredAt    time.Time
	LastInteraction time.Time
}

// QuizResultModel определяет модель для таблицы с результатами квизов
type QuizResultModel struct {
	ResultID        int64
	UserID          int64
	QuizType        string
	QuizScopeID     int
	TotalQuestions  int
	CorrectCount    int
	WrongCount      int
	SkippedCount    int
	ScorePercentage float64
	StartTime       time.Time
	EndTime         time.Time
	Details         []byte // JSONB c записями по каждому вопросу
	CompletedAt     time.Time
}

// SavedQuizModel определяет модель для таблицы сохранённых (прерванных) квизов
type SavedQuizModel struct {
	QuizID    string
	UserID    int64
	ChatID    int64
	QuizName  string
	QuizType  string
	ScopeID   int
	Snapshot  []byte // JSON снимок состояния сессии
	SavedAt   time.Time
}

// SystemMessageModel определяет модель для таблицы системных сообщений
type SystemMessageModel struct {
	MessageKey   string
	MessageText  string
	LastModified time.Time
}

// OverviewStats содержит агрегаты для административной панели
type OverviewStats struct {
	ActiveUsers       int
	TotalQuizzes      int
	AverageScore      float64
	AverageDuration   time.Duration
	CompletionRate    float64
	QuizzesPerUser    float64
}

// ScoreBucket определяет одну корзину распределения результатов
type ScoreBucket struct {
	Label string // например "60-79%"
	Count int
}

// ScopeCount определяет популярность области квиза
type ScopeCount struct {
	QuizType string
	ScopeID  int
	Count    int
}

// LeaderboardEntry определяет строку таблицы лидеров
type LeaderboardEntry struct {
	UserID          int64
	FullName        string
	QuizCount       int
	AveragePercent  float64
	Rank            int
}

// GradeStat определяет агрегат результатов по учебному классу
type GradeStat struct {
	Grade          string
	UserCount      int
	QuizCount      int
	AveragePercent float64
}

// DifficultQuestion определяет вопрос с высокой долей неверных ответов
type DifficultQuestion struct {
	QuestionID int
	Text       string
	Attempts   int
	WrongRate  float64
}

// UserProgress определяет прогресс пользователя для еженедельного отчёта
type UserProgress struct {
	UserID         int64
	FullName       string
	Grade          string
	QuizCount      int
	AveragePercent float64
	PrevPercent    float64
	Delta          float64
	Trend          string
}
