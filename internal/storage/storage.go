package storage

import (
	"context"
	"errors"
	"time"

	"github.com/letsssgooo/chembot/internal/domain/models"
)

// Storage определяет интерфейс для хранения данных бота.
type Storage interface {
	// UpsertUser создаёт пользователя при первом контакте и обновляет
	// идентификационные поля и время последнего взаимодействия.
	UpsertUser(ctx context.Context, user *models.UserModel) error

	// GetUser возвращает пользователя по идентификатору.
	GetUser(ctx context.Context, userID int64) (*models.UserModel, error)

	// SaveProfile сохраняет анкету регистрации и помечает пользователя
	// зарегистрированным.
	SaveProfile(ctx context.Context, userID int64, fullName, email, phone, grade string) error

	// UpdateProfileField обновляет одно поле анкеты.
	UpdateProfileField(ctx context.Context, userID int64, field ProfileField, value string) error

	// IsRegistered проверяет, завершил ли пользователь регистрацию.
	IsRegistered(ctx context.Context, userID int64) (bool, error)

	// IsAdmin проверяет, является ли пользователь администратором.
	IsAdmin(ctx context.Context, userID int64) (bool, error)

	// SetBlocked блокирует или разблокирует пользователя.
	SetBlocked(ctx context.Context, userID int64, blocked bool) error

	// ActiveUserIDs возвращает идентификаторы незаблокированных пользователей.
	ActiveUserIDs(ctx context.Context) ([]int64, error)

	// SaveResult сохраняет финализированный результат квиза.
	SaveResult(ctx context.Context, result *models.QuizResultModel) error

	// RecentResults возвращает последние результаты пользователя.
	RecentResults(ctx context.Context, userID int64, limit int) ([]models.QuizResultModel, error)

	// Leaderboard возвращает топ пользователей по среднему проценту.
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// Overview возвращает агрегаты за период [since, until).
	// Нулевое since — за всё время, нулевое until — до настоящего момента.
	Overview(ctx context.Context, since, until time.Time) (*models.OverviewStats, error)

	// ScoreDistribution возвращает распределение результатов по корзинам за период.
	ScoreDistribution(ctx context.Context, since, until time.Time) ([]models.ScoreBucket, error)

	// PopularScopes возвращает самые популярные области квизов за период.
	PopularScopes(ctx context.Context, since, until time.Time, limit int) ([]models.ScopeCount, error)

	// UserAverages возвращает по каждому пользователю количество квизов
	// и средний процент за период.
	UserAverages(ctx context.Context, since, until time.Time) ([]models.UserProgress, error)

	// GradeAverages возвращает агрегаты по учебным классам за период.
	GradeAverages(ctx context.Context, since, until time.Time) ([]models.GradeStat, error)

	// DifficultQuestions возвращает вопросы с наибольшей долей неверных
	// ответов за период.
	DifficultQuestions(ctx context.Context, since, until time.Time, limit int) ([]models.DifficultQuestion, error)

	// SaveSnapshot сохраняет снимок прерванного квиза.
	SaveSnapshot(ctx context.Context, snap *models.SavedQuizModel) error

	// ListSnapshots возвращает снимки прерванных квизов пользователя.
	ListSnapshots(ctx context.Context, userID int64) ([]models.SavedQuizModel, error)

	// GetSnapshot возвращает снимок по идентификатору квиза.
	GetSnapshot(ctx context.Context, quizID string) (*models.SavedQuizModel, error)

	// DeleteSnapshot удаляет снимок.
	DeleteSnapshot(ctx context.Context, quizID string) error

	// SystemMessage возвращает текст системного сообщения по ключу.
	SystemMessage(ctx context.Context, key string) (string, error)

	// SetSystemMessage обновляет текст системного сообщения.
	SetSystemMessage(ctx context.Context, key, text string) error
}

// ProfileField — редактируемое поле анкеты пользователя.
type ProfileField string

const (
	FieldFullName ProfileField = "full_name"
	FieldEmail    ProfileField = "email"
	FieldPhone    ProfileField = "phone"
	FieldGrade    ProfileField = "grade"
)

// Window — фиксированное окно времени для административной статистики.
type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowAll   Window = "all"
)

// Since возвращает нижнюю границу окна. Для WindowAll — нулевое время.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case WindowToday:
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

// Ошибки хранилища
var (
	ErrNotFound = errors.New("not found")
)
