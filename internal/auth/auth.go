package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/letsssgooo/chembot/internal/client"
	"github.com/letsssgooo/chembot/internal/domain/models"
	"github.com/letsssgooo/chembot/internal/storage"
)

// Gate отсекает незарегистрированных пользователей от основных
// функций бота и завершает регистрацию.
type Gate struct {
	storage storage.Storage
}

// NewGate создаёт новый Gate поверх хранилища.
func NewGate(st storage.Storage) *Gate {
	return &Gate{storage: st}
}

// EnsureUser создаёт запись пользователя при первом контакте
// и обновляет время последнего взаимодействия.
func (g *Gate) EnsureUser(ctx context.Context, from *client.User) error {
	if from == nil {
		return fmt.Errorf("update without sender")
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	return g.storage.UpsertUser(ctx, &models.UserModel{
		UserID:       from.ID,
		Username:     from.Username,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
	})
}

// IsRegistered проверяет, завершил ли пользователь регистрацию.
func (g *Gate) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	return g.storage.IsRegistered(ctx, userID)
}

// IsAdmin проверяет права администратора.
func (g *Gate) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	return g.storage.IsAdmin(ctx, userID)
}

// IsBlocked проверяет, заблокирован ли пользователь администратором.
// Неизвестный пользователь не заблокирован.
func (g *Gate) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	user, err := g.storage.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return user.IsBlocked, nil
}

// CompleteRegistration валидирует собранную анкету целиком и сохраняет её.
// Поля анкеты уже прошли пошаговую валидацию, но перед записью в БД
// проверяются ещё раз.
func (g *Gate) CompleteRegistration(ctx context.Context, userID int64, profile Profile) error {
	fullName, err := ValidateFullName(profile.FullName)
	if err != nil {
		return err
	}

	email, err := ValidateEmail(profile.Email)
	if err != nil {
		return err
	}

	phone, err := ValidatePhone(profile.Phone)
	if err != nil {
		return err
	}

	grade, err := ValidateGrade(profile.Grade)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	return g.storage.SaveProfile(ctx, userID, fullName, email, phone, grade)
}

// UpdateField валидирует и сохраняет одно поле анкеты.
func (g *Gate) UpdateField(ctx context.Context, userID int64, field storage.ProfileField, value string) error {
	var (
		validated string
		err       error
	)

	switch field {
	case storage.FieldFullName:
		validated, err = ValidateFullName(value)
	case storage.FieldEmail:
		validated, err = ValidateEmail(value)
	case storage.FieldPhone:
		validated, err = ValidatePhone(value)
	case storage.FieldGrade:
		validated, err = ValidateGrade(value)
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutAuth)
	defer cancel()

	return g.storage.UpdateProfileField(ctx, userID, field, validated)
}
