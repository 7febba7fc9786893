package port

import (
	"context"

	"eco-scan/internal/domain/entity"
)

// UserRepository интерфейс хранилища пользователей бота
type UserRepository interface {
	// Get возвращает пользователя по ID, создаёт нового если не найден
	Get(ctx context.Context, userID, chatID int64) (*entity.User, error)

	// Save сохраняет состояние пользователя
	Save(ctx context.Context, user *entity.User) error

	// RecordScan добавляет баллы за проверку и возвращает пользователя в меню
	RecordScan(ctx context.Context, userID int64, points int) error
}
