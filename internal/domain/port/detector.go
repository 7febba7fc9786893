package port

import (
	"context"

	"eco-scan/internal/domain/entity"
)

// Detector интерфейс внешнего детектора объектов
type Detector interface {
	// Detect запускает инференс и возвращает сырые результаты по изображению
	Detect(ctx context.Context, imagePath string, confThreshold float64, device string) ([]entity.RawResult, error)

	// Close освобождает ресурсы модели
	Close() error
}

// DetectorFactory создаёт детектор. Вызывается не более одного раза за жизнь процесса.
type DetectorFactory func(ctx context.Context) (Detector, error)
