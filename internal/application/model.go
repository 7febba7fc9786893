package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"eco-scan/internal/domain/port"
)

// ErrModelNotLoaded возвращается, пока модель не загружена и ошибки загрузки нет.
var ErrModelNotLoaded = errors.New("Model not loaded")

type modelState int

const (
	modelUnloaded modelState = iota
	modelLoading
	modelLoaded
	modelFailed
)

// ModelHandle лениво создаёт детектор и держит его до конца жизни процесса.
// Создание выполняется не больше одного раза: ошибка кэшируется и повторных
// попыток до перезапуска нет. Одновременные вызовы ждут на мьютексе.
type ModelHandle struct {
	mu       sync.Mutex
	state    modelState
	factory  port.DetectorFactory
	detector port.Detector
	err      error
	log      logrus.FieldLogger
}

// NewModelHandle создаёт хэндл в состоянии «не загружено».
func NewModelHandle(factory port.DetectorFactory, log logrus.FieldLogger) *ModelHandle {
	if log == nil {
		log = nopLogger()
	}
	return &ModelHandle{factory: factory, log: log}
}

// EnsureLoaded загружает модель при первом вызове. Единственный метод, меняющий состояние.
func (h *ModelHandle) EnsureLoaded(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case modelLoaded:
		return true
	case modelFailed:
		return false
	}

	h.state = modelLoading
	// Отмена запроса не должна навсегда закэшировать ошибку загрузки.
	det, err := h.construct(context.WithoutCancel(ctx))
	if err != nil {
		h.state = modelFailed
		h.err = err
		h.log.WithError(err).Error("failed to load detection model")
		return false
	}

	h.state = modelLoaded
	h.detector = det
	h.log.Info("model loaded successfully")
	return true
}

func (h *ModelHandle) construct(ctx context.Context) (det port.Detector, err error) {
	if h.factory == nil {
		return nil, errors.New("detector factory is not configured")
	}
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("detector construction panicked: %v", r)
		}
	}()

	det, err = h.factory(ctx)
	if err == nil && det == nil {
		err = errors.New("detector factory returned nil detector")
	}
	return det, err
}

// Loaded сообщает, загружена ли модель.
func (h *ModelHandle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == modelLoaded
}

// LoadError возвращает закэшированную ошибку загрузки или nil.
func (h *ModelHandle) LoadError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Detector возвращает загруженный детектор или nil.
func (h *ModelHandle) Detector() port.Detector {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.detector
}

// Close освобождает детектор, если он был загружен.
func (h *ModelHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detector == nil {
		return nil
	}
	return h.detector.Close()
}
