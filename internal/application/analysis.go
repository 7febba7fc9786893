package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"eco-scan/internal/domain/entity"
)

const (
	msgModelUnavailable = "Demo fallback: model unavailable."
	msgImageNotFound    = "Image file not found."
	msgPredictionFailed = "AI prediction failed."
)

// AnalysisService прогоняет изображение через детектор и собирает ответ.
// Любой сбой превращается в ответ с success=false, ошибка наружу не уходит.
type AnalysisService struct {
	model            *ModelHandle
	extractor        *Extractor
	recommender      *Recommender
	defaultThreshold float64
	device           string
	log              logrus.FieldLogger
}

// AnalysisOptions настройки анализа.
type AnalysisOptions struct {
	DefaultThreshold float64
	Device           string
}

// NewAnalysisService создаёт сервис анализа.
func NewAnalysisService(model *ModelHandle, recommender *Recommender, opts AnalysisOptions, log logrus.FieldLogger) *AnalysisService {
	if log == nil {
		log = nopLogger()
	}
	if recommender == nil {
		recommender = NewRecommender(nil)
	}
	return &AnalysisService{
		model:            model,
		extractor:        NewExtractor(log),
		recommender:      recommender,
		defaultThreshold: opts.DefaultThreshold,
		device:           opts.Device,
		log:              log,
	}
}

// DefaultThreshold возвращает порог уверенности по умолчанию.
func (s *AnalysisService) DefaultThreshold() float64 {
	return s.defaultThreshold
}

// AnalyzeDefault анализирует изображение с порогом по умолчанию.
func (s *AnalysisService) AnalyzeDefault(ctx context.Context, imagePath string) *entity.Payload {
	return s.Analyze(ctx, imagePath, s.defaultThreshold)
}

// Analyze запускает детекцию и строит ответ.
func (s *AnalysisService) Analyze(ctx context.Context, imagePath string, confThreshold float64) *entity.Payload {
	log := s.log.WithField("image", imagePath)

	if !s.model.EnsureLoaded(ctx) {
		loadErr := ErrModelNotLoaded.Error()
		if err := s.model.LoadError(); err != nil {
			loadErr = err.Error()
		}
		log.Warn("model unavailable; returning demo fallback result")
		return failedPayload(msgModelUnavailable, map[string]any{
			"model_loaded":     false,
			"detections_count": 0,
			"model_load_error": loadErr,
		})
	}

	if info, err := os.Stat(imagePath); err != nil || info.IsDir() {
		log.Error("input image does not exist")
		return failedPayload(msgImageNotFound, map[string]any{"error": "image_not_found"})
	}

	results, err := s.detect(ctx, imagePath, confThreshold)
	if err != nil {
		log.WithError(err).Error("error during model prediction")
		return failedPayload(msgPredictionFailed, map[string]any{"exception": err.Error()})
	}

	dets := s.extractor.Aggregate(results, confThreshold)
	rec := s.recommender.Recommend(dets)

	log.WithFields(logrus.Fields{
		"detections": len(dets),
		"eco_points": rec.EcoPoints,
	}).Info("image analyzed")

	return &entity.Payload{
		Success:         true,
		DetectedObjects: dets,
		Recommendations: rec.Lines,
		EcoPoints:       rec.EcoPoints,
		CarbonSavedKg:   rec.CarbonSavedKg,
		Debug: map[string]any{
			"model_loaded":     true,
			"detections_count": len(dets),
			"model_load_error": nil,
		},
	}
}

func (s *AnalysisService) detect(ctx context.Context, imagePath string, confThreshold float64) (results []entity.RawResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("detector panicked: %v", r)
		}
	}()
	return s.model.Detector().Detect(ctx, imagePath, confThreshold, s.device)
}

// Health сообщает состояние модели. Если ошибки ещё нет, пробует загрузить модель.
func (s *AnalysisService) Health(ctx context.Context) entity.Health {
	if err := s.model.LoadError(); err != nil {
		msg := err.Error()
		return entity.Health{ModelLoaded: false, Error: &msg}
	}

	if s.model.EnsureLoaded(ctx) {
		return entity.Health{ModelLoaded: true}
	}

	msg := ErrModelNotLoaded.Error()
	if err := s.model.LoadError(); err != nil {
		msg = err.Error()
	}
	return entity.Health{ModelLoaded: false, Error: &msg}
}

func failedPayload(recommendation string, debug map[string]any) *entity.Payload {
	return &entity.Payload{
		Success:         false,
		DetectedObjects: []entity.Detection{},
		Recommendations: []string{recommendation},
		EcoPoints:       0,
		CarbonSavedKg:   0.0,
		Debug:           debug,
	}
}

func nopLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
