package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"eco-scan/internal/domain/entity"
)

// ErrEmptyImage возвращается, если загружено пустое изображение.
var ErrEmptyImage = errors.New("empty image")

// ScanService принимает загруженные изображения (HTTP, бот), кладёт их во
// временный файл и передаёт в анализ. Файл удаляется сразу после анализа.
type ScanService struct {
	users     *UserService
	analysis  *AnalysisService
	uploadDir string
}

// NewScanService создаёт сервис. users может быть nil, если бот не используется.
func NewScanService(users *UserService, analysis *AnalysisService, uploadDir string) *ScanService {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &ScanService{
		users:     users,
		analysis:  analysis,
		uploadDir: uploadDir,
	}
}

// AnalyzeUpload анализирует содержимое файла с заданным порогом.
func (s *ScanService) AnalyzeUpload(ctx context.Context, imageData []byte, filename string, confThreshold float64) (*entity.Payload, error) {
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	path, err := s.store(imageData, filename)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	return s.analysis.Analyze(ctx, path, confThreshold), nil
}

// ProcessPhoto анализирует фото из чата и начисляет пользователю баллы.
func (s *ScanService) ProcessPhoto(ctx context.Context, userID, chatID int64, photo []byte) (*entity.Payload, *entity.User, error) {
	if s.users == nil {
		return nil, nil, errors.New("user service is not configured")
	}
	if _, err := s.users.SetState(ctx, userID, chatID, entity.StateProcessing); err != nil {
		return nil, nil, err
	}

	payload, err := s.AnalyzeUpload(ctx, photo, "photo.jpg", s.analysis.DefaultThreshold())
	if err != nil {
		_, _ = s.users.Cancel(ctx, userID, chatID)
		return nil, nil, err
	}

	points := 0
	if payload.Success {
		points = payload.EcoPoints
	}
	user, err := s.users.FinishScan(ctx, userID, chatID, points)
	if err != nil {
		_, _ = s.users.Cancel(ctx, userID, chatID)
		return nil, nil, err
	}
	return payload, user, nil
}

func (s *ScanService) store(imageData []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(s.uploadDir, "upload-"+uuid.NewString()+ext)
	if err := os.WriteFile(path, imageData, 0o600); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}
