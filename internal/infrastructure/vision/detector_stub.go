//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"eco-scan/internal/domain/entity"
	"eco-scan/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// GoCVDetector: заглушка для сборки без OpenCV.
type GoCVDetector struct{}

// NewGoCVDetector возвращает ошибку, если сборка без тега gocv.
func NewGoCVDetector(weights, device string, names map[int]string) (*GoCVDetector, error) {
	return nil, errNoGoCV
}

// GoCVFactory возвращает фабрику, которая всегда завершается ошибкой.
func GoCVFactory(weights, device, namesFile string, log logrus.FieldLogger) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		log.WithField("weights", weights).Warn("local detector requested without gocv build tag")
		return nil, errNoGoCV
	}
}

// Detect возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Detect(ctx context.Context, imagePath string, confThreshold float64, device string) ([]entity.RawResult, error) {
	return nil, errNoGoCV
}

// Close ничего не делает.
func (d *GoCVDetector) Close() error { return nil }
