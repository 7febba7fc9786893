//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"eco-scan/internal/domain/entity"
	"eco-scan/internal/domain/port"
)

// GoCVDetector запускает ONNX-модель YOLOv8 через модуль DNN OpenCV.
type GoCVDetector struct {
	InputSize    int
	NMSThreshold float32

	net   gocv.Net
	names map[int]string
	mu    sync.Mutex // Forward у gocv.Net не потокобезопасен
}

// NewGoCVDetector загружает веса и выбирает бэкенд по имени устройства.
func NewGoCVDetector(weights, device string, names map[int]string) (*GoCVDetector, error) {
	if _, err := os.Stat(weights); err != nil {
		return nil, fmt.Errorf("weights file: %w", err)
	}

	net := gocv.ReadNet(weights, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to read network from %s", weights)
	}

	if isCUDA(device) {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	return &GoCVDetector{
		InputSize:    640,
		NMSThreshold: 0.45,
		net:          net,
		names:        names,
	}, nil
}

// GoCVFactory создаёт фабрику детектора для ModelHandle.
func GoCVFactory(weights, device, namesFile string, log logrus.FieldLogger) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		names, err := LoadNames(namesFile)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"weights": weights,
			"device":  deviceName(device),
		}).Info("loading YOLO model")
		return NewGoCVDetector(weights, device, names)
	}
}

// Detect прогоняет изображение через сеть. Устройство выбрано при загрузке,
// параметр device здесь не используется.
func (d *GoCVDetector) Detect(ctx context.Context, imagePath string, confThreshold float64, device string) ([]entity.RawResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode image %s", imagePath)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.InputSize, d.InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	// YOLOv8: [1, 4+классы, якоря]
	sizes := out.Size()
	if len(sizes) != 3 || sizes[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	attrs, anchors := sizes[1], sizes[2]

	flat := out.Reshape(1, attrs)
	defer flat.Close()
	preds := gocv.NewMat()
	defer preds.Close()
	gocv.Transpose(flat, &preds)

	xFactor := float32(img.Cols()) / float32(d.InputSize)
	yFactor := float32(img.Rows()) / float32(d.InputSize)

	var (
		rects   []image.Rectangle
		boxes   boxRows
		scores  []float32
		classes []int
	)
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 4; c < attrs; c++ {
			if s := preds.GetFloatAt(i, c); s > bestScore {
				best, bestScore = c-4, s
			}
		}
		if best < 0 || float64(bestScore) < confThreshold {
			continue
		}

		cx, cy := preds.GetFloatAt(i, 0), preds.GetFloatAt(i, 1)
		w, h := preds.GetFloatAt(i, 2), preds.GetFloatAt(i, 3)
		box := [4]float32{
			(cx - w/2) * xFactor,
			(cy - h/2) * yFactor,
			(cx + w/2) * xFactor,
			(cy + h/2) * yFactor,
		}

		rects = append(rects, image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3])))
		boxes = append(boxes, box)
		scores = append(scores, bestScore)
		classes = append(classes, best)
	}

	keepBoxes := make(boxRows, 0)
	keepScores := make([]float32, 0)
	keepClasses := make([]int, 0)
	if len(rects) > 0 {
		for _, idx := range gocv.NMSBoxes(rects, scores, float32(confThreshold), d.NMSThreshold) {
			keepBoxes = append(keepBoxes, boxes[idx])
			keepScores = append(keepScores, scores[idx])
			keepClasses = append(keepClasses, classes[idx])
		}
	}

	return []entity.RawResult{{
		Names: d.names,
		Columns: &entity.Columns{
			XYXY: keepBoxes,
			Conf: keepScores,
			Cls:  keepClasses,
		},
	}}, nil
}

// Close освобождает сеть.
func (d *GoCVDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.net.Close(); err != nil {
		return errors.Join(errors.New("close network"), err)
	}
	return nil
}

func isCUDA(device string) bool {
	device = strings.ToLower(strings.TrimSpace(device))
	if device == "" || device == "cpu" {
		return false
	}
	return strings.HasPrefix(device, "cuda") || strings.Trim(device, "0123456789,") == ""
}

func deviceName(device string) string {
	if device == "" {
		return "default"
	}
	return device
}
