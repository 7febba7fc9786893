package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"eco-scan/internal/domain/entity"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "item.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o600))
	return path
}

func newService(det *fakeDetector, loadErr error, calls *atomic.Int32) *AnalysisService {
	model := NewModelHandle(factoryFor(det, loadErr, calls), nil)
	return NewAnalysisService(model, nil, AnalysisOptions{DefaultThreshold: 0.25, Device: "cpu"}, nil)
}

func TestAnalyze_SingleBottle(t *testing.T) {
	det := &fakeDetector{results: []entity.RawResult{
		columnar(cocoNames, [][]float64{{1, 1, 5, 5}}, []float64{0.9}, []float64{39}),
	}}
	svc := newService(det, nil, nil)

	p := svc.Analyze(context.Background(), writeImage(t), 0.25)
	require.True(t, p.Success)
	require.Len(t, p.DetectedObjects, 1)
	require.Equal(t, "bottle", *p.DetectedObjects[0].Label)
	require.Equal(t, [4]float64{1, 1, 5, 5}, p.DetectedObjects[0].BBox)
	require.Equal(t, []string{"bottle — Recycle"}, p.Recommendations)
	require.Equal(t, 10, p.EcoPoints)
	require.Equal(t, 0.5, p.CarbonSavedKg)
	require.Equal(t, 1, p.Debug["detections_count"])
	require.Equal(t, true, p.Debug["model_loaded"])
	require.Nil(t, p.Debug["model_load_error"])

	require.Equal(t, 0.25, det.lastThresh)
	require.Equal(t, "cpu", det.lastDevice)
}

func TestAnalyze_ThresholdFilters(t *testing.T) {
	det := &fakeDetector{results: []entity.RawResult{
		columnar(cocoNames, [][]float64{{0, 0, 1, 1}, {0, 0, 2, 2}}, []float64{0.9, 0.3}, []float64{39, 41}),
	}}
	svc := newService(det, nil, nil)

	p := svc.Analyze(context.Background(), writeImage(t), 0.5)
	require.True(t, p.Success)
	require.Len(t, p.DetectedObjects, 1)
	require.Equal(t, 0.9, p.DetectedObjects[0].Confidence)
	require.Equal(t, 1, p.Debug["detections_count"])
}

func TestAnalyze_NoDetections(t *testing.T) {
	svc := newService(&fakeDetector{}, nil, nil)

	p := svc.AnalyzeDefault(context.Background(), writeImage(t))
	require.True(t, p.Success)
	require.Empty(t, p.DetectedObjects)
	require.NotNil(t, p.DetectedObjects)
	require.Equal(t, []string{"No objects detected. Try a clearer photo or different angle."}, p.Recommendations)
}

func TestAnalyze_ImageMissing(t *testing.T) {
	svc := newService(&fakeDetector{}, nil, nil)

	p := svc.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"), 0.25)
	require.False(t, p.Success)
	require.Empty(t, p.DetectedObjects)
	require.Equal(t, []string{"Image file not found."}, p.Recommendations)
	require.Zero(t, p.EcoPoints)
	require.Equal(t, 0.0, p.CarbonSavedKg)
	require.Equal(t, map[string]any{"error": "image_not_found"}, p.Debug)

	p = svc.Analyze(context.Background(), t.TempDir(), 0.25)
	require.False(t, p.Success)
	require.Equal(t, []string{"Image file not found."}, p.Recommendations)
}

func TestAnalyze_PredictionFails(t *testing.T) {
	svc := newService(&fakeDetector{err: errors.New("CUDA out of memory")}, nil, nil)

	p := svc.Analyze(context.Background(), writeImage(t), 0.25)
	require.False(t, p.Success)
	require.Equal(t, []string{"AI prediction failed."}, p.Recommendations)
	require.Equal(t, map[string]any{"exception": "CUDA out of memory"}, p.Debug)

	svc = newService(&fakeDetector{panic: "index out of range"}, nil, nil)
	p = svc.Analyze(context.Background(), writeImage(t), 0.25)
	require.False(t, p.Success)
	require.Contains(t, p.Debug["exception"], "index out of range")
}

func TestAnalyze_CachedLoadFailure(t *testing.T) {
	var calls atomic.Int32
	svc := newService(nil, errors.New("weights file is corrupt"), &calls)
	img := writeImage(t)

	for i := 0; i < 3; i++ {
		p := svc.Analyze(context.Background(), img, 0.25)
		require.False(t, p.Success)
		require.Empty(t, p.DetectedObjects)
		require.Equal(t, []string{"Demo fallback: model unavailable."}, p.Recommendations)
		require.Equal(t, "weights file is corrupt", p.Debug["model_load_error"])
		require.Equal(t, false, p.Debug["model_loaded"])
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestAnalyze_PayloadIsJSONSafe(t *testing.T) {
	det := &fakeDetector{results: []entity.RawResult{
		columnar(cocoNames,
			deviceTensor{rows: []any{[]float32{1, 2, 3, 4}, []any{1.0, 2.0}}},
			[]any{float32(0.5), 0.9},
			[]any{39, 41},
		),
		{Objects: []entity.ObjectBox{{XYXY: []float64{0, 0, 1, 1}, Conf: "nan"}}},
	}}
	svc := newService(det, nil, nil)

	p := svc.Analyze(context.Background(), writeImage(t), 0)
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, true, decoded["success"])
	require.Len(t, decoded["detected_objects"], 2)
}

func TestAnalyze_LogsFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	det := &fakeDetector{results: []entity.RawResult{
		columnar(cocoNames, [][]float64{{1, 1, 5, 5}}, []float64{0.9}, []float64{39}),
	}}
	model := NewModelHandle(factoryFor(det, nil, nil), logger)
	svc := NewAnalysisService(model, nil, AnalysisOptions{DefaultThreshold: 0.25}, logger)

	img := writeImage(t)
	svc.AnalyzeDefault(context.Background(), img)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "image analyzed", entry.Message)
	require.Equal(t, img, entry.Data["image"])
	require.Equal(t, 1, entry.Data["detections"])
}

func TestHealth(t *testing.T) {
	svc := newService(&fakeDetector{}, nil, nil)
	h := svc.Health(context.Background())
	require.True(t, h.ModelLoaded)
	require.Nil(t, h.Error)

	var calls atomic.Int32
	svc = newService(nil, errors.New("no weights"), &calls)
	h = svc.Health(context.Background())
	require.False(t, h.ModelLoaded)
	require.Equal(t, "no weights", *h.Error)

	h = svc.Health(context.Background())
	require.Equal(t, "no weights", *h.Error)
	require.Equal(t, int32(1), calls.Load())
}
