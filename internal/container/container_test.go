package container

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"eco-scan/config"
	"eco-scan/internal/infrastructure/storage"
)

func TestContainer_RemoteBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"names":{"0":"can"},"boxes":{"xyxy":[[0,0,4,4]],"conf":[0.8],"cls":[0]}}]}`))
	}))
	defer srv.Close()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		Backend:          config.BackendRemote,
		InferenceURL:     srv.URL + "/predict",
		InferenceTimeout: time.Second,
		ConfThreshold:    0.25,
		UploadDir:        t.TempDir(),
	}
	c := New(cfg, storage.NewMemoryUserRepository(), DetectorFactory(cfg, log), log)
	defer c.Close()

	img := filepath.Join(t.TempDir(), "can.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpg"), 0o600))

	p := c.AnalysisService.AnalyzeDefault(context.Background(), img)
	require.True(t, p.Success)
	require.Equal(t, []string{"can — Recycle (aluminum)"}, p.Recommendations)
	require.Equal(t, 8, p.EcoPoints)

	payload, user, err := c.ScanService.ProcessPhoto(context.Background(), 1, 1, []byte("jpg"))
	require.NoError(t, err)
	require.True(t, payload.Success)
	require.Equal(t, 8, user.EcoPoints)
}

func TestDetectorFactory_GoCVWithoutTag(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{Backend: config.BackendGoCV, Weights: "missing.onnx"}
	c := New(cfg, storage.NewMemoryUserRepository(), DetectorFactory(cfg, log), log)

	h := c.AnalysisService.Health(context.Background())
	require.False(t, h.ModelLoaded)
	require.NotNil(t, h.Error)
}
