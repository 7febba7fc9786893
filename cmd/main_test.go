package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"eco-scan/config"
	"eco-scan/internal/container"
	"eco-scan/internal/domain/entity"
	"eco-scan/internal/domain/port"
	"eco-scan/internal/infrastructure/storage"
)

func sidecar(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/health" {
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"names":{"39":"bottle"},"boxes":{"xyxy":[[1,1,5,5]],"conf":[0.9],"cls":[39]}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newContainer(t *testing.T, factory func(cfg *config.Config) port.DetectorFactory) *container.Container {
	t.Helper()
	log, _ := test.NewNullLogger()

	cfg := &config.Config{
		Backend:          config.BackendRemote,
		InferenceURL:     sidecar(t).URL + "/predict",
		InferenceTimeout: time.Second,
		ConfThreshold:    0.25,
		UploadDir:        t.TempDir(),
	}
	c := container.New(cfg, storage.NewMemoryUserRepository(), factory(cfg), log)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func remoteFactory(cfg *config.Config) port.DetectorFactory {
	log, _ := test.NewNullLogger()
	return container.DetectorFactory(cfg, log)
}

func failingFactory(*config.Config) port.DetectorFactory {
	return func(context.Context) (port.Detector, error) {
		return nil, errors.New("weights not found")
	}
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bottle.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpg"), 0o600))
	return path
}

func TestRunSelfCheck(t *testing.T) {
	log, hook := test.NewNullLogger()

	require.Equal(t, 0, runSelfCheck(newContainer(t, remoteFactory), log))
	require.Equal(t, "self-check passed", hook.LastEntry().Message)

	require.Equal(t, 1, runSelfCheck(newContainer(t, failingFactory), log))
	require.Equal(t, "self-check failed", hook.LastEntry().Message)
	require.Equal(t, "weights not found", hook.LastEntry().Data["error"])
}

func TestRunAnalyze_PrintsPayload(t *testing.T) {
	var out bytes.Buffer
	require.Equal(t, 0, runAnalyze(newContainer(t, remoteFactory), writeImage(t), &out))

	var payload entity.Payload
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &payload))
	require.True(t, payload.Success)
	require.Equal(t, []string{"bottle — Recycle"}, payload.Recommendations)
	require.Equal(t, 10, payload.EcoPoints)
	require.Equal(t, 0.5, payload.CarbonSavedKg)
}

func TestRunAnalyze_Failures(t *testing.T) {
	var out bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.jpg")
	require.Equal(t, 1, runAnalyze(newContainer(t, remoteFactory), missing, &out))

	var payload entity.Payload
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, []string{"Image file not found."}, payload.Recommendations)

	out.Reset()
	payload = entity.Payload{}
	require.Equal(t, 1, runAnalyze(newContainer(t, failingFactory), writeImage(t), &out))
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, "weights not found", payload.Debug["model_load_error"])
}
