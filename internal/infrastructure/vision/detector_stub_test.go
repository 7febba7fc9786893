//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	app "eco-scan/internal/application"
)

func TestGoCVFactory_WithoutTag(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	model := app.NewModelHandle(GoCVFactory("yolov8n.onnx", "", "", log), log)
	require.False(t, model.EnsureLoaded(context.Background()))
	require.EqualError(t, model.LoadError(), "gocv build tag is not enabled")
}
