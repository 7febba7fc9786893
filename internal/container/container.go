package container

import (
	"github.com/sirupsen/logrus"

	"eco-scan/config"
	app "eco-scan/internal/application"
	"eco-scan/internal/domain/port"
	"eco-scan/internal/infrastructure/vision"
)

type Container struct {
	UserService     *app.UserService
	Model           *app.ModelHandle
	AnalysisService *app.AnalysisService
	ScanService     *app.ScanService
}

func New(cfg *config.Config, userRepo port.UserRepository, factory port.DetectorFactory, log logrus.FieldLogger) *Container {
	userService := app.NewUserService(userRepo)
	model := app.NewModelHandle(factory, log)
	analysisService := app.NewAnalysisService(model, app.NewRecommender(nil), app.AnalysisOptions{
		DefaultThreshold: cfg.ConfThreshold,
		Device:           cfg.Device,
	}, log)
	scanService := app.NewScanService(userService, analysisService, cfg.UploadDir)

	return &Container{
		UserService:     userService,
		Model:           model,
		AnalysisService: analysisService,
		ScanService:     scanService,
	}
}

// DetectorFactory выбирает бэкенд детектора по конфигурации.
func DetectorFactory(cfg *config.Config, log logrus.FieldLogger) port.DetectorFactory {
	if cfg.Backend == config.BackendGoCV {
		return vision.GoCVFactory(cfg.Weights, cfg.Device, cfg.NamesFile, log)
	}
	return vision.RemoteFactory(cfg.InferenceURL, cfg.InferenceTimeout, log)
}

// Close освобождает модель.
func (c *Container) Close() error {
	return c.Model.Close()
}
