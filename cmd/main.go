package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"eco-scan/config"
	telegram "eco-scan/internal/api"
	"eco-scan/internal/api/httpapi"
	"eco-scan/internal/container"
	"eco-scan/internal/infrastructure/logging"
	"eco-scan/internal/infrastructure/storage"
)

func main() {
	selfCheck := flag.Bool("selfcheck", false, "load the model and exit 0 if it is available")
	analyzePath := flag.String("analyze", "", "analyze one image and print the result as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation failed")
	}

	userRepo := storage.NewMemoryUserRepository()
	appContainer := container.New(cfg, userRepo, container.DetectorFactory(cfg, log), log)

	code := 0
	switch {
	case *selfCheck:
		code = runSelfCheck(appContainer, log)
	case *analyzePath != "":
		code = runAnalyze(appContainer, *analyzePath, os.Stdout)
	default:
		if err := serve(cfg, appContainer, log); err != nil {
			log.WithError(err).Error("server error")
			code = 1
		}
	}

	if err := appContainer.Close(); err != nil {
		log.WithError(err).Warn("close model")
	}
	log.Info("application stopped")
	os.Exit(code)
}

func runSelfCheck(c *container.Container, log logrus.FieldLogger) int {
	h := c.AnalysisService.Health(context.Background())
	if !h.ModelLoaded {
		log.WithField("error", *h.Error).Error("self-check failed")
		return 1
	}
	log.Info("self-check passed")
	return 0
}

func runAnalyze(c *container.Container, path string, w io.Writer) int {
	payload := c.AnalysisService.AnalyzeDefault(context.Background(), path)
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, string(out))
	if !payload.Success {
		return 1
	}
	return 0
}

func serve(cfg *config.Config, c *container.Container, log *logrus.Logger) error {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewHandler(c.ScanService, c.AnalysisService, log)
	limiter := httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	engine := httpapi.SetupRoutes(handler, limiter, log)

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Модель грузим заранее, чтобы первый запрос не ждал.
	go c.Model.EnsureLoaded(ctx)

	botErrChan := make(chan error, 1)
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c.UserService, c.ScanService, log)
		if err != nil {
			return err
		}
		go func() {
			log.Info("telegram bot is running")
			botErrChan <- bot.Run(ctx)
		}()
	} else {
		log.Info("TELEGRAM_TOKEN is empty, bot disabled")
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down")
	case err := <-serverErrChan:
		return err
	case err := <-botErrChan:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("HTTP server stopped gracefully")
	return nil
}
