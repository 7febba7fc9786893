package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "eco-scan/internal/application"
)

type analyzeRequest struct {
	Conf *float64 `form:"conf" binding:"omitempty,gte=0,lte=1"`
}

// Handler HTTP-обработчики анализа.
type Handler struct {
	scans    *app.ScanService
	analysis *app.AnalysisService
	log      logrus.FieldLogger
}

func NewHandler(scans *app.ScanService, analysis *app.AnalysisService, log logrus.FieldLogger) *Handler {
	return &Handler{scans: scans, analysis: analysis, log: log}
}

// Analyze принимает изображение и возвращает результат анализа.
// POST /api/v1/analyze (multipart: image, conf)
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequestWithValidation(c, err)
		return
	}
	if req.Conf == nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			BadRequestWithValidation(c, err)
			return
		}
	}

	conf := h.analysis.DefaultThreshold()
	if req.Conf != nil {
		conf = *req.Conf
	}

	fh, err := c.FormFile("image")
	if err != nil {
		BadRequest(c, "image is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		BadRequest(c, "cannot open image")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		BadRequest(c, "cannot read image")
		return
	}

	payload, err := h.scans.AnalyzeUpload(c.Request.Context(), data, fh.Filename, conf)
	if errors.Is(err, app.ErrEmptyImage) {
		BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("request_id", c.GetString(ctxRequestID)).Error("analyze upload failed")
		InternalError(c, "failed to store image")
		return
	}

	c.JSON(http.StatusOK, payload)
}

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.analysis.Health(c.Request.Context()))
}
