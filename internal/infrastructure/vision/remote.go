package vision

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"eco-scan/internal/domain/entity"
	"eco-scan/internal/domain/port"
)

// Числа остаются json.Number, разбор делает экстрактор.
var remoteJSON = jsoniter.Config{UseNumber: true}.Froze()

// RemoteDetector вызывает внешний сервис инференса (Python + Ultralytics).
// Разные версии сервиса отдают рамки либо колонками, либо списком объектов,
// адаптер сохраняет оба вида как есть.
type RemoteDetector struct {
	inferenceURL string
	client       *http.Client
	log          logrus.FieldLogger
}

// NewRemoteDetector создаёт адаптер без проверки доступности.
func NewRemoteDetector(inferenceURL string, timeout time.Duration, log logrus.FieldLogger) *RemoteDetector {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &RemoteDetector{
		inferenceURL: inferenceURL,
		client:       &http.Client{Timeout: timeout},
		log:          log,
	}
}

// RemoteFactory создаёт детектор и проверяет, что сервис отвечает.
func RemoteFactory(inferenceURL string, timeout time.Duration, log logrus.FieldLogger) port.DetectorFactory {
	return func(ctx context.Context) (port.Detector, error) {
		d := NewRemoteDetector(inferenceURL, timeout, log)
		if err := d.CheckHealth(ctx); err != nil {
			return nil, fmt.Errorf("inference service unavailable: %w", err)
		}
		log.WithField("url", inferenceURL).Info("connected to inference service")
		return d, nil
	}
}

// Detect отправляет изображение в сервис и возвращает сырые результаты.
func (d *RemoteDetector) Detect(ctx context.Context, imagePath string, confThreshold float64, device string) ([]entity.RawResult, error) {
	body, contentType, err := buildForm(imagePath, confThreshold, device)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var parsed inferenceResponse
	if err := remoteJSON.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]entity.RawResult, 0, len(parsed.Results))
	dropped := 0
	for _, r := range parsed.Results {
		raw, skipped := r.toRaw()
		results = append(results, raw)
		dropped += skipped
	}

	entry := d.log.WithFields(logrus.Fields{
		"results": len(results),
		"dropped": dropped,
	})
	if dropped > 0 {
		entry.Warn("inference response has unreadable boxes")
	} else {
		entry.Debug("inference response decoded")
	}
	return results, nil
}

// CheckHealth проверяет доступность сервиса по пути /health.
func (d *RemoteDetector) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(d.inferenceURL)
	if err != nil {
		return fmt.Errorf("parse inference url: %w", err)
	}
	u.Path = "/health"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}
	return nil
}

// Close закрывает простаивающие соединения.
func (d *RemoteDetector) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func buildForm(imagePath string, confThreshold float64, device string) (io.Reader, string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(confThreshold, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	if device != "" {
		if err := writer.WriteField("device", device); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

type inferenceResponse struct {
	Results []inferenceResult `json:"results"`
}

type inferenceResult struct {
	Names jsoniter.RawMessage `json:"names"`
	Boxes jsoniter.RawMessage `json:"boxes"`
}

type columnsDTO struct {
	XYXY any `json:"xyxy"`
	Conf any `json:"conf"`
	Cls  any `json:"cls"`
}

type objectDTO struct {
	XYXY       any `json:"xyxy"`
	BBox       any `json:"bbox"`
	Data       any `json:"data"`
	Conf       any `json:"conf"`
	Confidence any `json:"confidence"`
	Cls        any `json:"cls"`
	ClassID    any `json:"class_id"`
}

// toRaw раскладывает результат по вариантам и считает пропущенные части.
func (r inferenceResult) toRaw() (entity.RawResult, int) {
	raw := entity.RawResult{Names: parseNames(r.Names)}

	boxes := bytes.TrimSpace(r.Boxes)
	if len(boxes) == 0 || string(boxes) == "null" {
		return raw, 0
	}

	switch boxes[0] {
	case '{':
		var cols columnsDTO
		if err := remoteJSON.Unmarshal(boxes, &cols); err != nil {
			return raw, 1
		}
		raw.Columns = &entity.Columns{XYXY: cols.XYXY, Conf: cols.Conf, Cls: cols.Cls}
	case '[':
		var items []jsoniter.RawMessage
		if err := remoteJSON.Unmarshal(boxes, &items); err != nil {
			return raw, 1
		}
		dropped := 0
		for _, item := range items {
			obj, ok := parseObject(item)
			if !ok {
				dropped++
				continue
			}
			raw.Objects = append(raw.Objects, obj)
		}
		return raw, dropped
	default:
		return raw, 1
	}
	return raw, 0
}

func parseObject(item jsoniter.RawMessage) (entity.ObjectBox, bool) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return entity.ObjectBox{}, false
	}

	if item[0] == '[' {
		var elems []any
		if err := remoteJSON.Unmarshal(item, &elems); err != nil {
			return entity.ObjectBox{}, false
		}
		obj := entity.ObjectBox{Elems: elems}
		// [x1, y1, x2, y2, conf, cls], как у Boxes.data
		if len(elems) >= 6 {
			obj.Conf, obj.Cls = elems[4], elems[5]
		}
		return obj, true
	}

	var dto objectDTO
	if err := remoteJSON.Unmarshal(item, &dto); err != nil {
		return entity.ObjectBox{}, false
	}
	return entity.ObjectBox{
		XYXY:       dto.XYXY,
		BBox:       dto.BBox,
		Data:       dto.Data,
		Conf:       dto.Conf,
		Confidence: dto.Confidence,
		Cls:        dto.Cls,
		ClassID:    dto.ClassID,
	}, true
}

// parseNames принимает словарь {"0": "person"} или список ["person", ...].
func parseNames(raw jsoniter.RawMessage) map[int]string {
	names := make(map[int]string)

	var byKey map[string]string
	if err := remoteJSON.Unmarshal(raw, &byKey); err == nil {
		for k, v := range byKey {
			if idx, err := strconv.Atoi(k); err == nil {
				names[idx] = v
			}
		}
		return names
	}

	var list []string
	if err := remoteJSON.Unmarshal(raw, &list); err == nil {
		for i, v := range list {
			names[i] = v
		}
	}
	return names
}
