package app

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/sirupsen/logrus"

	"eco-scan/internal/domain/entity"
)

// Extractor приводит сырые результаты детектора к списку entity.Detection.
// Разные версии детектора отдают результаты в разном виде, поэтому разбор
// терпим к ошибкам: битые поля заменяются значениями по умолчанию или строка
// пропускается, но ошибка наружу не уходит.
type Extractor struct {
	log logrus.FieldLogger
}

// NewExtractor создаёт экстрактор. log может быть nil.
func NewExtractor(log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = nopLogger()
	}
	return &Extractor{log: log}
}

// Extract достаёт детекции из одного результата. Никогда не паникует:
// при сбое возвращается то, что успели разобрать.
func (e *Extractor) Extract(raw entity.RawResult) (dets []entity.Detection) {
	dets = make([]entity.Detection, 0)
	emit := func(d entity.Detection) {
		dets = append(dets, d)
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(logrus.Fields{
				"shape": raw.Shape().String(),
				"kept":  len(dets),
			}).Debugf("error parsing result object: %v", r)
		}
	}()

	switch raw.Shape() {
	case entity.ShapeColumnar:
		extractColumnar(raw.Columns, raw.Names, emit)
	case entity.ShapePerObject:
		extractObjects(raw.Objects, raw.Names, emit)
	}
	return dets
}

func extractColumnar(cols *entity.Columns, names map[int]string, emit func(entity.Detection)) {
	rows, ok := toList(cols.XYXY)
	if !ok {
		return
	}
	confs := columnOrDefault(cols.Conf, len(rows), 0.0)
	classes := columnOrDefault(cols.Cls, len(rows), nil)

	n := min(len(rows), len(confs), len(classes))
	for i := 0; i < n; i++ {
		box, ok := parseBox(rows[i], false)
		if !ok {
			continue
		}
		emit(entity.Detection{
			Label:      resolveLabel(classes[i], names),
			Confidence: confidenceOf(confs[i]),
			BBox:       box,
		})
	}
}

func extractObjects(objects []entity.ObjectBox, names map[int]string, emit func(entity.Detection)) {
	for _, obj := range objects {
		box, ok := probeBox(obj)
		if !ok {
			continue
		}
		emit(entity.Detection{
			Label:      resolveLabel(firstNonNil(obj.Cls, obj.ClassID), names),
			Confidence: confidenceOf(firstNonNil(obj.Conf, obj.Confidence)),
			BBox:       box,
		})
	}
}

// probeBox перебирает поля рамки в фиксированном порядке.
func probeBox(obj entity.ObjectBox) ([4]float64, bool) {
	for _, candidate := range []any{obj.XYXY, obj.BBox, obj.Data} {
		if candidate == nil {
			continue
		}
		if box, ok := parseBox(candidate, true); ok {
			return box, true
		}
	}
	if len(obj.Elems) >= 4 {
		return parseBox(obj.Elems, false)
	}
	return [4]float64{}, false
}

// parseBox читает четыре конечных числа. С nested=true поддерживается форма 1×4:
// берётся первая строка.
func parseBox(v any, nested bool) ([4]float64, bool) {
	var box [4]float64

	items, ok := toList(v)
	if !ok || len(items) == 0 {
		return box, false
	}
	if nested {
		if inner, ok := toList(items[0]); ok {
			items = inner
		}
	}
	if len(items) < 4 {
		return box, false
	}

	for i := 0; i < 4; i++ {
		f, ok := toFloat(items[i])
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return box, false
		}
		box[i] = f
	}
	return box, true
}

// toList применяет первую сработавшую стратегию: копирование с устройства,
// приведение массива, простой обход среза.
func toList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if hc, ok := v.(entity.HostCopier); ok {
		if items, err := hc.CopyToHost(); err == nil {
			return items, true
		}
	}
	if l, ok := v.(entity.Lister); ok {
		if items, err := l.ToList(); err == nil {
			return items, true
		}
	}
	return iterate(v)
}

func iterate(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// columnOrDefault возвращает колонку или заполненную fill, если колонки нет.
// nil-срез считается отсутствующей колонкой.
func columnOrDefault(v any, n int, fill any) []any {
	if v != nil && !isNilSlice(v) {
		if items, ok := toList(v); ok {
			return items
		}
	}
	items := make([]any, n)
	for i := range items {
		items[i] = fill
	}
	return items
}

func isNilSlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.IsNil()
}

// toFloat приводит скаляр к float64. Одноэлементный массив считается скаляром.
func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := t.Float64()
		return f, err == nil
	}

	if items, ok := toList(v); ok && len(items) == 1 {
		return toFloat(items[0])
	}
	return 0, false
}

func confidenceOf(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.0
	}
	return f
}

// resolveLabel ищет имя класса по индексу. Если не вышло, возвращает индекс строкой.
func resolveLabel(cls any, names map[int]string) *string {
	if cls == nil {
		return nil
	}

	f, ok := toFloat(cls)
	if ok && !math.IsNaN(f) && !math.IsInf(f, 0) && len(names) > 0 {
		if name, found := names[int(f)]; found {
			return &name
		}
	}

	label := fmt.Sprint(cls)
	if ok {
		label = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return &label
}

func firstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
