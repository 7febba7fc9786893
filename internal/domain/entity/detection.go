package entity

// Detection: нормализованный результат детекции одного объекта.
type Detection struct {
	Label      *string    `json:"name"` // nil, если класс неизвестен
	Confidence float64    `json:"conf"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
}

// Name возвращает метку или fallback, если метки нет.
func (d Detection) Name(fallback string) string {
	if d.Label == nil || *d.Label == "" {
		return fallback
	}
	return *d.Label
}

// StringPtr вспомогательная функция для меток.
func StringPtr(s string) *string {
	return &s
}
