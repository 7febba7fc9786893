package app

import (
	"cmp"
	"slices"

	"eco-scan/internal/domain/entity"
)

// Aggregate собирает детекции по всем результатам, отбрасывает всё ниже порога
// (порог включительный) и сортирует по убыванию уверенности.
// Сортировка стабильная: при равной уверенности сохраняется исходный порядок.
// Пересекающиеся рамки не схлопываются.
func (e *Extractor) Aggregate(results []entity.RawResult, confThresh float64) []entity.Detection {
	filtered := make([]entity.Detection, 0)
	for _, r := range results {
		for _, d := range e.Extract(r) {
			if d.Confidence >= confThresh {
				filtered = append(filtered, d)
			}
		}
	}

	slices.SortStableFunc(filtered, func(a, b entity.Detection) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return filtered
}
