package app

import (
	"math"
	"strings"

	"eco-scan/internal/domain/entity"
)

const (
	msgNoObjects     = "No objects detected. Try a clearer photo or different angle."
	msgUnknownAction = "Unknown: please consult local recycling rules"
	itemFallback     = "Item"
)

// Recommendation: советы по утилизации и суммарные баллы.
type Recommendation struct {
	Lines         []string
	EcoPoints     int
	CarbonSavedKg float64
}

// Recommender сопоставляет метки детекций с таблицей категорий.
type Recommender struct {
	rules []entity.CategoryRule
}

// NewRecommender создаёт движок рекомендаций. При nil берётся таблица по умолчанию.
func NewRecommender(rules []entity.CategoryRule) *Recommender {
	if rules == nil {
		rules = entity.DefaultCategoryRules
	}
	return &Recommender{rules: rules}
}

// Recommend строит по строке на каждую детекцию. Выигрывает первая подстрока
// из таблицы, которая входит в метку (без учёта регистра).
func (r *Recommender) Recommend(dets []entity.Detection) Recommendation {
	if len(dets) == 0 {
		return Recommendation{Lines: []string{msgNoObjects}}
	}

	out := Recommendation{Lines: make([]string, 0, len(dets))}
	var carbon float64
	for _, d := range dets {
		name := d.Name(itemFallback)
		rule, ok := r.match(d)
		if !ok {
			out.Lines = append(out.Lines, name+" — "+msgUnknownAction)
			continue
		}
		out.Lines = append(out.Lines, name+" — "+rule.Action)
		out.EcoPoints += rule.Points
		carbon += rule.CarbonKg
	}
	out.CarbonSavedKg = roundTo(carbon, 3)
	return out
}

func (r *Recommender) match(d entity.Detection) (entity.CategoryRule, bool) {
	label := ""
	if d.Label != nil {
		label = strings.ToLower(*d.Label)
	}
	for _, rule := range r.rules {
		if strings.Contains(label, rule.Match) {
			return rule, true
		}
	}
	return entity.CategoryRule{}, false
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
