package entity

// CategoryRule сопоставляет подстроку метки с действием по утилизации.
type CategoryRule struct {
	Match    string  // подстрока в нижнем регистре
	Action   string  // что делать с предметом
	Points   int     // эко-баллы
	CarbonKg float64 // оценка сэкономленного CO2, кг
}

// DefaultCategoryRules: таблица категорий. Порядок важен: побеждает первое совпадение.
var DefaultCategoryRules = []CategoryRule{
	{Match: "bottle", Action: "Recycle", Points: 10, CarbonKg: 0.5},
	{Match: "plastic", Action: "Recycle", Points: 8, CarbonKg: 0.3},
	{Match: "can", Action: "Recycle (aluminum)", Points: 8, CarbonKg: 0.4},
	{Match: "paper", Action: "Recycle (paper)", Points: 5, CarbonKg: 0.1},
	{Match: "cardboard", Action: "Recycle (cardboard)", Points: 6, CarbonKg: 0.2},
	{Match: "electronics", Action: "E-waste dropoff", Points: 20, CarbonKg: 1.0},
}
