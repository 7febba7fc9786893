package entity

// Payload: итоговый ответ анализа изображения.
// Создаётся заново на каждый запрос и после возврата не меняется.
type Payload struct {
	Success         bool           `json:"success"`
	DetectedObjects []Detection    `json:"detected_objects"`
	Recommendations []string       `json:"recommendations"`
	EcoPoints       int            `json:"eco_points"`
	CarbonSavedKg   float64        `json:"carbon_saved_kg"`
	Debug           map[string]any `json:"debug"`
}

// Health: состояние модели.
type Health struct {
	ModelLoaded bool    `json:"model_loaded"`
	Error       *string `json:"error"`
}
