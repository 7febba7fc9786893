package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"eco-scan/internal/domain/entity"
)

// formatResult собирает ответ на фото.
func formatResult(p *entity.Payload, user *entity.User) string {
	var sb strings.Builder

	if p.Success && len(p.DetectedObjects) > 0 {
		sb.WriteString("♻️ Найдено объектов: ")
		sb.WriteString(strconv.Itoa(len(p.DetectedObjects)))
		sb.WriteString("\n\n")
	} else if !p.Success {
		sb.WriteString("⚠️ Анализ не удался.\n\n")
	}

	for _, line := range p.Recommendations {
		sb.WriteString("• ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if p.Success {
		fmt.Fprintf(&sb, "\n🌱 Эко-баллы: +%d\n", p.EcoPoints)
		fmt.Fprintf(&sb, "🌍 Сэкономлено CO₂: %s кг\n", strconv.FormatFloat(p.CarbonSavedKg, 'f', -1, 64))
	}

	if user != nil {
		sb.WriteString("\n")
		sb.WriteString(formatPoints(user))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatPoints(user *entity.User) string {
	return fmt.Sprintf("🏆 Всего баллов: %d (проверок: %d)", user.EcoPoints, user.Scans)
}
