package models

import (
	"encoding/json"
	"time"
)

// Report представляет снимок одного запуска исследования.
// Создаётся один раз на успешный ответ вебхука и далее не изменяется;
// история отчётов упорядочена по времени создания, новые — первыми.
type Report struct {
	ID                  string           // Уникальный идентификатор отчёта
	UserUID             string           // Владелец отчёта
	BriefingID          *string          // Брифинг, породивший отчёт (nil, если неизвестен)
	PainCount           int              // Количество архетипов в снимке
	AvgPainScore        float64          // Средняя оценка по метрикам вебхука
	TopPain             string           // Имя первого архетипа списка
	ComprehensiveReport string           // Полный текст отчёта
	Metrics             DashboardMetrics // Нормализованные метрики дашборда
	StructuredData      json.RawMessage  // Структурированные данные модели как есть
	PainSnapshot        json.RawMessage  // Сырой список архетипов на момент отчёта
	CreatedAt           time.Time

	// Заполняются только в административной выборке.
	UserName  string `json:",omitempty"`
	UserEmail string `json:",omitempty"`
}

// DashboardMetrics содержит метрики дашборда, приведённые к единым именам
// полей независимо от того, в каком виде их прислал вебхук.
type DashboardMetrics struct {
	TotalPainsDiscovered float64 `json:"totalPainsDiscovered,omitempty"`
	AveragePainScore     float64 `json:"averagePainScore,omitempty"`
	SourcesAnalyzed      float64 `json:"sourcesAnalyzed,omitempty"`
	ActiveAgents         float64 `json:"activeAgents,omitempty"`
}
