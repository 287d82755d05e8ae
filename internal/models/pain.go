package models

import "time"

// PainArchetype представляет обнаруженную рыночную проблему с количественной
// оценкой и прогнозом выручки. Записи принадлежат одному пользователю;
// источники (PainSource) живут и умирают вместе с родительской записью.
type PainArchetype struct {
	ID                    string       // Уникальный идентификатор
	ExternalID            string       // Идентификатор архетипа из ответа конвейера
	UserUID               string       // Владелец записи
	ReportID              string       // Отчёт, в рамках которого запись создана (может быть пустым)
	Name                  string       // Название архетипа
	Description           string       // Описание проблемы
	PainScore             float64      // Композитная оценка 0-100
	Severity              float64      // Серьёзность
	Frequency             float64      // Частота упоминаний
	Urgency               float64      // Срочность
	CompetitiveSaturation float64      // Насыщенность конкурентами
	Sources               []PainSource // Источники, подтверждающие проблему
	Revenue               RevenuePotential
	Tags                  []string
	FrequencyHistory      []float64 // Историческая серия оценок
	CreatedAt             time.Time
}

// PainSource представляет один подтверждающий источник болевого архетипа.
type PainSource struct {
	ID        string    // Уникальный идентификатор источника
	URL       string    // Ссылка на источник
	Title     string    // Заголовок
	Platform  string    // reddit, twitter, linkedin, news, forum или review
	Snippet   string    // Цитата или фрагмент
	Sentiment string    // negative, neutral или positive
	Date      time.Time // Дата публикации источника
}

// RevenuePotential содержит стандартные фигуры оценки рынка для архетипа.
// Поля никогда не содержат NaN: отсутствующие значения заменяются
// производными от сырой оценки (см. пакет normalize).
type RevenuePotential struct {
	TAM          float64 // Total Addressable Market
	SAM          float64 // Serviceable Addressable Market
	SOM          float64 // Serviceable Obtainable Market
	EstimatedARR float64 // Сырая оценка годовой выручки
	Confidence   float64 // Уверенность модели, 0-1
}

// PainFilter описывает параметры выборки архетипов из хранилища.
type PainFilter struct {
	Search    string  // Подстрока для поиска по имени и описанию
	MinScore  float64 // Нижняя граница PainScore
	MaxScore  float64 // Верхняя граница PainScore
	SortBy    string  // pain_score, frequency или created_at
	SortOrder string  // asc или desc
	Limit     int
	Offset    int
}

// DummyPainFilter используется для приёма параметров фильтра из query-строки
// или JSON-запроса до их валидации.
type DummyPainFilter struct {
	Search    string  `json:"search,omitempty"`
	MinScore  float64 `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	MaxScore  float64 `json:"max_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	SortBy    string  `json:"sort_by,omitempty" validate:"omitempty,oneof=pain_score frequency created_at"`
	SortOrder string  `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit     int     `json:"limit,omitempty" validate:"omitempty,gt=0,lte=200"`
	Offset    int     `json:"offset,omitempty" validate:"omitempty,gte=0"`
}
