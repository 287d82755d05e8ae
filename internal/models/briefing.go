package models

import (
	"encoding/json"
	"time"
)

// Briefing представляет структурированную анкету бизнес-контекста,
// которую пользователь заполняет перед запуском исследования.
// После финализации запись неизменяема, кроме поля ResearchData.
type Briefing struct {
	ID              string          // Уникальный идентификатор брифинга
	UserUID         string          // Владелец брифинга
	Industry        string          // Отрасль
	ProductFocus    string          // Продуктовый фокус
	Competitors     []string        // Список конкурентов
	TargetAudience  string          // Целевая аудитория
	AdditionalNotes string          // Дополнительные заметки
	IsComplete      bool            // Финализирован ли брифинг
	ResearchData    json.RawMessage // Сырой результат исследования (после получения)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ChatMessage представляет одну реплику диалога брифинга.
// Сообщения сохраняются в порядке появления и носят справочный характер:
// ошибка их записи не прерывает основной поток.
type ChatMessage struct {
	ID         string // Уникальный идентификатор сообщения
	BriefingID string // Брифинг, к которому относится сообщение
	Role       string // user или assistant
	Content    string // Текст сообщения
	CreatedAt  time.Time
}

// DummyBriefingAnswer используется для приёма ответа на очередной вопрос
// брифинга из JSON-запроса до его обработки бизнес-логикой.
type DummyBriefingAnswer struct {
	BriefingID string `json:"briefing_id,omitempty" validate:"omitempty,uuid"` // Пустой при первом ответе
	Answer     string `json:"answer" validate:"required"`                      // Текст ответа пользователя
}

// DummyBriefingUpdate используется для правки полей брифинга на этапе
// подтверждения, до отправки на исследование.
type DummyBriefingUpdate struct {
	Industry        *string  `json:"industry,omitempty"`
	ProductFocus    *string  `json:"product_focus,omitempty"`
	Competitors     []string `json:"competitors,omitempty"`
	TargetAudience  *string  `json:"target_audience,omitempty"`
	AdditionalNotes *string  `json:"additional_notes,omitempty"`
}
