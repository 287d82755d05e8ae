package models

import "time"

// Возможные статусы фоновой задачи исследования.
const (
	AgentJobRunning   = "running"
	AgentJobCompleted = "completed"
	AgentJobError     = "error"
)

// AgentJob представляет фоновую задачу исследования, отслеживаемую на сервере.
// Клиент опрашивает её состояние с фиксированным интервалом; push-уведомлений нет.
type AgentJob struct {
	ID          string // Уникальный идентификатор задачи
	UserUID     string // Владелец задачи
	BriefingID  string // Брифинг, по которому идёт исследование
	Status      string // running, completed или error
	CurrentTask string // Описание текущего шага
	Progress    int    // Прогресс в процентах, 0-100
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgentLog представляет одну запись журнала фоновой задачи.
// Записи упорядочены по времени создания.
type AgentLog struct {
	ID        string // Уникальный идентификатор записи
	JobID     string // Задача, к которой относится запись
	Level     string // info, success, warning или error
	Message   string
	CreatedAt time.Time
}
