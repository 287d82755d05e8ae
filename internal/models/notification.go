package models

// ReportNotification сообщение о готовом отчёте, публикуемое в брокер
// после завершения исследования.
type ReportNotification struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	ReportID  string  `json:"report_id"`
	TopPain   string  `json:"top_pain"`
	PainCount int     `json:"pain_count"`
	AvgScore  float64 `json:"avg_score"`
}

// AuthCodeNotification одноразовый код или токен, доставляемый пользователю
// по почте: подтверждение регистрации, вход по коду, сброс пароля.
type AuthCodeNotification struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Code     string `json:"code"`
}
