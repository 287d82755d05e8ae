package researchclient

// BriefingData данные брифинга в том виде, который ожидает конвейер.
type BriefingData struct {
	Industry        string   `json:"industry"`
	ProductFocus    string   `json:"productFocus"`
	Competitors     []string `json:"competitors"`
	TargetAudience  string   `json:"targetAudience"`
	AdditionalNotes string   `json:"additionalNotes,omitempty"`
}

// StartResearchRequest тело запроса запуска исследования.
type StartResearchRequest struct {
	UserID       string       `json:"userId"`
	BriefingID   string       `json:"briefingId"`
	BriefingData BriefingData `json:"briefingData"`
	Timestamp    string       `json:"timestamp"`
	Action       string       `json:"action"`
}
