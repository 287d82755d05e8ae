package normalize

import (
	"encoding/json"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// BuildReport собирает запись истории отчётов из полезной нагрузки вебхука.
// Идентификатор, владелец и время создания проставляются слоем персистенции.
func BuildReport(payload map[string]any) models.Report {
	metrics := Metrics(payload)
	raw := rawPains(payload)

	report := models.Report{
		PainCount:    len(raw),
		AvgPainScore: metrics.AveragePainScore,
		Metrics:      metrics,
	}
	if len(raw) > 0 {
		report.TopPain = str(raw[0], "archetype", "name")
	}
	if s, ok := payload["comprehensiveReport"].(string); ok {
		report.ComprehensiveReport = s
	}
	if sd, ok := payload["aiStructuredData"].(map[string]any); ok {
		if b, err := json.Marshal(sd); err == nil {
			report.StructuredData = b
		}
	}
	if snapshot := painSnapshot(payload); snapshot != nil {
		report.PainSnapshot = snapshot
	}
	return report
}

// painSnapshot сохраняет сырой список архетипов как есть, без нормализации:
// снимок нужен для воспроизведения отчёта в том виде, в котором он был получен.
func painSnapshot(payload map[string]any) json.RawMessage {
	list, ok := payload["painLibrary"].([]any)
	if !ok {
		list, ok = payload["pains"].([]any)
	}
	if !ok {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return b
}
