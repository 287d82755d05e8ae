// Package normalize приводит произвольно устроенные JSON-ответы
// исследовательского вебхука к каноническим доменным структурам.
//
// Вебхук может присылать ключи в camelCase или snake_case, оборачивать
// результат в массив из одного элемента, прятать оценки выручки в разных
// местах или вовсе опускать поля. Правило разрешения для каждого логического
// поля: сначала camelCase-ключ, затем snake_case, затем документированное
// значение по умолчанию. Некорректный вход никогда не приводит к ошибке —
// функции деградируют до частичного или пустого результата.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// Значения по умолчанию для оценки выручки: при отсутствии явных фигур
// рынок выводится из сырой оценки ARR.
const (
	tamMultiplier     = 10
	samMultiplier     = 2.5
	somMultiplier     = 0.5
	defaultConfidence = 0.7
)

// Unwrap извлекает объект полезной нагрузки из сырого JSON-значения.
// Массив разворачивается до первого элемента (n8n в режиме "All Incoming
// Items" оборачивает ответ в массив); пустой массив и любые не-объекты
// дают явный пустой результат (nil, false).
func Unwrap(data any) (map[string]any, bool) {
	switch v := data.(type) {
	case map[string]any:
		return v, true
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		first, ok := v[0].(map[string]any)
		return first, ok
	default:
		return nil, false
	}
}

// Pains возвращает канонический список болевых архетипов из полезной
// нагрузки вебхука. Список ищется по ключу painLibrary, затем pains;
// если списка нет — возвращается nil.
func Pains(payload map[string]any) []models.PainArchetype {
	raw := rawPains(payload)
	if raw == nil {
		return nil
	}
	result := make([]models.PainArchetype, 0, len(raw))
	for _, item := range raw {
		result = append(result, Pain(item))
	}
	return result
}

// rawPains возвращает список архетипов как сырые объекты, сохраняя порядок.
func rawPains(payload map[string]any) []map[string]any {
	list, ok := payload["painLibrary"].([]any)
	if !ok {
		list, ok = payload["pains"].([]any)
	}
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// Pain приводит один элемент списка к канонической форме. Нормализация
// идемпотентна: повторный проход по уже каноническому объекту возвращает
// идентичную запись.
func Pain(r map[string]any) models.PainArchetype {
	score := number(r, 0, "painScore", "pain_score")

	return models.PainArchetype{
		ID:                    painID(r),
		Name:                  str(r, "archetype", "name"),
		Description:           str(r, "description"),
		PainScore:             score,
		Severity:              number(r, 0, "severity"),
		Frequency:             number(r, 0, "frequency"),
		Urgency:               number(r, 0, "urgency"),
		CompetitiveSaturation: number(r, 0, "competitiveSaturation", "competitive_saturation"),
		Sources:               sources(r),
		Revenue:               revenue(r),
		Tags:                  strSlice(r, "tags"),
		FrequencyHistory:      frequencyHistory(r, score),
		CreatedAt:             createdAt(r),
	}
}

// Metrics приводит метрики дашборда к единым именам полей.
// Отсутствие блока dashboardMetrics даёт нулевые метрики.
func Metrics(payload map[string]any) models.DashboardMetrics {
	raw, ok := payload["dashboardMetrics"].(map[string]any)
	if !ok {
		return models.DashboardMetrics{}
	}
	return models.DashboardMetrics{
		TotalPainsDiscovered: number(raw, 0, "painsDiscovered", "totalPainsDiscovered"),
		AveragePainScore:     number(raw, 0, "avgPainScore", "averagePainScore"),
		SourcesAnalyzed:      number(raw, 0, "sourcesAnalyzed"),
		ActiveAgents:         number(raw, 0, "activeAgents"),
	}
}

// revenue собирает оценку выручки. Сырая оценка берётся из
// revenuePotential.raw, затем из estimatedARR/estimated_arr; фигуры рынка,
// которых нет, выводятся как кратные сырой оценки, чтобы в выводе никогда
// не оказался NaN.
func revenue(r map[string]any) models.RevenuePotential {
	rev, ok := r["revenuePotential"].(map[string]any)
	if !ok {
		rev, _ = r["revenue_potential"].(map[string]any)
	}
	raw, found := 0.0, false
	if v, exists := rev["raw"]; exists {
		raw, found = toFloat(v)
	}
	if !found {
		raw = number(rev, 0, "estimatedARR", "estimated_arr")
	}
	return models.RevenuePotential{
		TAM:          number(rev, raw*tamMultiplier, "tam"),
		SAM:          number(rev, raw*samMultiplier, "sam"),
		SOM:          number(rev, raw*somMultiplier, "som"),
		EstimatedARR: raw,
		Confidence:   number(rev, defaultConfidence, "confidence"),
	}
}

// sources разворачивает массив sources либо продвигает одиночный topSource
// в список из одного элемента. Ни того, ни другого — пустой список.
func sources(r map[string]any) []models.PainSource {
	if list, ok := r["sources"].([]any); ok {
		result := make([]models.PainSource, 0, len(list))
		for i, v := range list {
			s, ok := v.(map[string]any)
			if !ok {
				continue
			}
			id := str(s, "id")
			if id == "" {
				id = "s-" + strconv.Itoa(i)
			}
			result = append(result, models.PainSource{
				ID:        id,
				URL:       str(s, "url"),
				Title:     str(s, "title"),
				Platform:  defaulted(str(s, "platform"), "forum"),
				Snippet:   str(s, "snippet"),
				Sentiment: defaulted(str(s, "sentiment"), "neutral"),
				Date:      date(s["date"], time.Now().UTC()),
			})
		}
		return result
	}

	ts, ok := r["topSource"].(map[string]any)
	if !ok {
		return []models.PainSource{}
	}
	return []models.PainSource{{
		ID:        "s-0",
		URL:       str(ts, "url"),
		Title:     str(ts, "title", "name"),
		Platform:  topSourcePlatform(str(ts, "name")),
		Snippet:   str(r, "description"),
		Sentiment: "negative",
		Date:      date(r["timestamp"], time.Now().UTC()),
	}}
}

// topSourcePlatform выводит платформу из имени источника n8n.
func topSourcePlatform(name string) string {
	if strings.EqualFold(name, "news") {
		return "news"
	}
	return "forum"
}

// frequencyHistory возвращает историческую серию либо синтетический
// ряд из шести точек, плавно выходящий на текущую оценку.
func frequencyHistory(r map[string]any, score float64) []float64 {
	hist := floats(r, "frequencyHistory", "frequency_history")
	if len(hist) > 0 {
		return hist
	}
	return []float64{score * 0.5, score * 0.6, score * 0.7, score * 0.8, score * 0.9, score}
}

func painID(r map[string]any) string {
	if id := str(r, "id"); id != "" {
		return id
	}
	return "pain-" + uuid.NewString()
}

func createdAt(r map[string]any) time.Time {
	for _, key := range []string{"createdAt", "created_at", "timestamp"} {
		if v, ok := r[key]; ok {
			if t := date(v, time.Time{}); !t.IsZero() {
				return t
			}
		}
	}
	return time.Now().UTC()
}

// date разбирает дату из строки RFC3339, даты без времени или unix-времени
// в миллисекундах. Неразборчивое значение заменяется fallback.
func date(v any, fallback time.Time) time.Time {
	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", x); err == nil {
			return t
		}
	case float64:
		if !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0 {
			return time.UnixMilli(int64(x)).UTC()
		}
	}
	return fallback
}

// number возвращает первое конечное числовое значение по списку ключей.
// NaN и бесконечности никогда не пропускаются в результат.
func number(r map[string]any, def float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if f, ok := toFloat(v); ok {
				return f
			}
		}
	}
	return def
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func str(r map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := r[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func strSlice(r map[string]any, key string) []string {
	list, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	result := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func floats(r map[string]any, keys ...string) []float64 {
	for _, k := range keys {
		list, ok := r[k].([]any)
		if !ok {
			continue
		}
		result := make([]float64, 0, len(list))
		for _, v := range list {
			if f, ok := toFloat(v); ok {
				result = append(result, f)
			}
		}
		return result
	}
	return nil
}

func defaulted(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
