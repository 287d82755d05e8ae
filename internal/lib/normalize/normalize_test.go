package normalize

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected bool
	}{
		{
			name:     "объект возвращается как есть",
			input:    map[string]any{"painLibrary": []any{}},
			expected: true,
		},
		{
			name:     "массив разворачивается до первого элемента",
			input:    []any{map[string]any{"pains": []any{}}},
			expected: true,
		},
		{
			name:     "пустой массив даёт пустой результат",
			input:    []any{},
			expected: false,
		},
		{
			name:     "строка не является полезной нагрузкой",
			input:    "oops",
			expected: false,
		},
		{
			name:     "nil не является полезной нагрузкой",
			input:    nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok := Unwrap(tt.input)
			assert.Equal(t, tt.expected, ok)
			if !ok {
				assert.Nil(t, payload)
			}
		})
	}
}

func TestUnwrap_ArrayAndObjectEquivalent(t *testing.T) {
	obj := map[string]any{
		"painLibrary": []any{
			map[string]any{"archetype": "Churn risk", "painScore": 70.0},
		},
	}

	direct, ok := Unwrap(obj)
	require.True(t, ok)
	wrapped, ok := Unwrap([]any{obj})
	require.True(t, ok)

	assert.Equal(t, Pains(direct), Pains(wrapped))
}

func TestPains_KeyFallback(t *testing.T) {
	t.Run("painLibrary имеет приоритет", func(t *testing.T) {
		payload := map[string]any{
			"painLibrary": []any{map[string]any{"archetype": "A"}},
			"pains":       []any{map[string]any{"archetype": "B"}},
		}
		pains := Pains(payload)
		require.Len(t, pains, 1)
		assert.Equal(t, "A", pains[0].Name)
	})

	t.Run("pains используется при отсутствии painLibrary", func(t *testing.T) {
		payload := map[string]any{
			"pains": []any{map[string]any{"name": "B"}},
		}
		pains := Pains(payload)
		require.Len(t, pains, 1)
		assert.Equal(t, "B", pains[0].Name)
	})

	t.Run("без списка возвращается nil", func(t *testing.T) {
		assert.Nil(t, Pains(map[string]any{"dashboardMetrics": map[string]any{}}))
	})
}

func TestPain_CamelAndSnakeCase(t *testing.T) {
	camel := Pain(map[string]any{
		"id":        "pain-1",
		"archetype": "Slow onboarding",
		"painScore": 82.0,
	})
	snake := Pain(map[string]any{
		"id":         "pain-1",
		"name":       "Slow onboarding",
		"pain_score": 82.0,
	})

	assert.Equal(t, camel.Name, snake.Name)
	assert.Equal(t, camel.PainScore, snake.PainScore)
}

func TestRevenue_DerivedFromRaw(t *testing.T) {
	p := Pain(map[string]any{
		"id": "pain-1",
		"revenuePotential": map[string]any{
			"raw": 100.0,
		},
	})

	assert.Equal(t, 1000.0, p.Revenue.TAM)
	assert.Equal(t, 250.0, p.Revenue.SAM)
	assert.Equal(t, 50.0, p.Revenue.SOM)
	assert.Equal(t, 100.0, p.Revenue.EstimatedARR)
	assert.Equal(t, 0.7, p.Revenue.Confidence)
}

func TestRevenue_ExplicitFiguresWin(t *testing.T) {
	p := Pain(map[string]any{
		"id": "pain-1",
		"revenue_potential": map[string]any{
			"estimated_arr": 200.0,
			"tam":           5000.0,
			"confidence":    0.9,
		},
	})

	assert.Equal(t, 5000.0, p.Revenue.TAM)
	assert.Equal(t, 500.0, p.Revenue.SAM) // выводится из raw
	assert.Equal(t, 200.0, p.Revenue.EstimatedARR)
	assert.Equal(t, 0.9, p.Revenue.Confidence)
}

func TestRevenue_NeverNaN(t *testing.T) {
	p := Pain(map[string]any{
		"id": "pain-1",
		"revenuePotential": map[string]any{
			"raw":        math.NaN(),
			"confidence": math.Inf(1),
		},
	})

	for _, v := range []float64{p.Revenue.TAM, p.Revenue.SAM, p.Revenue.SOM,
		p.Revenue.EstimatedARR, p.Revenue.Confidence} {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
	assert.Equal(t, 0.0, p.Revenue.EstimatedARR)
	assert.Equal(t, 0.7, p.Revenue.Confidence)
}

func TestFrequencyHistory_SyntheticRamp(t *testing.T) {
	p := Pain(map[string]any{
		"id":        "pain-1",
		"painScore": 80.0,
	})

	require.Len(t, p.FrequencyHistory, 6)
	assert.InDelta(t, 40.0, p.FrequencyHistory[0], 0.001)
	assert.InDelta(t, 80.0, p.FrequencyHistory[5], 0.001)
	for i := 1; i < len(p.FrequencyHistory); i++ {
		assert.GreaterOrEqual(t, p.FrequencyHistory[i], p.FrequencyHistory[i-1])
	}
}

func TestFrequencyHistory_ExplicitSeriesKept(t *testing.T) {
	p := Pain(map[string]any{
		"id":               "pain-1",
		"painScore":        80.0,
		"frequencyHistory": []any{10.0, 20.0, 30.0},
	})
	assert.Equal(t, []float64{10, 20, 30}, p.FrequencyHistory)
}

func TestSources_TopSourcePromoted(t *testing.T) {
	p := Pain(map[string]any{
		"id":          "pain-1",
		"description": "Invoices arrive late",
		"topSource": map[string]any{
			"name": "News",
			"url":  "https://example.com/post",
		},
	})

	require.Len(t, p.Sources, 1)
	s := p.Sources[0]
	assert.Equal(t, "s-0", s.ID)
	assert.Equal(t, "https://example.com/post", s.URL)
	assert.Equal(t, "news", s.Platform)
	assert.Equal(t, "negative", s.Sentiment)
	assert.Equal(t, "Invoices arrive late", s.Snippet)
}

func TestSources_ListDefaults(t *testing.T) {
	p := Pain(map[string]any{
		"id": "pain-1",
		"sources": []any{
			map[string]any{"url": "https://a", "date": "2025-03-01"},
			map[string]any{"id": "src-9", "platform": "reddit", "sentiment": "positive"},
		},
	})

	require.Len(t, p.Sources, 2)
	assert.Equal(t, "s-0", p.Sources[0].ID)
	assert.Equal(t, "forum", p.Sources[0].Platform)
	assert.Equal(t, "neutral", p.Sources[0].Sentiment)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), p.Sources[0].Date)
	assert.Equal(t, "src-9", p.Sources[1].ID)
	assert.Equal(t, "reddit", p.Sources[1].Platform)
	assert.Equal(t, "positive", p.Sources[1].Sentiment)
}

func TestPain_Idempotent(t *testing.T) {
	first := Pain(map[string]any{
		"id":          "pain-1",
		"archetype":   "Manual reporting",
		"description": "Teams build reports by hand",
		"painScore":   64.0,
		"severity":    7.0,
		"revenuePotential": map[string]any{
			"raw": 50.0,
		},
		"tags":      []any{"ops"},
		"createdAt": "2025-06-01T10:00:00Z",
	})

	// Повторная нормализация канонического объекта возвращает ту же запись.
	b, err := json.Marshal(map[string]any{
		"id":          first.ID,
		"archetype":   first.Name,
		"description": first.Description,
		"painScore":   first.PainScore,
		"severity":    first.Severity,
		"revenuePotential": map[string]any{
			"raw":        first.Revenue.EstimatedARR,
			"tam":        first.Revenue.TAM,
			"sam":        first.Revenue.SAM,
			"som":        first.Revenue.SOM,
			"confidence": first.Revenue.Confidence,
		},
		"tags":             first.Tags,
		"frequencyHistory": first.FrequencyHistory,
		"createdAt":        first.CreatedAt.Format(time.RFC3339),
		"sources":          []any{},
	})
	require.NoError(t, err)
	var roundtrip map[string]any
	require.NoError(t, json.Unmarshal(b, &roundtrip))

	second := Pain(roundtrip)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.PainScore, second.PainScore)
	assert.Equal(t, first.Revenue, second.Revenue)
	assert.Equal(t, first.FrequencyHistory, second.FrequencyHistory)
}

func TestPain_GeneratedIDWhenMissing(t *testing.T) {
	p := Pain(map[string]any{"archetype": "No id"})
	assert.Contains(t, p.ID, "pain-")
}

func TestMetrics(t *testing.T) {
	t.Run("ключи дашборда приводятся к единым именам", func(t *testing.T) {
		m := Metrics(map[string]any{
			"dashboardMetrics": map[string]any{
				"painsDiscovered": 12.0,
				"avgPainScore":    66.5,
				"sourcesAnalyzed": 140.0,
				"activeAgents":    3.0,
			},
		})
		assert.Equal(t, 12.0, m.TotalPainsDiscovered)
		assert.Equal(t, 66.5, m.AveragePainScore)
		assert.Equal(t, 140.0, m.SourcesAnalyzed)
		assert.Equal(t, 3.0, m.ActiveAgents)
	})

	t.Run("без блока метрик возвращаются нули", func(t *testing.T) {
		m := Metrics(map[string]any{})
		assert.Zero(t, m.AveragePainScore)
		assert.Zero(t, m.TotalPainsDiscovered)
	})
}

func TestBuildReport_EndToEnd(t *testing.T) {
	raw := `{
		"painLibrary": [
			{
				"archetype": "Invoice delay",
				"description": "Invoices take weeks to reconcile",
				"painScore": 80,
				"topSource": {"name": "Fintech forum", "url": "https://forum.example/thread"}
			}
		],
		"dashboardMetrics": {"painsDiscovered": 1, "avgPainScore": 80},
		"comprehensiveReport": "# Fintech research"
	}`
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	payload, ok := Unwrap(decoded)
	require.True(t, ok)

	report := BuildReport(payload)
	assert.Equal(t, 1, report.PainCount)
	assert.Equal(t, 80.0, report.AvgPainScore)
	assert.Equal(t, "Invoice delay", report.TopPain)
	assert.Equal(t, "# Fintech research", report.ComprehensiveReport)
	assert.NotEmpty(t, report.PainSnapshot)

	pains := Pains(payload)
	require.Len(t, pains, 1)
	assert.Equal(t, "Invoice delay", pains[0].Name)
	assert.Equal(t, 80.0, pains[0].PainScore)
	assert.InDelta(t, 80.0, pains[0].FrequencyHistory[5], 0.001)
	require.Len(t, pains[0].Sources, 1)
	assert.Equal(t, "forum", pains[0].Sources[0].Platform)
}
