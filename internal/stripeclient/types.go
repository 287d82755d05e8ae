package stripeclient

import "encoding/json"

// CheckoutSessionParams параметры создания чекаут-сессии.
type CheckoutSessionParams struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	TrialDays         int
	Metadata          map[string]string
}

// CheckoutSession ответ Stripe на создание чекаут-сессии.
type CheckoutSession struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
}

// Subscription объект подписки Stripe.
type Subscription struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	TrialEnd int64             `json:"trial_end"`
	Metadata map[string]string `json:"metadata"`
	Items    struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Event событие вебхука Stripe. Data.Object декодируется по Type.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData содержит полезную нагрузку события как сырой JSON.
type EventData struct {
	Object json.RawMessage `json:"object"`
}
