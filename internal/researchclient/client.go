// Package researchclient отправляет данные брифинга во внешний
// исследовательский конвейер и возвращает сырой JSON результата.
package researchclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

type Client struct {
	webhookURL string
	httpClient *http.Client
}

// NewClient создаёт новый клиент исследовательского вебхука.
// Таймаут длинный: конвейер отвечает только после завершения анализа.
func NewClient(webhookURL string, timeout time.Duration) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StartResearch запускает исследование и блокируется до получения результата.
// Форма ответа конвейера не фиксирована, поэтому результат декодируется в any
// и передаётся нормализатору как есть.
func (c *Client) StartResearch(ctx context.Context, reqParams StartResearchRequest) (any, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqParams); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
