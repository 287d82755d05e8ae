package stripewebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/metrics"
	"github.com/magabrotheeeer/painscope/internal/stripeclient"
)

type Service interface {
	ProcessWebhookEvent(ctx context.Context, event stripeclient.Event) error
}

type Handler struct {
	log           *slog.Logger // Логгер для записи информации и ошибок
	service       Service
	webhookSecret string // Секрет для проверки подписи
}

func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.stripewebhook"
	log := h.log.With(slog.String("op", op))

	// Пустой секрет означает, что HMAC-ключ не настроен: проверка подписи
	// с пустым ключом пропустила бы подделанные запросы.
	if h.webhookSecret == "" {
		log.Error("stripe webhook secret is not configured")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Подпись проверяется до какого-либо разбора тела: запрос без
	// валидной подписи не должен трогать хранилище.
	signature := r.Header.Get("Stripe-Signature")
	if err := stripeclient.VerifySignature(body, signature, h.webhookSecret); err != nil {
		log.Error("invalid webhook signature", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var event stripeclient.Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook event", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.service.ProcessWebhookEvent(r.Context(), event); err != nil {
		log.Error("failed to process webhook event", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	metrics.StripeEvents.WithLabelValues(event.Type).Inc()

	log.Info("webhook processed successfully",
		slog.String("event_id", event.ID), slog.String("type", event.Type))
	render.JSON(w, r, map[string]any{"received": true})
}
