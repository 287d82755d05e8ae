// Package checkoutcreate реализует HTTP-обработчик создания чекаут-сессии
// платёжного провайдера для перехода на платный план.
package checkoutcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	paymentservice "github.com/magabrotheeeer/painscope/internal/services/payment"
)

// Request — выбранная комбинация план/интервал
type Request struct {
	PlanID   string `json:"planId" validate:"required,oneof=pro enterprise"`
	Interval string `json:"interval" validate:"required,oneof=monthly yearly"`
}

// Service описывает интерфейс создания чекаут-сессии.
type Service interface {
	CreateCheckout(ctx context.Context, userUID, planID, interval string) (string, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать чекаут-сессию
// @Description Создает сессию оплаты для выбранного плана и возвращает URL оплаты.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "План и интервал оплаты"
// @Success 200 {object} map[string]any "URL оплаты"
// @Failure 400 {object} response.ErrorResponse "Неизвестный план"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера или конфигурации"
// @Router /billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkoutcreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	url, err := h.service.CreateCheckout(r.Context(), userUID, req.PlanID, req.Interval)
	if err != nil {
		switch {
		case errors.Is(err, paymentservice.ErrUnknownPlan):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan or interval"))
		case errors.Is(err, paymentservice.ErrPriceNotConfigured):
			// Деталь конфигурации наружу не уходит.
			log.Error("price is not configured",
				slog.String("plan", req.PlanID), slog.String("interval", req.Interval))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("checkout is temporarily unavailable"))
		default:
			log.Error("failed to create checkout session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(err.Error()))
		}
		return
	}

	log.Info("checkout session created", slog.String("plan", req.PlanID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"url": url,
	}))
}
