// Package answer реализует HTTP-обработчик приёма ответа на очередной
// вопрос брифинга.
//
// Handler принимает JSON-запрос с ответом пользователя, валидирует его,
// извлекает UID пользователя из контекста, передаёт ответ бизнес-логике
// и возвращает следующий вопрос ассистента вместе с состоянием брифинга.
package answer

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
	"github.com/magabrotheeeer/painscope/internal/models"
	briefingservice "github.com/magabrotheeeer/painscope/internal/services/briefing"
)

// Service описывает интерфейс бизнес-логики диалога брифинга.
type Service interface {
	Answer(ctx context.Context, userUID string, req models.DummyBriefingAnswer) (*briefingservice.Turn, error)
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
// @Summary Ответить на вопрос брифинга
// @Description Принимает ответ пользователя и возвращает следующий вопрос. Первый ответ создает брифинг.
// @Tags Briefing
// @Accept  json
// @Produce  json
// @Param request body models.DummyBriefingAnswer true "Ответ пользователя"
// @Success 200 {object} map[string]any "Следующий вопрос и состояние брифинга"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Брифинг уже завершен"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /briefings/answer [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.briefing.answer"

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

	var req models.DummyBriefingAnswer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	turn, err := h.service.Answer(r.Context(), userUID, req)
	if err != nil {
		if errors.Is(err, briefingservice.ErrBriefingComplete) {
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("briefing is already complete"))
			return
		}
		log.Error("failed to process briefing answer", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to process answer"))
		return
	}

	log.Info("briefing answer processed", slog.String("briefing_id", turn.BriefingID))
	render.JSON(w, r, response.StatusOKWithData(turn))
}
