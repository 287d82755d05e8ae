package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/painscope/internal/http/middlewarectx"
	"github.com/magabrotheeeer/painscope/internal/http/response"
	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
)

// Service описывает интерфейс выборки болевых точек.
type Service interface {
	List(ctx context.Context, userUID string, req models.DummyPainFilter) ([]*models.PainArchetype, error)
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
// @Summary Библиотека болевых точек
// @Description Возвращает архетипы пользователя с поиском, фильтром по баллу и сортировкой.
// @Tags Pains
// @Produce  json
// @Param search query string false "Подстрока поиска"
// @Param min_score query number false "Нижняя граница балла"
// @Param max_score query number false "Верхняя граница балла"
// @Param sort_by query string false "pain_score, frequency или created_at"
// @Param sort_order query string false "asc или desc"
// @Success 200 {object} map[string]any "Список архетипов"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /pains [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.pain.list"

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

	req := filterFromQuery(r)
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	res, err := h.service.List(r.Context(), userUID, req)
	if err != nil {
		log.Error("failed to list pains", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list pains"))
		return
	}

	log.Info("pains listed", "count", len(res))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(res),
		"pains":      res,
	}))
}

func filterFromQuery(r *http.Request) models.DummyPainFilter {
	q := r.URL.Query()
	var req models.DummyPainFilter
	req.Search = q.Get("search")
	req.SortBy = q.Get("sort_by")
	req.SortOrder = q.Get("sort_order")
	if v, err := strconv.ParseFloat(q.Get("min_score"), 64); err == nil {
		req.MinScore = v
	}
	if v, err := strconv.ParseFloat(q.Get("max_score"), 64); err == nil {
		req.MaxScore = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		req.Offset = v
	}
	return req
}
