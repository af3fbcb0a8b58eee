package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"onu-map/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Monitor is the aggregation surface served over HTTP
type Monitor interface {
	ListDevices(ctx context.Context, filters domain.Filters) ([]domain.DeviceRecord, error)
	ListDevicesWithLocation(ctx context.Context, filters domain.Filters) ([]domain.DeviceRecord, error)
	GroupsByBox(ctx context.Context, filters domain.Filters) ([]domain.BoxGroup, error)
	Statistics(ctx context.Context, filters domain.Filters) (*domain.StatsSummary, error)
	GetDevice(ctx context.Context, externalID string) (*domain.DeviceRecord, error)
	RecentEvents() domain.RecentEvents
	QuotaStatus() domain.QuotaStatus
	ListOLTs(ctx context.Context) ([]domain.OLT, error)
	InvalidateCache(ctx context.Context, key string) error
	FlushCache(ctx context.Context) error
}

// Handler serves the map API
type Handler struct {
	monitor  Monitor
	validate *validator.Validate
	logger   domain.Logger
}

// NewHandler creates the API handlers
func NewHandler(monitor Monitor, logger domain.Logger) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		return name
	})

	return &Handler{
		monitor:  monitor,
		validate: validate,
		logger:   logger,
	}
}

// BoxResponse is one splitter box with the mean position of its devices
type BoxResponse struct {
	Name     string                `json:"name"`
	Centroid domain.LatLng         `json:"centroid"`
	Count    int                   `json:"count"`
	Devices  []domain.DeviceRecord `json:"devices"`
}

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	devices, err := h.monitor.ListDevices(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, devices)
}

func (h *Handler) ListMapDevices(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	devices, err := h.monitor.ListDevicesWithLocation(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, devices)
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.monitor.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, device)
}

// ListBoxes answers the splitter boxes; boxes without a centroid are left out
func (h *Handler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	groups, err := h.monitor.GroupsByBox(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	boxes := make([]BoxResponse, 0, len(groups))
	for _, g := range groups {
		centroid, ok := g.Centroid()
		if !ok {
			continue
		}
		boxes = append(boxes, BoxResponse{
			Name:     g.Name,
			Centroid: centroid,
			Count:    len(g.Devices),
			Devices:  g.Devices,
		})
	}
	h.respondJSON(w, http.StatusOK, boxes)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	stats, err := h.monitor.Statistics(r.Context(), filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.monitor.RecentEvents())
}

func (h *Handler) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.monitor.QuotaStatus())
}

func (h *Handler) ListOLTs(w http.ResponseWriter, r *http.Request) {
	olts, err := h.monitor.ListOLTs(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, olts)
}

func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.monitor.FlushCache(r.Context()); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.Info("Cache flushed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		h.respondError(w, r, domain.NewError(domain.KindInvalidArgument, "invalidate", "cache key is required", nil))
		return
	}

	if err := h.monitor.InvalidateCache(r.Context(), key); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger.WithField("key", key).Info("Cache entry invalidated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseFilters reads and validates the filter query parameters
func (h *Handler) parseFilters(r *http.Request) (domain.Filters, error) {
	q := r.URL.Query()
	filters := domain.Filters{
		OLTID: strings.TrimSpace(q.Get("olt_id")),
		Board: strings.TrimSpace(q.Get("board")),
		Port:  strings.TrimSpace(q.Get("port")),
		Zone:  strings.TrimSpace(q.Get("zone")),
	}

	if err := h.validate.Struct(filters); err != nil {
		return domain.Filters{}, domain.NewError(domain.KindInvalidArgument, "filters", describeValidation(err), err)
	}
	return filters, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid filters"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" must be "+fe.Tag())
	}
	return strings.Join(fields, ", ")
}
