package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/api/models"
	"github.com/alertarea/alertarea/internal/api/response"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/validation"
)

// BroadcastHandler serves the broadcast lifecycle endpoints.
type BroadcastHandler struct {
	svc     *broadcast.Service
	store   *catalogue.Store
	builder *customarea.Builder
}

// NewBroadcastHandler creates a new BroadcastHandler.
func NewBroadcastHandler(svc *broadcast.Service, store *catalogue.Store, builder *customarea.Builder) *BroadcastHandler {
	return &BroadcastHandler{svc: svc, store: store, builder: builder}
}

// CreateBroadcast handles POST /v1/broadcasts - create a draft broadcast.
func (h *BroadcastHandler) CreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if input.Reference == "" {
		response.BadRequest(w, r, "reference is required", []models.FieldError{
			{Field: "reference", Message: "required"},
		})
		return
	}
	if err := validation.ValidateContent(input.Content); err != nil {
		writeDomainError(w, r, err)
		return
	}

	sel, err := h.resolveSelection(r.Context(), input.AreaIDs, input.CustomAreas)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	b, err := h.svc.Create(r.Context(), broadcast.CreateInput{
		Reference:     input.Reference,
		Content:       input.Content,
		Selection:     sel,
		ForceOverride: input.ForceOverride,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/broadcasts/%s", b.ID)
	response.Created(w, r, location, broadcastModel(b))
}

// ListBroadcasts handles GET /v1/broadcasts - list broadcasts, newest
// first. Repeat the status parameter to filter.
func (h *BroadcastHandler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	var opts broadcast.ListOptions
	for _, s := range r.URL.Query()["status"] {
		opts.Statuses = append(opts.Statuses, broadcast.Status(s))
	}

	items, err := h.svc.List(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := models.PagedBroadcasts{Items: make([]models.Broadcast, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, broadcastModel(b))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// GetBroadcast handles GET /v1/broadcasts/{broadcastId}.
func (h *BroadcastHandler) GetBroadcast(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "broadcastId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// UpdateSelection handles PUT /v1/broadcasts/{broadcastId}/selection -
// replace the selection of an editable broadcast.
func (h *BroadcastHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	sel, err := h.resolveSelection(r.Context(), input.AreaIDs, input.CustomAreas)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	b, err := h.svc.UpdateSelection(r.Context(), chi.URLParam(r, "broadcastId"), sel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// AddAreas handles POST /v1/broadcasts/{broadcastId}/areas - add
// areas to the selection of an editable broadcast.
func (h *BroadcastHandler) AddAreas(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	sel, err := h.resolveSelection(r.Context(), input.AreaIDs, input.CustomAreas)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	b, err := h.svc.AddAreas(r.Context(), chi.URLParam(r, "broadcastId"), sel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// RemoveArea handles DELETE /v1/broadcasts/{broadcastId}/areas/{areaId}
// - remove one area from the selection of an editable broadcast.
// Custom area ids contain spaces, so the path segment is unescaped.
func (h *BroadcastHandler) RemoveArea(w http.ResponseWriter, r *http.Request) {
	areaID := chi.URLParam(r, "areaId")
	if unescaped, err := url.PathUnescape(areaID); err == nil {
		areaID = unescaped
	}

	b, err := h.svc.RemoveArea(r.Context(), chi.URLParam(r, "broadcastId"), areaID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// UpdateContent handles PUT /v1/broadcasts/{broadcastId}/content -
// replace the message of an editable broadcast.
func (h *BroadcastHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var input models.BroadcastContentRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := validation.ValidateContent(input.Content); err != nil {
		writeDomainError(w, r, err)
		return
	}

	b, err := h.svc.UpdateContent(r.Context(), chi.URLParam(r, "broadcastId"), input.Content)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// SubmitBroadcast handles POST /v1/broadcasts/{broadcastId}/submit.
func (h *BroadcastHandler) SubmitBroadcast(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Submit)
}

// ApproveBroadcast handles POST /v1/broadcasts/{broadcastId}/approve.
func (h *BroadcastHandler) ApproveBroadcast(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Approve)
}

// RejectBroadcast handles POST /v1/broadcasts/{broadcastId}/reject.
func (h *BroadcastHandler) RejectBroadcast(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reject)
}

// CancelBroadcast handles POST /v1/broadcasts/{broadcastId}/cancel.
func (h *BroadcastHandler) CancelBroadcast(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

// CompleteBroadcast handles POST /v1/broadcasts/{broadcastId}/complete.
func (h *BroadcastHandler) CompleteBroadcast(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Complete)
}

func (h *BroadcastHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*broadcast.Broadcast, error)) {
	b, err := fn(r.Context(), chi.URLParam(r, "broadcastId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, broadcastModel(b))
}

// resolveSelection loads catalogue areas and builds custom areas for a
// request. A catalogue id that no longer exists is a not found error
// here, unlike on read-back where it marks drift.
func (h *BroadcastHandler) resolveSelection(ctx context.Context, areaIDs []string, specs []models.CustomAreaSpec) (aggregate.Selection, error) {
	var sel aggregate.Selection

	areas, err := h.store.GetAreas(areaIDs)
	if err != nil {
		return sel, err
	}
	if len(areas) != len(areaIDs) {
		found := make(map[string]bool, len(areas))
		for _, a := range areas {
			found[a.ID] = true
		}
		for _, id := range areaIDs {
			if !found[id] {
				return sel, &catalogue.NotFoundError{ID: id}
			}
		}
	}
	sel.Areas = areas

	for _, spec := range specs {
		area, err := resolveCustomArea(ctx, h.builder, spec)
		if err != nil {
			return sel, err
		}
		sel.Custom = append(sel.Custom, area)
	}
	return sel, nil
}

func broadcastModel(b *broadcast.Broadcast) models.Broadcast {
	return models.Broadcast{
		ID:                  b.ID,
		Reference:           b.Reference,
		Content:             b.Content,
		Status:              string(b.Status),
		AreaIDs:             b.AreaIDs,
		AreaNames:           b.AreaNames,
		AggregateNames:      b.AggregateNames,
		SimplePolygons:      b.SimplePolygons,
		AxisOrder:           broadcast.AxisOrderLatLong,
		ForceOverride:       b.ForceOverride,
		Drifted:             b.Drifted,
		CountOfPhones:       b.CountOfPhones,
		CountOfPhonesLikely: b.CountOfPhonesLikely,
		CreatedAt:           models.Timestamp(b.CreatedAt),
		UpdatedAt:           models.Timestamp(b.UpdatedAt),
	}
}
