package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/natillera/internal/activity"
	"github.com/hitoshi/natillera/internal/model"
)

// ActivityHandler は活動のHTTPハンドラー。
type ActivityHandler struct {
	service  ActivityServiceInterface
	recorder Recorder
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(service ActivityServiceInterface, recorder Recorder) *ActivityHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ActivityHandler{service: service, recorder: recorder}
}

type activityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Income      int64  `json:"income"`
	Expense     int64  `json:"expense"`
	HeldOn      string `json:"held_on"`
}

type activityResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Income      int64  `json:"income"`
	Expense     int64  `json:"expense"`
	Net         int64  `json:"net"`
	HeldOn      string `json:"held_on"`
}

// List は活動一覧を返す。
// GET /api/activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]activityResponse, len(activities))
	for i, a := range activities {
		resp[i] = toActivityResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は活動を記録する。
// POST /api/activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	heldOn, err := parseDate("held_on", req.HeldOn)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	a, err := h.service.Create(r.Context(), activity.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Income:      req.Income,
		Expense:     req.Expense,
		HeldOn:      heldOn,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("activity")
	writeJSON(w, http.StatusCreated, toActivityResponse(a))
}

// Delete は活動の記録を削除する。
// DELETE /api/activities/{id}
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toActivityResponse(a *model.Activity) activityResponse {
	return activityResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Income:      a.Income,
		Expense:     a.Expense,
		Net:         a.Income - a.Expense,
		HeldOn:      formatDate(a.HeldOn),
	}
}
