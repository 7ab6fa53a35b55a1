package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/natillera/internal/member"
	"github.com/hitoshi/natillera/internal/model"
)

// MemberHandler は会員管理のHTTPハンドラー。
type MemberHandler struct {
	service  MemberServiceInterface
	recorder Recorder
}

// NewMemberHandler はMemberHandlerを生成する。
func NewMemberHandler(service MemberServiceInterface, recorder Recorder) *MemberHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &MemberHandler{service: service, recorder: recorder}
}

// createMemberRequest は会員登録リクエストのボディ。
type createMemberRequest struct {
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Shares     int    `json:"shares"`
	Notes      string `json:"notes"`
	JoinedAt   string `json:"joined_at"`
}

// memberResponse は会員情報のAPIレスポンス。
type memberResponse struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	DocumentID string `json:"document_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Shares     int    `json:"shares"`
	Notes      string `json:"notes"`
	Active     bool   `json:"active"`
	JoinedAt   string `json:"joined_at"`
}

// List は会員一覧を返す。
// GET /api/members?active=true
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	members, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]memberResponse, len(members))
	for i, m := range members {
		resp[i] = toMemberResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は会員の詳細を返す。
// GET /api/members/{id}
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(m))
}

// Create は会員を登録する。
// POST /api/members
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	joinedAt, err := parseDate("joined_at", req.JoinedAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	m, err := h.service.Create(r.Context(), member.CreateInput{
		FullName:   req.FullName,
		DocumentID: req.DocumentID,
		Phone:      req.Phone,
		Email:      req.Email,
		Shares:     req.Shares,
		Notes:      req.Notes,
		JoinedAt:   joinedAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("member")
	writeJSON(w, http.StatusCreated, toMemberResponse(m))
}

// Withdraw は会員を退会扱いにする。
// DELETE /api/members/{id}
func (h *MemberHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Withdraw(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toMemberResponse(m *model.Member) memberResponse {
	return memberResponse{
		ID:         m.ID,
		FullName:   m.FullName,
		DocumentID: m.DocumentID,
		Phone:      m.Phone,
		Email:      m.Email,
		Shares:     m.Shares,
		Notes:      m.Notes,
		Active:     m.Active,
		JoinedAt:   formatDate(m.JoinedAt),
	}
}
