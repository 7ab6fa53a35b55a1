package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/natillera/internal/member"
	"github.com/hitoshi/natillera/internal/model"
)

// --- GET /api/members テスト ---

func TestMemberHandler_List_ActiveOnlyQuery(t *testing.T) {
	var gotActiveOnly bool
	svc := &mockMemberService{
		listFn: func(ctx context.Context, activeOnly bool) ([]*model.Member, error) {
			gotActiveOnly = activeOnly
			return []*model.Member{
				{ID: "m-1", FullName: "Ana Gómez", DocumentID: "1020", Shares: 2, Active: true,
					JoinedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	h := NewMemberHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/members?active=true", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !gotActiveOnly {
		t.Error("expected activeOnly=true to be passed to the service")
	}

	var resp []memberResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].FullName != "Ana Gómez" || resp[0].JoinedAt != "2024-01-15" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMemberHandler_List_EmptyReturnsArray(t *testing.T) {
	h := NewMemberHandler(&mockMemberService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	w := httptest.NewRecorder()
	h.List(w, req)

	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

// --- GET /api/members/{id} テスト ---

func TestMemberHandler_Get_NotFound(t *testing.T) {
	h := NewMemberHandler(&mockMemberService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/members/missing", nil)
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeMemberNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeMemberNotFound)
	}
	if body["category"] != "data" || body["action"] == "" {
		t.Errorf("error body missing category/action: %v", body)
	}
}

// --- POST /api/members テスト ---

func TestMemberHandler_Create_Success(t *testing.T) {
	var got member.CreateInput
	svc := &mockMemberService{
		createFn: func(ctx context.Context, in member.CreateInput) (*model.Member, error) {
			got = in
			return &model.Member{ID: "m-9", FullName: in.FullName, DocumentID: in.DocumentID, Active: true, JoinedAt: in.JoinedAt}, nil
		},
	}
	rec := &mockRecorder{}
	h := NewMemberHandler(svc, rec)

	body := `{"full_name":"Luis Pérez","document_id":"3344","shares":3,"joined_at":"2024-02-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	if got.FullName != "Luis Pérez" || got.Shares != 3 {
		t.Errorf("input = %+v", got)
	}
	if !got.JoinedAt.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("JoinedAt = %v", got.JoinedAt)
	}
	if len(rec.created) != 1 || rec.created[0] != "member" {
		t.Errorf("recorded = %v, want [member]", rec.created)
	}
}

func TestMemberHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"invalid json", `{"full_name":`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"unknown field", `{"nombre":"x"}`, nil, http.StatusBadRequest, model.ErrCodeInvalidRequest},
		{"bad date", `{"full_name":"A","document_id":"1","joined_at":"01/02/2024"}`, nil, http.StatusBadRequest, model.ErrCodeInvalidField},
		{"validation", `{"full_name":"","document_id":"1"}`, model.NewInvalidFieldError("full_name"), http.StatusBadRequest, model.ErrCodeInvalidField},
		{"duplicate", `{"full_name":"A","document_id":"1"}`, model.NewDuplicateDocumentError("1"), http.StatusConflict, model.ErrCodeDuplicateDocument},
		{"internal", `{"full_name":"A","document_id":"1"}`, errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMemberService{
				createFn: func(ctx context.Context, in member.CreateInput) (*model.Member, error) {
					return nil, tt.serviceErr
				},
			}
			rec := &mockRecorder{}
			h := NewMemberHandler(svc, rec)

			req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Create(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if body := parseAPIErrorResponse(t, w); body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if len(rec.created) != 0 {
				t.Errorf("nothing should be recorded on failure, got %v", rec.created)
			}
		})
	}
}

// --- DELETE /api/members/{id} テスト ---

func TestMemberHandler_Withdraw_Success(t *testing.T) {
	var gotID string
	svc := &mockMemberService{
		withdrawFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	h := NewMemberHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/members/m-1", nil)
	req = withChiURLParam(req, "id", "m-1")
	w := httptest.NewRecorder()
	h.Withdraw(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != "m-1" {
		t.Errorf("id = %q, want m-1", gotID)
	}
}
