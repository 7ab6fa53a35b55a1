package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/natillera/internal/ledger"
	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

func TestLedgerHandler_ListContributions_PassesFilter(t *testing.T) {
	var got repository.ContributionFilter
	svc := &mockLedgerService{
		listContributionsFn: func(ctx context.Context, filter repository.ContributionFilter) ([]*model.Contribution, error) {
			got = filter
			return []*model.Contribution{{ID: "c-1", MemberID: "m-1", Period: "2024-03", Amount: 50000}}, nil
		},
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/contributions?member_id=m-1&period=2024-03", nil)
	w := httptest.NewRecorder()
	h.ListContributions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.MemberID != "m-1" || got.Period != "2024-03" {
		t.Errorf("filter = %+v", got)
	}
}

func TestLedgerHandler_CreateContribution_InvalidPeriod(t *testing.T) {
	svc := &mockLedgerService{
		recordContributionFn: func(ctx context.Context, in ledger.ContributionInput) (*model.Contribution, error) {
			return nil, model.NewInvalidPeriodError(in.Period)
		},
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/contributions",
		strings.NewReader(`{"member_id":"m-1","period":"2024-13","amount":50000}`))
	w := httptest.NewRecorder()
	h.CreateContribution(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeInvalidPeriod {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidPeriod)
	}
}

func TestLedgerHandler_CreateContribution_RecordsMetric(t *testing.T) {
	rec := &mockRecorder{}
	h := NewLedgerHandler(&mockLedgerService{}, rec)

	req := httptest.NewRequest(http.MethodPost, "/api/contributions",
		strings.NewReader(`{"member_id":"m-1","period":"2024-03","amount":50000,"paid_at":"2024-03-05"}`))
	w := httptest.NewRecorder()
	h.CreateContribution(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	if len(rec.created) != 1 || rec.created[0] != "contribution" {
		t.Errorf("recorded = %v", rec.created)
	}
}

func TestLedgerHandler_MarkLateFeePaid_NotFound(t *testing.T) {
	svc := &mockLedgerService{
		markLateFeePaidFn: func(ctx context.Context, id string) error {
			return model.NewRecordNotFoundError("multa", id)
		},
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/late-fees/f-1/paid", nil)
	req = withChiURLParam(req, "id", "f-1")
	w := httptest.NewRecorder()
	h.MarkLateFeePaid(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLedgerHandler_ListCashMovements_Limit(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"no limit", "", http.StatusOK, 0},
		{"explicit limit", "?limit=25", http.StatusOK, 25},
		{"negative limit", "?limit=-1", http.StatusBadRequest, -1},
		{"non numeric", "?limit=abc", http.StatusBadRequest, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit := -1
			svc := &mockLedgerService{
				listCashMovementsFn: func(ctx context.Context, limit int) ([]*model.CashMovement, error) {
					gotLimit = limit
					return nil, nil
				},
			}
			h := NewLedgerHandler(svc, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/cash-movements"+tt.query, nil)
			w := httptest.NewRecorder()
			h.ListCashMovements(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestLedgerHandler_CreateCashMovement_InvalidKind(t *testing.T) {
	svc := &mockLedgerService{
		recordCashMovementFn: func(ctx context.Context, in ledger.CashMovementInput) (*model.CashMovement, error) {
			return nil, model.NewInvalidMovementKindError(string(in.Kind))
		},
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/cash-movements",
		strings.NewReader(`{"kind":"sideways","concept":"x","amount":10}`))
	w := httptest.NewRecorder()
	h.CreateCashMovement(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := parseAPIErrorResponse(t, w); body["code"] != model.ErrCodeInvalidMovementKind {
		t.Errorf("code = %q", body["code"])
	}
}

func TestLedgerHandler_CashBalance(t *testing.T) {
	svc := &mockLedgerService{
		cashBalanceFn: func(ctx context.Context) (int64, error) { return 1250000, nil },
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cash-movements/balance", nil)
	w := httptest.NewRecorder()
	h.CashBalance(w, req)

	var resp balanceResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Balance != 1250000 {
		t.Errorf("balance = %d, want 1250000", resp.Balance)
	}
}

func TestLedgerHandler_Settlement(t *testing.T) {
	tests := []struct {
		name       string
		year       string
		serviceErr error
		wantStatus int
	}{
		{"valid", "2024", nil, http.StatusOK},
		{"not a number", "dos-mil", nil, http.StatusBadRequest},
		{"out of range", "1999", model.NewInvalidYearError(1999), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLedgerService{
				settlementFn: func(ctx context.Context, year int) (*model.Settlement, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &model.Settlement{
						Year:               year,
						Members:            []model.MemberSettlement{{MemberID: "m-1", FullName: "Ana", Contributed: 600000}},
						TotalContributions: 600000,
						TotalInterest:      45000,
					}, nil
				},
			}
			h := NewLedgerHandler(svc, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/settlements/"+tt.year, nil)
			req = withChiURLParam(req, "year", tt.year)
			w := httptest.NewRecorder()
			h.Settlement(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp settlementResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Year != 2024 || resp.TotalInterest != 45000 || len(resp.Members) != 1 {
				t.Errorf("unexpected response: %+v", resp)
			}
		})
	}
}

func TestLedgerHandler_DeleteBankFee_NoContent(t *testing.T) {
	var gotID string
	svc := &mockLedgerService{
		deleteBankFeeFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	h := NewLedgerHandler(svc, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/bank-fees/b-1", nil)
	req = withChiURLParam(req, "id", "b-1")
	w := httptest.NewRecorder()
	h.DeleteBankFee(w, req)

	if w.Code != http.StatusNoContent || gotID != "b-1" {
		t.Errorf("status = %d id = %q", w.Code, gotID)
	}
}
