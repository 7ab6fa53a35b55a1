package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/natillera/internal/loan"
	"github.com/hitoshi/natillera/internal/model"
)

// LoanHandler は貸付と利息支払いのHTTPハンドラー。
type LoanHandler struct {
	service  LoanServiceInterface
	recorder Recorder
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface, recorder Recorder) *LoanHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LoanHandler{service: service, recorder: recorder}
}

type createLoanRequest struct {
	MemberID    string `json:"member_id"`
	Principal   int64  `json:"principal"`
	MonthlyRate int    `json:"monthly_rate"`
	IssuedAt    string `json:"issued_at"`
	DueAt       string `json:"due_at"`
}

type updateLoanStatusRequest struct {
	Status string `json:"status"`
}

type loanResponse struct {
	ID          string  `json:"id"`
	MemberID    string  `json:"member_id"`
	Principal   int64   `json:"principal"`
	MonthlyRate int     `json:"monthly_rate"`
	Status      string  `json:"status"`
	IssuedAt    string  `json:"issued_at"`
	DueAt       *string `json:"due_at"`
}

type interestPaymentRequest struct {
	LoanID string `json:"loan_id"`
	Amount int64  `json:"amount"`
	PaidAt string `json:"paid_at"`
}

type interestPaymentResponse struct {
	ID       string `json:"id"`
	LoanID   string `json:"loan_id"`
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
	PaidAt   string `json:"paid_at"`
}

type interestTotalResponse struct {
	Total int64 `json:"total"`
}

// List は貸付一覧を返す。
// GET /api/loans?status=active
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]loanResponse, len(loans))
	for i, l := range loans {
		resp[i] = toLoanResponse(l)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は貸付を登録する。
// POST /api/loans
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	issuedAt, err := parseDate("issued_at", req.IssuedAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var dueAt *time.Time
	if req.DueAt != "" {
		d, err := parseDate("due_at", req.DueAt)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		dueAt = &d
	}

	l, err := h.service.Create(r.Context(), loan.CreateInput{
		MemberID:    req.MemberID,
		Principal:   req.Principal,
		MonthlyRate: req.MonthlyRate,
		IssuedAt:    issuedAt,
		DueAt:       dueAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("loan")
	writeJSON(w, http.StatusCreated, toLoanResponse(l))
}

// UpdateStatus は貸付の状態を更新する。
// PUT /api/loans/{id}/status
func (h *LoanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateLoanStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPayments は利息支払いの履歴を返す。
// GET /api/interest-payments
func (h *LoanHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.History(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]interestPaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toInterestPaymentResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePayment は利息の支払いを記録する。
// POST /api/interest-payments
func (h *LoanHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req interestPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	paidAt, err := parseDate("paid_at", req.PaidAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := h.service.RecordPayment(r.Context(), loan.PaymentInput{
		LoanID: req.LoanID,
		Amount: req.Amount,
		PaidAt: paidAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("interest_payment")
	writeJSON(w, http.StatusCreated, toInterestPaymentResponse(p))
}

// Total は利息支払いの合計額を返す。
// GET /api/interest-payments/total
func (h *LoanHandler) Total(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.Total(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interestTotalResponse{Total: total})
}

func toLoanResponse(l *model.Loan) loanResponse {
	resp := loanResponse{
		ID:          l.ID,
		MemberID:    l.MemberID,
		Principal:   l.Principal,
		MonthlyRate: l.MonthlyRate,
		Status:      string(l.Status),
		IssuedAt:    formatDate(l.IssuedAt),
	}
	if l.DueAt != nil {
		d := formatDate(*l.DueAt)
		resp.DueAt = &d
	}
	return resp
}

func toInterestPaymentResponse(p *model.InterestPayment) interestPaymentResponse {
	return interestPaymentResponse{
		ID:       p.ID,
		LoanID:   p.LoanID,
		MemberID: p.MemberID,
		Amount:   p.Amount,
		PaidAt:   formatDate(p.PaidAt),
	}
}
