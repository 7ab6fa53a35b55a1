package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/natillera/internal/ledger"
	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

// LedgerHandler は掛金・延滞金・金庫・銀行手数料・年次精算のHTTPハンドラー。
type LedgerHandler struct {
	service  LedgerServiceInterface
	recorder Recorder
}

// NewLedgerHandler はLedgerHandlerを生成する。
func NewLedgerHandler(service LedgerServiceInterface, recorder Recorder) *LedgerHandler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LedgerHandler{service: service, recorder: recorder}
}

type contributionRequest struct {
	MemberID string `json:"member_id"`
	Period   string `json:"period"`
	Amount   int64  `json:"amount"`
	PaidAt   string `json:"paid_at"`
}

type contributionResponse struct {
	ID       string `json:"id"`
	MemberID string `json:"member_id"`
	Period   string `json:"period"`
	Amount   int64  `json:"amount"`
	PaidAt   string `json:"paid_at"`
}

type lateFeeRequest struct {
	MemberID string `json:"member_id"`
	Period   string `json:"period"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

type lateFeeResponse struct {
	ID       string `json:"id"`
	MemberID string `json:"member_id"`
	Period   string `json:"period"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
	Paid     bool   `json:"paid"`
}

type cashMovementRequest struct {
	Kind       string `json:"kind"`
	Concept    string `json:"concept"`
	Amount     int64  `json:"amount"`
	OccurredAt string `json:"occurred_at"`
}

type cashMovementResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Concept    string `json:"concept"`
	Amount     int64  `json:"amount"`
	OccurredAt string `json:"occurred_at"`
}

type bankFeeRequest struct {
	Concept   string `json:"concept"`
	Amount    int64  `json:"amount"`
	ChargedAt string `json:"charged_at"`
}

type bankFeeResponse struct {
	ID        string `json:"id"`
	Concept   string `json:"concept"`
	Amount    int64  `json:"amount"`
	ChargedAt string `json:"charged_at"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type memberSettlementResponse struct {
	MemberID    string `json:"member_id"`
	FullName    string `json:"full_name"`
	Contributed int64  `json:"contributed"`
}

type settlementResponse struct {
	Year               int                        `json:"year"`
	Members            []memberSettlementResponse `json:"members"`
	TotalContributions int64                      `json:"total_contributions"`
	TotalInterest      int64                      `json:"total_interest"`
	TotalLateFees      int64                      `json:"total_late_fees"`
	TotalBankFees      int64                      `json:"total_bank_fees"`
	TotalActivities    int64                      `json:"total_activities"`
	CashBalance        int64                      `json:"cash_balance"`
}

// --- 掛金 ---

// ListContributions は掛金一覧を返す。
// GET /api/contributions?member_id=...&period=YYYY-MM
func (h *LedgerHandler) ListContributions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	contributions, err := h.service.ListContributions(r.Context(), repository.ContributionFilter{
		MemberID: q.Get("member_id"),
		Period:   q.Get("period"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]contributionResponse, len(contributions))
	for i, c := range contributions {
		resp[i] = toContributionResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateContribution は掛金の支払いを記録する。
// POST /api/contributions
func (h *LedgerHandler) CreateContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	paidAt, err := parseDate("paid_at", req.PaidAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	c, err := h.service.RecordContribution(r.Context(), ledger.ContributionInput{
		MemberID: req.MemberID,
		Period:   req.Period,
		Amount:   req.Amount,
		PaidAt:   paidAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("contribution")
	writeJSON(w, http.StatusCreated, toContributionResponse(c))
}

// DeleteContribution は掛金の記録を削除する。
// DELETE /api/contributions/{id}
func (h *LedgerHandler) DeleteContribution(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteContribution(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 延滞金 ---

// ListLateFees は延滞金一覧を返す。
// GET /api/late-fees?member_id=...
func (h *LedgerHandler) ListLateFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.service.ListLateFees(r.Context(), r.URL.Query().Get("member_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]lateFeeResponse, len(fees))
	for i, f := range fees {
		resp[i] = toLateFeeResponse(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateLateFee は延滞金を記録する。
// POST /api/late-fees
func (h *LedgerHandler) CreateLateFee(w http.ResponseWriter, r *http.Request) {
	var req lateFeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	f, err := h.service.RecordLateFee(r.Context(), ledger.LateFeeInput{
		MemberID: req.MemberID,
		Period:   req.Period,
		Amount:   req.Amount,
		Reason:   req.Reason,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("late_fee")
	writeJSON(w, http.StatusCreated, toLateFeeResponse(f))
}

// MarkLateFeePaid は延滞金を支払済みにする。
// PUT /api/late-fees/{id}/paid
func (h *LedgerHandler) MarkLateFeePaid(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkLateFeePaid(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteLateFee は延滞金の記録を削除する。
// DELETE /api/late-fees/{id}
func (h *LedgerHandler) DeleteLateFee(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLateFee(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 中央金庫 ---

// ListCashMovements は金庫の入出金一覧を返す。
// GET /api/cash-movements?limit=N
func (h *LedgerHandler) ListCashMovements(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("limit"))
			return
		}
		limit = n
	}

	movements, err := h.service.ListCashMovements(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]cashMovementResponse, len(movements))
	for i, m := range movements {
		resp[i] = toCashMovementResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCashMovement は金庫の入出金を記録する。
// POST /api/cash-movements
func (h *LedgerHandler) CreateCashMovement(w http.ResponseWriter, r *http.Request) {
	var req cashMovementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	occurredAt, err := parseDate("occurred_at", req.OccurredAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	m, err := h.service.RecordCashMovement(r.Context(), ledger.CashMovementInput{
		Kind:       model.MovementKind(req.Kind),
		Concept:    req.Concept,
		Amount:     req.Amount,
		OccurredAt: occurredAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("cash_movement")
	writeJSON(w, http.StatusCreated, toCashMovementResponse(m))
}

// CashBalance は金庫の現在残高を返す。
// GET /api/cash-movements/balance
func (h *LedgerHandler) CashBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.CashBalance(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

// --- 銀行手数料 ---

// ListBankFees は銀行手数料一覧を返す。
// GET /api/bank-fees
func (h *LedgerHandler) ListBankFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.service.ListBankFees(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]bankFeeResponse, len(fees))
	for i, f := range fees {
		resp[i] = toBankFeeResponse(f)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateBankFee は銀行手数料を記録する。
// POST /api/bank-fees
func (h *LedgerHandler) CreateBankFee(w http.ResponseWriter, r *http.Request) {
	var req bankFeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	chargedAt, err := parseDate("charged_at", req.ChargedAt)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	f, err := h.service.RecordBankFee(r.Context(), ledger.BankFeeInput{
		Concept:   req.Concept,
		Amount:    req.Amount,
		ChargedAt: chargedAt,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRecordCreated("bank_fee")
	writeJSON(w, http.StatusCreated, toBankFeeResponse(f))
}

// DeleteBankFee は銀行手数料の記録を削除する。
// DELETE /api/bank-fees/{id}
func (h *LedgerHandler) DeleteBankFee(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBankFee(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- 年次精算 ---

// Settlement は指定年の年次精算を返す。
// GET /api/settlements/{year}
func (h *LedgerHandler) Settlement(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidFieldError("year"))
		return
	}

	s, err := h.service.Settlement(r.Context(), year)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementResponse(s))
}

// --- ヘルパー関数 ---

func toContributionResponse(c *model.Contribution) contributionResponse {
	return contributionResponse{
		ID:       c.ID,
		MemberID: c.MemberID,
		Period:   c.Period,
		Amount:   c.Amount,
		PaidAt:   formatDate(c.PaidAt),
	}
}

func toLateFeeResponse(f *model.LateFee) lateFeeResponse {
	return lateFeeResponse{
		ID:       f.ID,
		MemberID: f.MemberID,
		Period:   f.Period,
		Amount:   f.Amount,
		Reason:   f.Reason,
		Paid:     f.Paid,
	}
}

func toCashMovementResponse(m *model.CashMovement) cashMovementResponse {
	return cashMovementResponse{
		ID:         m.ID,
		Kind:       string(m.Kind),
		Concept:    m.Concept,
		Amount:     m.Amount,
		OccurredAt: formatDate(m.OccurredAt),
	}
}

func toBankFeeResponse(f *model.BankFee) bankFeeResponse {
	return bankFeeResponse{
		ID:        f.ID,
		Concept:   f.Concept,
		Amount:    f.Amount,
		ChargedAt: formatDate(f.ChargedAt),
	}
}

func toSettlementResponse(s *model.Settlement) settlementResponse {
	members := make([]memberSettlementResponse, len(s.Members))
	for i, m := range s.Members {
		members[i] = memberSettlementResponse{
			MemberID:    m.MemberID,
			FullName:    m.FullName,
			Contributed: m.Contributed,
		}
	}
	return settlementResponse{
		Year:               s.Year,
		Members:            members,
		TotalContributions: s.TotalContributions,
		TotalInterest:      s.TotalInterest,
		TotalLateFees:      s.TotalLateFees,
		TotalBankFees:      s.TotalBankFees,
		TotalActivities:    s.TotalActivities,
		CashBalance:        s.CashBalance,
	}
}
