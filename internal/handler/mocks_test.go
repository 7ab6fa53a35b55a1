package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/natillera/internal/activity"
	"github.com/hitoshi/natillera/internal/identity"
	"github.com/hitoshi/natillera/internal/ledger"
	"github.com/hitoshi/natillera/internal/loan"
	"github.com/hitoshi/natillera/internal/member"
	"github.com/hitoshi/natillera/internal/middleware"
	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

// --- モック定義 ---

type mockMemberService struct {
	listFn     func(ctx context.Context, activeOnly bool) ([]*model.Member, error)
	getFn      func(ctx context.Context, id string) (*model.Member, error)
	createFn   func(ctx context.Context, in member.CreateInput) (*model.Member, error)
	withdrawFn func(ctx context.Context, id string) error
}

func (m *mockMemberService) List(ctx context.Context, activeOnly bool) ([]*model.Member, error) {
	if m.listFn != nil {
		return m.listFn(ctx, activeOnly)
	}
	return nil, nil
}

func (m *mockMemberService) Get(ctx context.Context, id string) (*model.Member, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewMemberNotFoundError(id)
}

func (m *mockMemberService) Create(ctx context.Context, in member.CreateInput) (*model.Member, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Member{ID: "member-new", FullName: in.FullName, DocumentID: in.DocumentID, Active: true}, nil
}

func (m *mockMemberService) Withdraw(ctx context.Context, id string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, id)
	}
	return nil
}

type mockLedgerService struct {
	listContributionsFn  func(ctx context.Context, filter repository.ContributionFilter) ([]*model.Contribution, error)
	recordContributionFn func(ctx context.Context, in ledger.ContributionInput) (*model.Contribution, error)
	deleteContributionFn func(ctx context.Context, id string) error
	listLateFeesFn       func(ctx context.Context, memberID string) ([]*model.LateFee, error)
	recordLateFeeFn      func(ctx context.Context, in ledger.LateFeeInput) (*model.LateFee, error)
	markLateFeePaidFn    func(ctx context.Context, id string) error
	deleteLateFeeFn      func(ctx context.Context, id string) error
	listCashMovementsFn  func(ctx context.Context, limit int) ([]*model.CashMovement, error)
	recordCashMovementFn func(ctx context.Context, in ledger.CashMovementInput) (*model.CashMovement, error)
	cashBalanceFn        func(ctx context.Context) (int64, error)
	listBankFeesFn       func(ctx context.Context) ([]*model.BankFee, error)
	recordBankFeeFn      func(ctx context.Context, in ledger.BankFeeInput) (*model.BankFee, error)
	deleteBankFeeFn      func(ctx context.Context, id string) error
	settlementFn         func(ctx context.Context, year int) (*model.Settlement, error)
}

func (m *mockLedgerService) ListContributions(ctx context.Context, filter repository.ContributionFilter) ([]*model.Contribution, error) {
	if m.listContributionsFn != nil {
		return m.listContributionsFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockLedgerService) RecordContribution(ctx context.Context, in ledger.ContributionInput) (*model.Contribution, error) {
	if m.recordContributionFn != nil {
		return m.recordContributionFn(ctx, in)
	}
	return &model.Contribution{ID: "contribution-new", MemberID: in.MemberID, Period: in.Period, Amount: in.Amount}, nil
}

func (m *mockLedgerService) DeleteContribution(ctx context.Context, id string) error {
	if m.deleteContributionFn != nil {
		return m.deleteContributionFn(ctx, id)
	}
	return nil
}

func (m *mockLedgerService) ListLateFees(ctx context.Context, memberID string) ([]*model.LateFee, error) {
	if m.listLateFeesFn != nil {
		return m.listLateFeesFn(ctx, memberID)
	}
	return nil, nil
}

func (m *mockLedgerService) RecordLateFee(ctx context.Context, in ledger.LateFeeInput) (*model.LateFee, error) {
	if m.recordLateFeeFn != nil {
		return m.recordLateFeeFn(ctx, in)
	}
	return &model.LateFee{ID: "fee-new", MemberID: in.MemberID, Period: in.Period, Amount: in.Amount}, nil
}

func (m *mockLedgerService) MarkLateFeePaid(ctx context.Context, id string) error {
	if m.markLateFeePaidFn != nil {
		return m.markLateFeePaidFn(ctx, id)
	}
	return nil
}

func (m *mockLedgerService) DeleteLateFee(ctx context.Context, id string) error {
	if m.deleteLateFeeFn != nil {
		return m.deleteLateFeeFn(ctx, id)
	}
	return nil
}

func (m *mockLedgerService) ListCashMovements(ctx context.Context, limit int) ([]*model.CashMovement, error) {
	if m.listCashMovementsFn != nil {
		return m.listCashMovementsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockLedgerService) RecordCashMovement(ctx context.Context, in ledger.CashMovementInput) (*model.CashMovement, error) {
	if m.recordCashMovementFn != nil {
		return m.recordCashMovementFn(ctx, in)
	}
	return &model.CashMovement{ID: "movement-new", Kind: in.Kind, Concept: in.Concept, Amount: in.Amount}, nil
}

func (m *mockLedgerService) CashBalance(ctx context.Context) (int64, error) {
	if m.cashBalanceFn != nil {
		return m.cashBalanceFn(ctx)
	}
	return 0, nil
}

func (m *mockLedgerService) ListBankFees(ctx context.Context) ([]*model.BankFee, error) {
	if m.listBankFeesFn != nil {
		return m.listBankFeesFn(ctx)
	}
	return nil, nil
}

func (m *mockLedgerService) RecordBankFee(ctx context.Context, in ledger.BankFeeInput) (*model.BankFee, error) {
	if m.recordBankFeeFn != nil {
		return m.recordBankFeeFn(ctx, in)
	}
	return &model.BankFee{ID: "bank-fee-new", Concept: in.Concept, Amount: in.Amount}, nil
}

func (m *mockLedgerService) DeleteBankFee(ctx context.Context, id string) error {
	if m.deleteBankFeeFn != nil {
		return m.deleteBankFeeFn(ctx, id)
	}
	return nil
}

func (m *mockLedgerService) Settlement(ctx context.Context, year int) (*model.Settlement, error) {
	if m.settlementFn != nil {
		return m.settlementFn(ctx, year)
	}
	return &model.Settlement{Year: year}, nil
}

type mockLoanService struct {
	listFn          func(ctx context.Context, status string) ([]*model.Loan, error)
	createFn        func(ctx context.Context, in loan.CreateInput) (*model.Loan, error)
	updateStatusFn  func(ctx context.Context, id, status string) error
	recordPaymentFn func(ctx context.Context, in loan.PaymentInput) (*model.InterestPayment, error)
	historyFn       func(ctx context.Context) ([]*model.InterestPayment, error)
	totalFn         func(ctx context.Context) (int64, error)
}

func (m *mockLoanService) List(ctx context.Context, status string) ([]*model.Loan, error) {
	if m.listFn != nil {
		return m.listFn(ctx, status)
	}
	return nil, nil
}

func (m *mockLoanService) Create(ctx context.Context, in loan.CreateInput) (*model.Loan, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Loan{ID: "loan-new", MemberID: in.MemberID, Principal: in.Principal, Status: model.LoanStatusActive}, nil
}

func (m *mockLoanService) UpdateStatus(ctx context.Context, id, status string) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (m *mockLoanService) RecordPayment(ctx context.Context, in loan.PaymentInput) (*model.InterestPayment, error) {
	if m.recordPaymentFn != nil {
		return m.recordPaymentFn(ctx, in)
	}
	return &model.InterestPayment{ID: "payment-new", LoanID: in.LoanID, Amount: in.Amount}, nil
}

func (m *mockLoanService) History(ctx context.Context) ([]*model.InterestPayment, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx)
	}
	return nil, nil
}

func (m *mockLoanService) Total(ctx context.Context) (int64, error) {
	if m.totalFn != nil {
		return m.totalFn(ctx)
	}
	return 0, nil
}

type mockActivityService struct {
	listFn   func(ctx context.Context) ([]*model.Activity, error)
	createFn func(ctx context.Context, in activity.CreateInput) (*model.Activity, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockActivityService) List(ctx context.Context) ([]*model.Activity, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockActivityService) Create(ctx context.Context, in activity.CreateInput) (*model.Activity, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return &model.Activity{ID: "activity-new", Name: in.Name, Income: in.Income, Expense: in.Expense}, nil
}

func (m *mockActivityService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockIdentityService struct {
	signInFn  func(ctx context.Context, email, password string) (*model.SignInResult, error)
	signOutFn func(ctx context.Context, accessToken string) error
}

func (m *mockIdentityService) SignInWithPassword(ctx context.Context, email, password string) (*model.SignInResult, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, identity.ErrInvalidCredentials
}

func (m *mockIdentityService) SignOut(ctx context.Context, accessToken string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, accessToken)
	}
	return nil
}

// mockValidator はアクセストークンが一致する場合のみPrincipalを返す。
type mockValidator struct {
	token     string
	principal *model.Principal
}

func (m *mockValidator) ValidateSession(ctx context.Context, tokens model.Tokens) (*model.Principal, error) {
	if tokens.AccessToken == "" {
		return nil, identity.ErrMissingSession
	}
	if tokens.AccessToken != m.token {
		return nil, identity.ErrInvalidSession
	}
	return m.principal, nil
}

// mockRecorder は記録されたラベルを保持する。
type mockRecorder struct {
	logins  []string
	created []string
}

func (m *mockRecorder) RecordLoginAttempt(result string) { m.logins = append(m.logins, result) }
func (m *mockRecorder) RecordRecordCreated(kind string)  { m.created = append(m.created, kind) }

// --- ヘルパー ---

// withPrincipal はテスト用にリクエストコンテキストにPrincipalを注入するヘルパー。
func withPrincipal(r *http.Request, p *model.Principal) *http.Request {
	return r.WithContext(middleware.ContextWithPrincipal(r.Context(), p))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
