package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/natillera/internal/model"
)

// --- モック ---

type mockLoanRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.Loan, error)
	createFn       func(ctx context.Context, l *model.Loan, disbursement *model.CashMovement) error
	listFn         func(ctx context.Context, status model.LoanStatus) ([]*model.Loan, error)
	updateStatusFn func(ctx context.Context, id string, status model.LoanStatus) (bool, error)
}

func (m *mockLoanRepo) List(ctx context.Context, status model.LoanStatus) ([]*model.Loan, error) {
	return m.listFn(ctx, status)
}
func (m *mockLoanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockLoanRepo) Create(ctx context.Context, l *model.Loan, disbursement *model.CashMovement) error {
	if m.createFn != nil {
		return m.createFn(ctx, l, disbursement)
	}
	return nil
}
func (m *mockLoanRepo) UpdateStatus(ctx context.Context, id string, status model.LoanStatus) (bool, error) {
	return m.updateStatusFn(ctx, id, status)
}

type mockPaymentRepo struct {
	historyFn func(ctx context.Context, limit int) ([]*model.InterestPayment, error)
	totalFn   func(ctx context.Context) (int64, error)
	createFn  func(ctx context.Context, p *model.InterestPayment, income *model.CashMovement) error
}

func (m *mockPaymentRepo) History(ctx context.Context, limit int) ([]*model.InterestPayment, error) {
	return m.historyFn(ctx, limit)
}
func (m *mockPaymentRepo) Total(ctx context.Context) (int64, error) {
	return m.totalFn(ctx)
}
func (m *mockPaymentRepo) Create(ctx context.Context, p *model.InterestPayment, income *model.CashMovement) error {
	if m.createFn != nil {
		return m.createFn(ctx, p, income)
	}
	return nil
}

type mockMemberRepo struct {
	member *model.Member
}

func (m *mockMemberRepo) List(ctx context.Context, activeOnly bool) ([]*model.Member, error) {
	return nil, nil
}
func (m *mockMemberRepo) FindByID(ctx context.Context, id string) (*model.Member, error) {
	return m.member, nil
}
func (m *mockMemberRepo) FindByDocumentID(ctx context.Context, documentID string) (*model.Member, error) {
	return nil, nil
}
func (m *mockMemberRepo) Create(ctx context.Context, member *model.Member) error { return nil }
func (m *mockMemberRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func existingMember() *mockMemberRepo {
	return &mockMemberRepo{member: &model.Member{ID: "m-1", FullName: "Luis Gómez", Active: true}}
}

func apiErrorCode(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// --- テスト ---

func TestService_Create_RecordsDisbursement(t *testing.T) {
	var gotLoan *model.Loan
	var gotMovement *model.CashMovement
	loans := &mockLoanRepo{
		createFn: func(ctx context.Context, l *model.Loan, disbursement *model.CashMovement) error {
			gotLoan, gotMovement = l, disbursement
			return nil
		},
	}
	svc := NewService(loans, &mockPaymentRepo{}, existingMember())

	issued := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 6, 0)
	l, err := svc.Create(context.Background(), CreateInput{
		MemberID: "m-1", Principal: 800000, MonthlyRate: 200, IssuedAt: issued, DueAt: &due,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLoan != l || l.Status != model.LoanStatusActive {
		t.Errorf("loan = %+v", l)
	}
	if gotMovement == nil || gotMovement.Kind != model.MovementOut || gotMovement.Amount != 800000 {
		t.Fatalf("disbursement = %+v", gotMovement)
	}
	if !gotMovement.OccurredAt.Equal(issued) {
		t.Errorf("disbursement date = %v, want %v", gotMovement.OccurredAt, issued)
	}
	if gotMovement.Concept != "Desembolso de préstamo: Luis Gómez" {
		t.Errorf("Concept = %q", gotMovement.Concept)
	}
}

func TestService_Create_Validation(t *testing.T) {
	issued := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	before := issued.AddDate(0, 0, -1)

	tests := []struct {
		name     string
		in       CreateInput
		members  *mockMemberRepo
		wantCode string
	}{
		{"会員IDが空", CreateInput{Principal: 1}, existingMember(), model.ErrCodeInvalidField},
		{"元本が0", CreateInput{MemberID: "m-1"}, existingMember(), model.ErrCodeInvalidAmount},
		{"利率が負", CreateInput{MemberID: "m-1", Principal: 1, MonthlyRate: -1}, existingMember(), model.ErrCodeInvalidField},
		{"会員が存在しない", CreateInput{MemberID: "m-1", Principal: 1}, &mockMemberRepo{}, model.ErrCodeMemberNotFound},
		{"期日が貸付日以前", CreateInput{MemberID: "m-1", Principal: 1, IssuedAt: issued, DueAt: &before}, existingMember(), model.ErrCodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans := &mockLoanRepo{
				createFn: func(ctx context.Context, l *model.Loan, d *model.CashMovement) error {
					t.Fatal("Create must not be called")
					return nil
				},
			}
			_, err := NewService(loans, &mockPaymentRepo{}, tt.members).Create(context.Background(), tt.in)
			if got := apiErrorCode(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q (err = %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestService_List_RejectsUnknownStatus(t *testing.T) {
	loans := &mockLoanRepo{
		listFn: func(ctx context.Context, status model.LoanStatus) ([]*model.Loan, error) {
			return []*model.Loan{{ID: "l-1", Status: status}}, nil
		},
	}
	svc := NewService(loans, &mockPaymentRepo{}, existingMember())

	if _, err := svc.List(context.Background(), "closed"); apiErrorCode(err) != model.ErrCodeInvalidLoanStatus {
		t.Errorf("err = %v, want INVALID_LOAN_STATUS", err)
	}
	got, err := svc.List(context.Background(), "paid")
	if err != nil || len(got) != 1 || got[0].Status != model.LoanStatusPaid {
		t.Errorf("List(paid) = %v, %v", got, err)
	}
	if _, err := svc.List(context.Background(), ""); err != nil {
		t.Errorf("List(\"\") unexpected error: %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		found    bool
		wantCode string
	}{
		{"完済", "paid", true, ""},
		{"貸し倒れ", "defaulted", true, ""},
		{"未定義の状態", "cancelled", true, model.ErrCodeInvalidLoanStatus},
		{"存在しない貸付", "paid", false, model.ErrCodeLoanNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans := &mockLoanRepo{
				updateStatusFn: func(ctx context.Context, id string, status model.LoanStatus) (bool, error) {
					return tt.found, nil
				},
			}
			err := NewService(loans, &mockPaymentRepo{}, existingMember()).UpdateStatus(context.Background(), "l-1", tt.status)
			if got := apiErrorCode(err); got != tt.wantCode {
				t.Errorf("code = %q, want %q (err = %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestService_RecordPayment_UsesLoanMember(t *testing.T) {
	var gotPayment *model.InterestPayment
	var gotIncome *model.CashMovement
	loans := &mockLoanRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Loan, error) {
			return &model.Loan{ID: id, MemberID: "m-7"}, nil
		},
	}
	payments := &mockPaymentRepo{
		createFn: func(ctx context.Context, p *model.InterestPayment, income *model.CashMovement) error {
			gotPayment, gotIncome = p, income
			return nil
		},
	}
	svc := NewService(loans, payments, existingMember())

	p, err := svc.RecordPayment(context.Background(), PaymentInput{LoanID: "l-1", Amount: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPayment != p || p.MemberID != "m-7" || p.LoanID != "l-1" {
		t.Errorf("payment = %+v", p)
	}
	if gotIncome.Kind != model.MovementIn || gotIncome.Amount != 16000 || !gotIncome.OccurredAt.Equal(p.PaidAt) {
		t.Errorf("income = %+v", gotIncome)
	}
}

func TestService_RecordPayment_LoanNotFound(t *testing.T) {
	loans := &mockLoanRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Loan, error) { return nil, nil },
	}
	svc := NewService(loans, &mockPaymentRepo{}, existingMember())

	_, err := svc.RecordPayment(context.Background(), PaymentInput{LoanID: "ghost", Amount: 1})
	if apiErrorCode(err) != model.ErrCodeLoanNotFound {
		t.Errorf("err = %v, want LOAN_NOT_FOUND", err)
	}
}

func TestService_HistoryAndTotal(t *testing.T) {
	var gotLimit = -1
	payments := &mockPaymentRepo{
		historyFn: func(ctx context.Context, limit int) ([]*model.InterestPayment, error) {
			gotLimit = limit
			return []*model.InterestPayment{{ID: "p-2", Amount: 300}, {ID: "p-1", Amount: 200}}, nil
		},
		totalFn: func(ctx context.Context) (int64, error) { return 500, nil },
	}
	svc := NewService(&mockLoanRepo{}, payments, existingMember())

	history, err := svc.History(context.Background())
	if err != nil || len(history) != 2 {
		t.Fatalf("History = %v, %v", history, err)
	}
	if gotLimit != 0 {
		t.Errorf("History should request all rows, got limit %d", gotLimit)
	}

	total, err := svc.Total(context.Background())
	if err != nil || total != 500 {
		t.Errorf("Total = %d, %v, want 500", total, err)
	}
}

func TestService_Total_WrapsError(t *testing.T) {
	repoErr := errors.New("connection reset")
	payments := &mockPaymentRepo{
		totalFn: func(ctx context.Context) (int64, error) { return 0, repoErr },
	}
	svc := NewService(&mockLoanRepo{}, payments, existingMember())

	if _, err := svc.Total(context.Background()); !errors.Is(err, repoErr) {
		t.Errorf("err = %v, want wrapped repo error", err)
	}
}
