package handler

import (
	"context"

	"github.com/hitoshi/natillera/internal/activity"
	"github.com/hitoshi/natillera/internal/ledger"
	"github.com/hitoshi/natillera/internal/loan"
	"github.com/hitoshi/natillera/internal/member"
	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

// MemberServiceInterface は会員ハンドラーが必要とするサービスインターフェース。
type MemberServiceInterface interface {
	List(ctx context.Context, activeOnly bool) ([]*model.Member, error)
	Get(ctx context.Context, id string) (*model.Member, error)
	Create(ctx context.Context, in member.CreateInput) (*model.Member, error)
	Withdraw(ctx context.Context, id string) error
}

// LedgerServiceInterface は記帳ハンドラーが必要とするサービスインターフェース。
type LedgerServiceInterface interface {
	ListContributions(ctx context.Context, filter repository.ContributionFilter) ([]*model.Contribution, error)
	RecordContribution(ctx context.Context, in ledger.ContributionInput) (*model.Contribution, error)
	DeleteContribution(ctx context.Context, id string) error

	ListLateFees(ctx context.Context, memberID string) ([]*model.LateFee, error)
	RecordLateFee(ctx context.Context, in ledger.LateFeeInput) (*model.LateFee, error)
	MarkLateFeePaid(ctx context.Context, id string) error
	DeleteLateFee(ctx context.Context, id string) error

	ListCashMovements(ctx context.Context, limit int) ([]*model.CashMovement, error)
	RecordCashMovement(ctx context.Context, in ledger.CashMovementInput) (*model.CashMovement, error)
	CashBalance(ctx context.Context) (int64, error)

	ListBankFees(ctx context.Context) ([]*model.BankFee, error)
	RecordBankFee(ctx context.Context, in ledger.BankFeeInput) (*model.BankFee, error)
	DeleteBankFee(ctx context.Context, id string) error

	Settlement(ctx context.Context, year int) (*model.Settlement, error)
}

// LoanServiceInterface は貸付ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	List(ctx context.Context, status string) ([]*model.Loan, error)
	Create(ctx context.Context, in loan.CreateInput) (*model.Loan, error)
	UpdateStatus(ctx context.Context, id, status string) error
	RecordPayment(ctx context.Context, in loan.PaymentInput) (*model.InterestPayment, error)
	History(ctx context.Context) ([]*model.InterestPayment, error)
	Total(ctx context.Context) (int64, error)
}

// ActivityServiceInterface は活動ハンドラーが必要とするサービスインターフェース。
type ActivityServiceInterface interface {
	List(ctx context.Context) ([]*model.Activity, error)
	Create(ctx context.Context, in activity.CreateInput) (*model.Activity, error)
	Delete(ctx context.Context, id string) error
}

// IdentityService はログイン・ログアウトでIDバックエンドを呼び出すためのインターフェース。
type IdentityService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.SignInResult, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Recorder はハンドラーが記録するメトリクスのインターフェース。
type Recorder interface {
	RecordLoginAttempt(result string)
	RecordRecordCreated(kind string)
}

// nopRecorder は何も記録しないRecorder。
type nopRecorder struct{}

func (nopRecorder) RecordLoginAttempt(string)  {}
func (nopRecorder) RecordRecordCreated(string) {}

var (
	_ MemberServiceInterface   = (*member.Service)(nil)
	_ LedgerServiceInterface   = (*ledger.Service)(nil)
	_ LoanServiceInterface     = (*loan.Service)(nil)
	_ ActivityServiceInterface = (*activity.Service)(nil)
)
