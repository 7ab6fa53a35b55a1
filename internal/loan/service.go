// Package loan は貸付と利息支払いのドメインロジックを提供する。
// 利息の算出は行わず、支払われた金額を記録・集計する。
package loan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

// 金庫の入出金に記録する概要。
const (
	disbursementConcept = "Desembolso de préstamo"
	interestConcept     = "Pago de intereses"
)

// CreateInput は貸付登録の入力値。
type CreateInput struct {
	MemberID    string
	Principal   int64
	MonthlyRate int // ベーシスポイント
	IssuedAt    time.Time
	DueAt       *time.Time
}

// PaymentInput は利息支払い記録の入力値。
type PaymentInput struct {
	LoanID string
	Amount int64
	PaidAt time.Time
}

// Service は貸付のサービス層。
type Service struct {
	loans    repository.LoanRepository
	payments repository.InterestPaymentRepository
	members  repository.MemberRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	loans repository.LoanRepository,
	payments repository.InterestPaymentRepository,
	members repository.MemberRepository,
) *Service {
	return &Service{loans: loans, payments: payments, members: members}
}

// List は貸付一覧を返す。statusが空の場合は全件。
func (s *Service) List(ctx context.Context, status string) ([]*model.Loan, error) {
	st := model.LoanStatus(status)
	if st != "" && !st.IsValid() {
		return nil, model.NewInvalidLoanStatusError(status)
	}
	loans, err := s.loans.List(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("貸付一覧の取得に失敗しました: %w", err)
	}
	return loans, nil
}

// Get は指定IDの貸付を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Loan, error) {
	l, err := s.loans.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("貸付の取得に失敗しました: %w", err)
	}
	if l == nil {
		return nil, model.NewLoanNotFoundError(id)
	}
	return l, nil
}

// Create は貸付を登録し、金庫からの出金を同時に記録する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Loan, error) {
	// 1. 入力値の検証
	if strings.TrimSpace(in.MemberID) == "" {
		return nil, model.NewInvalidFieldError("member_id")
	}
	if err := model.ValidateAmount(in.Principal); err != nil {
		return nil, err
	}
	if in.MonthlyRate < 0 {
		return nil, model.NewInvalidFieldError("monthly_rate")
	}

	// 2. 会員の存在確認
	member, err := s.members.FindByID(ctx, in.MemberID)
	if err != nil {
		return nil, fmt.Errorf("会員の取得に失敗しました: %w", err)
	}
	if member == nil {
		return nil, model.NewMemberNotFoundError(in.MemberID)
	}

	// 3. 返済期日は貸付日より後であること
	now := time.Now()
	issuedAt := in.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}
	if in.DueAt != nil && !in.DueAt.After(issuedAt) {
		return nil, model.NewInvalidFieldError("due_at")
	}

	// 4. 貸付と出金を記録
	l := &model.Loan{
		ID:          uuid.New().String(),
		MemberID:    in.MemberID,
		Principal:   in.Principal,
		MonthlyRate: in.MonthlyRate,
		Status:      model.LoanStatusActive,
		IssuedAt:    issuedAt,
		DueAt:       in.DueAt,
		CreatedAt:   now,
	}
	disbursement := &model.CashMovement{
		ID:         uuid.New().String(),
		Kind:       model.MovementOut,
		Concept:    fmt.Sprintf("%s: %s", disbursementConcept, member.FullName),
		Amount:     in.Principal,
		OccurredAt: issuedAt,
		CreatedAt:  now,
	}
	if err := s.loans.Create(ctx, l, disbursement); err != nil {
		return nil, fmt.Errorf("貸付の登録に失敗しました: %w", err)
	}

	return l, nil
}

// UpdateStatus は貸付の状態を更新する。
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	st := model.LoanStatus(status)
	if !st.IsValid() {
		return model.NewInvalidLoanStatusError(status)
	}
	ok, err := s.loans.UpdateStatus(ctx, id, st)
	if err != nil {
		return fmt.Errorf("貸付の状態更新に失敗しました: %w", err)
	}
	if !ok {
		return model.NewLoanNotFoundError(id)
	}
	return nil
}

// RecordPayment は利息の支払いを記録し、金庫への入金を同時に記録する。
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*model.InterestPayment, error) {
	if err := model.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	l, err := s.Get(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}
	p := &model.InterestPayment{
		ID:        uuid.New().String(),
		LoanID:    l.ID,
		MemberID:  l.MemberID,
		Amount:    in.Amount,
		PaidAt:    paidAt,
		CreatedAt: now,
	}
	income := &model.CashMovement{
		ID:         uuid.New().String(),
		Kind:       model.MovementIn,
		Concept:    interestConcept,
		Amount:     in.Amount,
		OccurredAt: paidAt,
		CreatedAt:  now,
	}
	if err := s.payments.Create(ctx, p, income); err != nil {
		return nil, fmt.Errorf("利息支払いの記録に失敗しました: %w", err)
	}

	return p, nil
}

// History は利息支払いの全履歴を新しい順で返す。
func (s *Service) History(ctx context.Context) ([]*model.InterestPayment, error) {
	payments, err := s.payments.History(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("利息支払い履歴の取得に失敗しました: %w", err)
	}
	return payments, nil
}

// Total は利息支払いの合計額を返す。
func (s *Service) Total(ctx context.Context) (int64, error) {
	total, err := s.payments.Total(ctx)
	if err != nil {
		return 0, fmt.Errorf("利息合計の取得に失敗しました: %w", err)
	}
	return total, nil
}
