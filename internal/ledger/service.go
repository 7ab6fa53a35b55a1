// Package ledger は掛金・延滞金・中央金庫・銀行手数料・年次精算の記帳を扱う。
// 金額は入力値をそのまま記録し、算出ルールは持たない。
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
	"github.com/hitoshi/natillera/internal/security"
)

// Repositories はServiceが使うリポジトリの集合。
type Repositories struct {
	Members       repository.MemberRepository
	Contributions repository.ContributionRepository
	LateFees      repository.LateFeeRepository
	Cash          repository.CashMovementRepository
	BankFees      repository.BankFeeRepository
	Settlements   repository.SettlementRepository
}

// Service は記帳のサービス層。
type Service struct {
	repos     Repositories
	sanitizer security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repos Repositories, sanitizer security.TextSanitizer) *Service {
	return &Service{repos: repos, sanitizer: sanitizer}
}

// ContributionInput は掛金記録の入力値。
type ContributionInput struct {
	MemberID string
	Period   string
	Amount   int64
	PaidAt   time.Time // ゼロ値の場合は記録日
}

// LateFeeInput は延滞金記録の入力値。
type LateFeeInput struct {
	MemberID string
	Period   string
	Amount   int64
	Reason   string
}

// CashMovementInput は金庫の入出金記録の入力値。
type CashMovementInput struct {
	Kind       model.MovementKind
	Concept    string
	Amount     int64
	OccurredAt time.Time
}

// BankFeeInput は銀行手数料記録の入力値。
type BankFeeInput struct {
	Concept   string
	Amount    int64
	ChargedAt time.Time
}

// ListContributions は掛金一覧を返す。期間の指定がある場合は形式を検証する。
func (s *Service) ListContributions(ctx context.Context, filter repository.ContributionFilter) ([]*model.Contribution, error) {
	if filter.Period != "" {
		if err := model.ValidatePeriod(filter.Period); err != nil {
			return nil, err
		}
	}
	contributions, err := s.repos.Contributions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("掛金一覧の取得に失敗しました: %w", err)
	}
	return contributions, nil
}

// RecordContribution は掛金の支払いを記録する。
func (s *Service) RecordContribution(ctx context.Context, in ContributionInput) (*model.Contribution, error) {
	// 1. 入力値の検証
	if err := model.ValidatePeriod(in.Period); err != nil {
		return nil, err
	}
	if err := model.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	// 2. 会員の存在確認
	if err := s.ensureMember(ctx, in.MemberID); err != nil {
		return nil, err
	}

	// 3. 記録
	now := time.Now()
	c := &model.Contribution{
		ID:        uuid.New().String(),
		MemberID:  in.MemberID,
		Period:    in.Period,
		Amount:    in.Amount,
		PaidAt:    orNow(in.PaidAt, now),
		CreatedAt: now,
	}
	if err := s.repos.Contributions.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("掛金の記録に失敗しました: %w", err)
	}
	return c, nil
}

// DeleteContribution は掛金の記録を削除する。
func (s *Service) DeleteContribution(ctx context.Context, id string) error {
	ok, err := s.repos.Contributions.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("掛金の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewRecordNotFoundError("cuota", id)
	}
	return nil
}

// ListLateFees は延滞金一覧を返す。
func (s *Service) ListLateFees(ctx context.Context, memberID string) ([]*model.LateFee, error) {
	fees, err := s.repos.LateFees.List(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("延滞金一覧の取得に失敗しました: %w", err)
	}
	return fees, nil
}

// RecordLateFee は延滞金を記録する。
func (s *Service) RecordLateFee(ctx context.Context, in LateFeeInput) (*model.LateFee, error) {
	if err := model.ValidatePeriod(in.Period); err != nil {
		return nil, err
	}
	if err := model.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.ensureMember(ctx, in.MemberID); err != nil {
		return nil, err
	}

	f := &model.LateFee{
		ID:        uuid.New().String(),
		MemberID:  in.MemberID,
		Period:    in.Period,
		Amount:    in.Amount,
		Reason:    s.sanitizer.Sanitize(in.Reason),
		CreatedAt: time.Now(),
	}
	if err := s.repos.LateFees.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("延滞金の記録に失敗しました: %w", err)
	}
	return f, nil
}

// MarkLateFeePaid は延滞金を支払済みにする。
func (s *Service) MarkLateFeePaid(ctx context.Context, id string) error {
	ok, err := s.repos.LateFees.MarkPaid(ctx, id)
	if err != nil {
		return fmt.Errorf("延滞金の支払登録に失敗しました: %w", err)
	}
	if !ok {
		return model.NewRecordNotFoundError("multa", id)
	}
	return nil
}

// DeleteLateFee は延滞金の記録を削除する。
func (s *Service) DeleteLateFee(ctx context.Context, id string) error {
	ok, err := s.repos.LateFees.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("延滞金の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewRecordNotFoundError("multa", id)
	}
	return nil
}

// ListCashMovements は金庫の入出金一覧を返す。
func (s *Service) ListCashMovements(ctx context.Context, limit int) ([]*model.CashMovement, error) {
	movements, err := s.repos.Cash.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("金庫の入出金一覧の取得に失敗しました: %w", err)
	}
	return movements, nil
}

// RecordCashMovement は金庫の入出金を記録する。
func (s *Service) RecordCashMovement(ctx context.Context, in CashMovementInput) (*model.CashMovement, error) {
	if !in.Kind.IsValid() {
		return nil, model.NewInvalidMovementKindError(string(in.Kind))
	}
	if err := model.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	concept := s.sanitizer.Sanitize(in.Concept)
	if concept == "" {
		return nil, model.NewInvalidFieldError("concept")
	}

	now := time.Now()
	m := &model.CashMovement{
		ID:         uuid.New().String(),
		Kind:       in.Kind,
		Concept:    concept,
		Amount:     in.Amount,
		OccurredAt: orNow(in.OccurredAt, now),
		CreatedAt:  now,
	}
	if err := s.repos.Cash.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("金庫の入出金の記録に失敗しました: %w", err)
	}
	return m, nil
}

// CashBalance は金庫の現在残高を返す。
func (s *Service) CashBalance(ctx context.Context) (int64, error) {
	balance, err := s.repos.Cash.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("金庫残高の取得に失敗しました: %w", err)
	}
	return balance, nil
}

// ListBankFees は銀行手数料一覧を返す。
func (s *Service) ListBankFees(ctx context.Context) ([]*model.BankFee, error) {
	fees, err := s.repos.BankFees.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("銀行手数料一覧の取得に失敗しました: %w", err)
	}
	return fees, nil
}

// RecordBankFee は銀行手数料を記録する。
func (s *Service) RecordBankFee(ctx context.Context, in BankFeeInput) (*model.BankFee, error) {
	if err := model.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	concept := s.sanitizer.Sanitize(in.Concept)
	if concept == "" {
		return nil, model.NewInvalidFieldError("concept")
	}

	now := time.Now()
	f := &model.BankFee{
		ID:        uuid.New().String(),
		Concept:   concept,
		Amount:    in.Amount,
		ChargedAt: orNow(in.ChargedAt, now),
		CreatedAt: now,
	}
	if err := s.repos.BankFees.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("銀行手数料の記録に失敗しました: %w", err)
	}
	return f, nil
}

// DeleteBankFee は銀行手数料の記録を削除する。
func (s *Service) DeleteBankFee(ctx context.Context, id string) error {
	ok, err := s.repos.BankFees.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("銀行手数料の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewRecordNotFoundError("gasto bancario", id)
	}
	return nil
}

// Settlement は指定年の年次精算を集計する。
func (s *Service) Settlement(ctx context.Context, year int) (*model.Settlement, error) {
	if err := model.ValidateSettlementYear(year); err != nil {
		return nil, err
	}
	settlement, err := s.repos.Settlements.Aggregate(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("年次精算の集計に失敗しました: %w", err)
	}
	return settlement, nil
}

func (s *Service) ensureMember(ctx context.Context, memberID string) error {
	if strings.TrimSpace(memberID) == "" {
		return model.NewInvalidFieldError("member_id")
	}
	m, err := s.repos.Members.FindByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("会員の取得に失敗しました: %w", err)
	}
	if m == nil {
		return model.NewMemberNotFoundError(memberID)
	}
	return nil
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
