// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/natillera/internal/model"
)

// MemberRepository は会員データの永続化インターフェース。
type MemberRepository interface {
	// List は会員一覧を氏名順で返す。activeOnlyがtrueの場合は退会済みを除く。
	List(ctx context.Context, activeOnly bool) ([]*model.Member, error)

	// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Member, error)

	// FindByDocumentID は身分証番号で会員を検索する。見つからない場合はnilを返す。
	FindByDocumentID(ctx context.Context, documentID string) (*model.Member, error)

	// Create は会員を作成する。
	Create(ctx context.Context, member *model.Member) error

	// Deactivate は会員を退会扱いにする（論理削除）。対象が存在しない場合はfalseを返す。
	Deactivate(ctx context.Context, id string) (bool, error)
}

// ContributionFilter は掛金一覧の絞り込み条件。空のフィールドは条件に含めない。
type ContributionFilter struct {
	MemberID string
	Period   string
}

// ContributionRepository は掛金データの永続化インターフェース。
type ContributionRepository interface {
	// List は掛金一覧を期間の新しい順で返す。
	List(ctx context.Context, filter ContributionFilter) ([]*model.Contribution, error)

	// Create は掛金の支払いを記録する。
	Create(ctx context.Context, c *model.Contribution) error

	// Delete は指定IDの掛金を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// LateFeeRepository は延滞金データの永続化インターフェース。
type LateFeeRepository interface {
	// List は延滞金一覧を返す。memberIDが空の場合は全会員分を返す。
	List(ctx context.Context, memberID string) ([]*model.LateFee, error)

	// Create は延滞金を記録する。
	Create(ctx context.Context, fee *model.LateFee) error

	// MarkPaid は延滞金を支払済みにする。対象が存在しない場合はfalseを返す。
	MarkPaid(ctx context.Context, id string) (bool, error)

	// Delete は指定IDの延滞金を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// LoanRepository は貸付データの永続化インターフェース。
type LoanRepository interface {
	// List は貸付一覧を貸付日の新しい順で返す。statusが空の場合は全件を返す。
	List(ctx context.Context, status model.LoanStatus) ([]*model.Loan, error)

	// FindByID は指定IDの貸付を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Loan, error)

	// Create は貸付を作成する。disbursementがnilでない場合は
	// 金庫からの出金を同一トランザクションで記録する。
	Create(ctx context.Context, loan *model.Loan, disbursement *model.CashMovement) error

	// UpdateStatus は貸付の状態を更新する。対象が存在しない場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, status model.LoanStatus) (bool, error)
}

// InterestPaymentRepository は利息支払いの永続化インターフェース。
type InterestPaymentRepository interface {
	// History は利息支払いの履歴を支払日の新しい順で返す。limitが0以下の場合は全件を返す。
	History(ctx context.Context, limit int) ([]*model.InterestPayment, error)

	// Total は利息支払いの合計額を返す。記録がない場合は0。
	Total(ctx context.Context) (int64, error)

	// Create は利息支払いを記録する。incomeがnilでない場合は
	// 金庫への入金を同一トランザクションで記録する。
	Create(ctx context.Context, p *model.InterestPayment, income *model.CashMovement) error
}

// CashMovementRepository は中央金庫の入出金の永続化インターフェース。
type CashMovementRepository interface {
	// List は入出金一覧を発生日の新しい順で返す。limitが0以下の場合は全件を返す。
	List(ctx context.Context, limit int) ([]*model.CashMovement, error)

	// Create は入出金を記録する。
	Create(ctx context.Context, m *model.CashMovement) error

	// Balance は入金合計から出金合計を引いた残高を返す。
	Balance(ctx context.Context) (int64, error)
}

// BankFeeRepository は銀行手数料の永続化インターフェース。
type BankFeeRepository interface {
	List(ctx context.Context) ([]*model.BankFee, error)
	Create(ctx context.Context, fee *model.BankFee) error
	// Delete は指定IDの手数料を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// ActivityRepository は活動の永続化インターフェース。
type ActivityRepository interface {
	List(ctx context.Context) ([]*model.Activity, error)
	Create(ctx context.Context, a *model.Activity) error
	// Delete は指定IDの活動を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// SettlementRepository は年次精算の集計インターフェース。
type SettlementRepository interface {
	// Aggregate は指定年の掛金・利息・延滞金・手数料・活動収支を集計する。
	// 金庫残高は年に関係なく現在の残高とする。
	Aggregate(ctx context.Context, year int) (*model.Settlement, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
