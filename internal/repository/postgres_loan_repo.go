package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresLoanRepo はPostgreSQLを使用した貸付リポジトリ。
type PostgresLoanRepo struct {
	db *sql.DB
}

// NewPostgresLoanRepo はPostgresLoanRepoを生成する。
func NewPostgresLoanRepo(db *sql.DB) *PostgresLoanRepo {
	return &PostgresLoanRepo{db: db}
}

const loanColumns = `id, member_id, principal, monthly_rate, status, issued_at, due_at, created_at`

func scanLoan(s interface{ Scan(dest ...any) error }) (*model.Loan, error) {
	l := &model.Loan{}
	var status string
	var dueAt sql.NullTime
	if err := s.Scan(&l.ID, &l.MemberID, &l.Principal, &l.MonthlyRate, &status, &l.IssuedAt, &dueAt, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Status = model.LoanStatus(status)
	if dueAt.Valid {
		t := dueAt.Time
		l.DueAt = &t
	}
	return l, nil
}

// List は貸付一覧を貸付日の新しい順で返す。
func (r *PostgresLoanRepo) List(ctx context.Context, status model.LoanStatus) ([]*model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+`
		 FROM loans
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY issued_at DESC, created_at DESC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("貸付一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("貸付行の読み取りに失敗しました: %w", err)
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("貸付一覧の走査に失敗しました: %w", err)
	}

	return loans, nil
}

// FindByID は指定IDの貸付を取得する。見つからない場合はnilを返す。
func (r *PostgresLoanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	l, err := scanLoan(r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("貸付の取得に失敗しました: %w", err)
	}
	return l, nil
}

// Create は貸付と金庫からの出金を同一トランザクションで作成する。
func (r *PostgresLoanRepo) Create(ctx context.Context, l *model.Loan, disbursement *model.CashMovement) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO loans (id, member_id, principal, monthly_rate, status, issued_at, due_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			l.ID, l.MemberID, l.Principal, l.MonthlyRate, string(l.Status), l.IssuedAt, l.DueAt, l.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("貸付の作成に失敗しました: %w", err)
		}

		if disbursement == nil {
			return nil
		}
		return insertCashMovement(ctx, tx, disbursement)
	})
}

// UpdateStatus は貸付の状態を更新する。
func (r *PostgresLoanRepo) UpdateStatus(ctx context.Context, id string, status model.LoanStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE loans SET status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("貸付の状態更新に失敗しました: %w", err)
	}
	return affected(result)
}

// PostgresInterestPaymentRepo はPostgreSQLを使用した利息支払いリポジトリ。
type PostgresInterestPaymentRepo struct {
	db *sql.DB
}

// NewPostgresInterestPaymentRepo はPostgresInterestPaymentRepoを生成する。
func NewPostgresInterestPaymentRepo(db *sql.DB) *PostgresInterestPaymentRepo {
	return &PostgresInterestPaymentRepo{db: db}
}

// History は利息支払いの履歴を支払日の新しい順で返す。
func (r *PostgresInterestPaymentRepo) History(ctx context.Context, limit int) ([]*model.InterestPayment, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, loan_id, member_id, amount, paid_at, created_at
		 FROM interest_payments
		 ORDER BY paid_at DESC, created_at DESC
		 LIMIT $1`,
		lim,
	)
	if err != nil {
		return nil, fmt.Errorf("利息支払い履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var payments []*model.InterestPayment
	for rows.Next() {
		p := &model.InterestPayment{}
		if err := rows.Scan(&p.ID, &p.LoanID, &p.MemberID, &p.Amount, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("利息支払い行の読み取りに失敗しました: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("利息支払い履歴の走査に失敗しました: %w", err)
	}

	return payments, nil
}

// Total は利息支払いの合計額を返す。
func (r *PostgresInterestPaymentRepo) Total(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM interest_payments`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("利息合計の取得に失敗しました: %w", err)
	}
	return total, nil
}

// Create は利息支払いと金庫への入金を同一トランザクションで記録する。
func (r *PostgresInterestPaymentRepo) Create(ctx context.Context, p *model.InterestPayment, income *model.CashMovement) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO interest_payments (id, loan_id, member_id, amount, paid_at, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.LoanID, p.MemberID, p.Amount, p.PaidAt, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("利息支払いの記録に失敗しました: %w", err)
		}

		if income == nil {
			return nil
		}
		return insertCashMovement(ctx, tx, income)
	})
}
