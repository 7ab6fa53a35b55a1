package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresBankFeeRepo はPostgreSQLを使用した銀行手数料リポジトリ。
type PostgresBankFeeRepo struct {
	db *sql.DB
}

// NewPostgresBankFeeRepo はPostgresBankFeeRepoを生成する。
func NewPostgresBankFeeRepo(db *sql.DB) *PostgresBankFeeRepo {
	return &PostgresBankFeeRepo{db: db}
}

// List は銀行手数料を請求日の新しい順で返す。
func (r *PostgresBankFeeRepo) List(ctx context.Context) ([]*model.BankFee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, concept, amount, charged_at, created_at
		 FROM bank_fees
		 ORDER BY charged_at DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("銀行手数料一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var fees []*model.BankFee
	for rows.Next() {
		f := &model.BankFee{}
		if err := rows.Scan(&f.ID, &f.Concept, &f.Amount, &f.ChargedAt, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("銀行手数料行の読み取りに失敗しました: %w", err)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("銀行手数料一覧の走査に失敗しました: %w", err)
	}

	return fees, nil
}

// Create は銀行手数料を記録する。
func (r *PostgresBankFeeRepo) Create(ctx context.Context, f *model.BankFee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_fees (id, concept, amount, charged_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.Concept, f.Amount, f.ChargedAt, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("銀行手数料の記録に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの銀行手数料を削除する。
func (r *PostgresBankFeeRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bank_fees WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("銀行手数料の削除に失敗しました: %w", err)
	}
	return affected(result)
}
