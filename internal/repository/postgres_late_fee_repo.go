package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresLateFeeRepo はPostgreSQLを使用した延滞金リポジトリ。
type PostgresLateFeeRepo struct {
	db *sql.DB
}

// NewPostgresLateFeeRepo はPostgresLateFeeRepoを生成する。
func NewPostgresLateFeeRepo(db *sql.DB) *PostgresLateFeeRepo {
	return &PostgresLateFeeRepo{db: db}
}

// List は延滞金一覧を返す。未払いを先に並べる。
func (r *PostgresLateFeeRepo) List(ctx context.Context, memberID string) ([]*model.LateFee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, member_id, period, amount, reason, paid, created_at
		 FROM late_fees
		 WHERE ($1 = '' OR member_id = $1)
		 ORDER BY paid ASC, period DESC, created_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("延滞金一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var fees []*model.LateFee
	for rows.Next() {
		f := &model.LateFee{}
		if err := rows.Scan(&f.ID, &f.MemberID, &f.Period, &f.Amount, &f.Reason, &f.Paid, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("延滞金行の読み取りに失敗しました: %w", err)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("延滞金一覧の走査に失敗しました: %w", err)
	}

	return fees, nil
}

// Create は延滞金を記録する。
func (r *PostgresLateFeeRepo) Create(ctx context.Context, f *model.LateFee) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO late_fees (id, member_id, period, amount, reason, paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.MemberID, f.Period, f.Amount, f.Reason, f.Paid, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("延滞金の記録に失敗しました: %w", err)
	}
	return nil
}

// MarkPaid は延滞金を支払済みにする。
func (r *PostgresLateFeeRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE late_fees SET paid = TRUE WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("延滞金の支払登録に失敗しました: %w", err)
	}
	return affected(result)
}

// Delete は指定IDの延滞金を削除する。
func (r *PostgresLateFeeRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM late_fees WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("延滞金の削除に失敗しました: %w", err)
	}
	return affected(result)
}
