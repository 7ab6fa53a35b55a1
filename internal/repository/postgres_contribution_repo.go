package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresContributionRepo はPostgreSQLを使用した掛金リポジトリ。
type PostgresContributionRepo struct {
	db *sql.DB
}

// NewPostgresContributionRepo はPostgresContributionRepoを生成する。
func NewPostgresContributionRepo(db *sql.DB) *PostgresContributionRepo {
	return &PostgresContributionRepo{db: db}
}

// List は掛金一覧を期間の新しい順で返す。
func (r *PostgresContributionRepo) List(ctx context.Context, filter ContributionFilter) ([]*model.Contribution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, member_id, period, amount, paid_at, created_at
		 FROM contributions
		 WHERE ($1 = '' OR member_id = $1)
		   AND ($2 = '' OR period = $2)
		 ORDER BY period DESC, paid_at DESC`,
		filter.MemberID, filter.Period,
	)
	if err != nil {
		return nil, fmt.Errorf("掛金一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var contributions []*model.Contribution
	for rows.Next() {
		c := &model.Contribution{}
		if err := rows.Scan(&c.ID, &c.MemberID, &c.Period, &c.Amount, &c.PaidAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("掛金行の読み取りに失敗しました: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("掛金一覧の走査に失敗しました: %w", err)
	}

	return contributions, nil
}

// Create は掛金の支払いを記録する。
func (r *PostgresContributionRepo) Create(ctx context.Context, c *model.Contribution) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contributions (id, member_id, period, amount, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.MemberID, c.Period, c.Amount, c.PaidAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("掛金の記録に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの掛金を削除する。
func (r *PostgresContributionRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contributions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("掛金の削除に失敗しました: %w", err)
	}
	return affected(result)
}
