package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresActivityRepo はPostgreSQLを使用した活動リポジトリ。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// List は活動を開催日の新しい順で返す。
func (r *PostgresActivityRepo) List(ctx context.Context) ([]*model.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, income, expense, held_on, created_at
		 FROM activities
		 ORDER BY held_on DESC, created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("活動一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var activities []*model.Activity
	for rows.Next() {
		a := &model.Activity{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Income, &a.Expense, &a.HeldOn, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("活動行の読み取りに失敗しました: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("活動一覧の走査に失敗しました: %w", err)
	}

	return activities, nil
}

// Create は活動を記録する。
func (r *PostgresActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, name, description, income, expense, held_on, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Name, a.Description, a.Income, a.Expense, a.HeldOn, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("活動の記録に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの活動を削除する。
func (r *PostgresActivityRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("活動の削除に失敗しました: %w", err)
	}
	return affected(result)
}
