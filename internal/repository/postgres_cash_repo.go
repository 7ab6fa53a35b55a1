package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// execer はExecContextを抽象化するインターフェース。*sql.DB と *sql.Tx の両方を受け付ける。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx はfnをトランザクション内で実行し、エラーがなければコミットする。
func withTx(ctx context.Context, db TxBeginner, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

func insertCashMovement(ctx context.Context, db execer, m *model.CashMovement) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO cash_movements (id, kind, concept, amount, occurred_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, string(m.Kind), m.Concept, m.Amount, m.OccurredAt, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("金庫の入出金の記録に失敗しました: %w", err)
	}
	return nil
}

// PostgresCashMovementRepo はPostgreSQLを使用した中央金庫リポジトリ。
type PostgresCashMovementRepo struct {
	db *sql.DB
}

// NewPostgresCashMovementRepo はPostgresCashMovementRepoを生成する。
func NewPostgresCashMovementRepo(db *sql.DB) *PostgresCashMovementRepo {
	return &PostgresCashMovementRepo{db: db}
}

// List は入出金一覧を発生日の新しい順で返す。
func (r *PostgresCashMovementRepo) List(ctx context.Context, limit int) ([]*model.CashMovement, error) {
	// LIMIT NULL は全件を意味する
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, concept, amount, occurred_at, created_at
		 FROM cash_movements
		 ORDER BY occurred_at DESC, created_at DESC
		 LIMIT $1`,
		lim,
	)
	if err != nil {
		return nil, fmt.Errorf("金庫の入出金一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var movements []*model.CashMovement
	for rows.Next() {
		m := &model.CashMovement{}
		var kind string
		if err := rows.Scan(&m.ID, &kind, &m.Concept, &m.Amount, &m.OccurredAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("入出金行の読み取りに失敗しました: %w", err)
		}
		m.Kind = model.MovementKind(kind)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("入出金一覧の走査に失敗しました: %w", err)
	}

	return movements, nil
}

// Create は入出金を記録する。
func (r *PostgresCashMovementRepo) Create(ctx context.Context, m *model.CashMovement) error {
	return insertCashMovement(ctx, r.db, m)
}

// Balance は入金合計から出金合計を引いた残高を返す。
func (r *PostgresCashMovementRepo) Balance(ctx context.Context) (int64, error) {
	return cashBalance(ctx, r.db)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func cashBalance(ctx context.Context, db rowQuerier) (int64, error) {
	var balance int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = 'in' THEN amount ELSE -amount END), 0)
		 FROM cash_movements`,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("金庫残高の取得に失敗しました: %w", err)
	}
	return balance, nil
}
