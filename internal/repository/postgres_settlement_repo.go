package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresSettlementRepo はPostgreSQLを使用した年次精算の集計リポジトリ。
type PostgresSettlementRepo struct {
	db *sql.DB
}

// NewPostgresSettlementRepo はPostgresSettlementRepoを生成する。
func NewPostgresSettlementRepo(db *sql.DB) *PostgresSettlementRepo {
	return &PostgresSettlementRepo{db: db}
}

// Aggregate は指定年の集計値を返す。掛金と延滞金は期間（YYYY-MM）の年で、
// その他は各記録日の年で絞り込む。
func (r *PostgresSettlementRepo) Aggregate(ctx context.Context, year int) (*model.Settlement, error) {
	s := &model.Settlement{Year: year}
	prefix := fmt.Sprintf("%04d-", year)

	// 1. 会員ごとの掛金合計（掛金のない在籍会員も0で含める）
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.full_name, COALESCE(SUM(c.amount), 0)
		 FROM members m
		 LEFT JOIN contributions c ON c.member_id = m.id AND c.period LIKE $1 || '%'
		 WHERE m.active = TRUE OR c.id IS NOT NULL
		 GROUP BY m.id, m.full_name
		 ORDER BY m.full_name ASC`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("会員別掛金の集計に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ms model.MemberSettlement
		if err := rows.Scan(&ms.MemberID, &ms.FullName, &ms.Contributed); err != nil {
			return nil, fmt.Errorf("会員別掛金行の読み取りに失敗しました: %w", err)
		}
		s.Members = append(s.Members, ms)
		s.TotalContributions += ms.Contributed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会員別掛金の走査に失敗しました: %w", err)
	}

	// 2. 年間合計
	err = r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COALESCE(SUM(amount), 0) FROM interest_payments WHERE EXTRACT(YEAR FROM paid_at) = $1),
		   (SELECT COALESCE(SUM(amount), 0) FROM late_fees WHERE period LIKE $2 || '%'),
		   (SELECT COALESCE(SUM(amount), 0) FROM bank_fees WHERE EXTRACT(YEAR FROM charged_at) = $1),
		   (SELECT COALESCE(SUM(income - expense), 0) FROM activities WHERE EXTRACT(YEAR FROM held_on) = $1)`,
		year, prefix,
	).Scan(&s.TotalInterest, &s.TotalLateFees, &s.TotalBankFees, &s.TotalActivities)
	if err != nil {
		return nil, fmt.Errorf("年間合計の集計に失敗しました: %w", err)
	}

	// 3. 現在の金庫残高
	s.CashBalance, err = cashBalance(ctx, r.db)
	if err != nil {
		return nil, err
	}

	return s, nil
}
