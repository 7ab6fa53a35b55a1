package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/natillera/internal/model"
)

// PostgresMemberRepo はPostgreSQLを使用した会員リポジトリ。
type PostgresMemberRepo struct {
	db *sql.DB
}

// NewPostgresMemberRepo はPostgresMemberRepoを生成する。
func NewPostgresMemberRepo(db *sql.DB) *PostgresMemberRepo {
	return &PostgresMemberRepo{db: db}
}

const memberColumns = `id, full_name, document_id, phone, email, shares, notes, active, joined_at, created_at`

func scanMember(s interface{ Scan(dest ...any) error }) (*model.Member, error) {
	m := &model.Member{}
	err := s.Scan(&m.ID, &m.FullName, &m.DocumentID, &m.Phone, &m.Email,
		&m.Shares, &m.Notes, &m.Active, &m.JoinedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List は会員一覧を氏名順で返す。
func (r *PostgresMemberRepo) List(ctx context.Context, activeOnly bool) ([]*model.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+`
		 FROM members
		 WHERE ($1 = FALSE OR active = TRUE)
		 ORDER BY full_name ASC`,
		activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("会員一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var members []*model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("会員行の読み取りに失敗しました: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会員一覧の走査に失敗しました: %w", err)
	}

	return members, nil
}

// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
func (r *PostgresMemberRepo) FindByID(ctx context.Context, id string) (*model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("会員の取得に失敗しました: %w", err)
	}
	return m, nil
}

// FindByDocumentID は身分証番号で会員を検索する。見つからない場合はnilを返す。
func (r *PostgresMemberRepo) FindByDocumentID(ctx context.Context, documentID string) (*model.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE document_id = $1`,
		documentID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("身分証番号による会員の検索に失敗しました: %w", err)
	}
	return m, nil
}

// Create は会員を作成する。
func (r *PostgresMemberRepo) Create(ctx context.Context, m *model.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, full_name, document_id, phone, email, shares, notes, active, joined_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.FullName, m.DocumentID, m.Phone, m.Email, m.Shares, m.Notes, m.Active, m.JoinedAt, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("身分証番号%sの会員は既に存在します: %w", m.DocumentID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("会員の作成に失敗しました: %w", err)
	}
	return nil
}

// Deactivate は会員を退会扱いにする。
func (r *PostgresMemberRepo) Deactivate(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET active = FALSE WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("会員の退会処理に失敗しました: %w", err)
	}
	return affected(result)
}

// affected は更新・削除の影響行数が1以上かどうかを返す。
func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("影響行数の取得に失敗しました: %w", err)
	}
	return n > 0, nil
}
