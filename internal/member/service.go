// Package member は会員（socio）管理のドメインロジックを提供する。
package member

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
	"github.com/hitoshi/natillera/internal/security"
)

// CreateInput は会員登録の入力値。
type CreateInput struct {
	FullName   string
	DocumentID string
	Phone      string
	Email      string
	Shares     int
	Notes      string
	JoinedAt   time.Time // ゼロ値の場合は登録日
}

// Service は会員管理のサービス層。
type Service struct {
	repo      repository.MemberRepository
	sanitizer security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.MemberRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// List は会員一覧を返す。
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Member, error) {
	members, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("会員一覧の取得に失敗しました: %w", err)
	}
	return members, nil
}

// Get は指定IDの会員を返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Member, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("会員の取得に失敗しました: %w", err)
	}
	if m == nil {
		return nil, model.NewMemberNotFoundError(id)
	}
	return m, nil
}

// Create は入力値を検証して会員を登録する。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Member, error) {
	// 1. 入力値の正規化と検証
	fullName := s.sanitizer.Sanitize(in.FullName)
	if fullName == "" {
		return nil, model.NewInvalidFieldError("full_name")
	}
	documentID := strings.TrimSpace(in.DocumentID)
	if documentID == "" {
		return nil, model.NewInvalidFieldError("document_id")
	}
	shares := in.Shares
	if shares == 0 {
		shares = 1
	}
	if shares < 0 {
		return nil, model.NewInvalidFieldError("shares")
	}

	// 2. 身分証番号の重複チェック
	existing, err := s.repo.FindByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("身分証番号の確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateDocumentError(documentID)
	}

	// 3. 登録
	now := time.Now()
	joinedAt := in.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = now
	}
	m := &model.Member{
		ID:         uuid.New().String(),
		FullName:   fullName,
		DocumentID: documentID,
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
		Shares:     shares,
		Notes:      s.sanitizer.Sanitize(in.Notes),
		Active:     true,
		JoinedAt:   joinedAt,
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateDocumentError(documentID)
		}
		return nil, fmt.Errorf("会員の登録に失敗しました: %w", err)
	}

	return m, nil
}

// Withdraw は会員を退会扱いにする。記録は削除しない。
func (s *Service) Withdraw(ctx context.Context, id string) error {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("会員の退会処理に失敗しました: %w", err)
	}
	if !ok {
		return model.NewMemberNotFoundError(id)
	}
	return nil
}
