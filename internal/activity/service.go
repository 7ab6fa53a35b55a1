// Package activity は資金集めの活動（rifa、bingo等）の記録を扱う。
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
	"github.com/hitoshi/natillera/internal/security"
)

// CreateInput は活動記録の入力値。
type CreateInput struct {
	Name        string
	Description string
	Income      int64
	Expense     int64
	HeldOn      time.Time
}

// Service は活動のサービス層。
type Service struct {
	repo      repository.ActivityRepository
	sanitizer security.TextSanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ActivityRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{repo: repo, sanitizer: sanitizer}
}

// List は活動一覧を返す。
func (s *Service) List(ctx context.Context) ([]*model.Activity, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("活動一覧の取得に失敗しました: %w", err)
	}
	return activities, nil
}

// Create は活動を記録する。収入・支出は0を許容するが負の値は受け付けない。
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Activity, error) {
	name := s.sanitizer.Sanitize(in.Name)
	if name == "" {
		return nil, model.NewInvalidFieldError("name")
	}
	if in.Income < 0 {
		return nil, model.NewInvalidAmountError(in.Income)
	}
	if in.Expense < 0 {
		return nil, model.NewInvalidAmountError(in.Expense)
	}

	now := time.Now()
	heldOn := in.HeldOn
	if heldOn.IsZero() {
		heldOn = now
	}
	a := &model.Activity{
		ID:          uuid.New().String(),
		Name:        name,
		Description: s.sanitizer.Sanitize(in.Description),
		Income:      in.Income,
		Expense:     in.Expense,
		HeldOn:      heldOn,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("活動の記録に失敗しました: %w", err)
	}
	return a, nil
}

// Delete は活動の記録を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("活動の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewRecordNotFoundError("actividad", id)
	}
	return nil
}
