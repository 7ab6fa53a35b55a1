package model

import (
	"regexp"
	"time"
)

// MovementKind は中央金庫の入出金種別。
type MovementKind string

const (
	// MovementIn は入金。
	MovementIn MovementKind = "in"
	// MovementOut は出金。
	MovementOut MovementKind = "out"
)

// IsValid は定義済みの種別かどうかを判定する。
func (k MovementKind) IsValid() bool {
	return k == MovementIn || k == MovementOut
}

// CashMovement は中央金庫（caja）の入出金を表す。
type CashMovement struct {
	ID         string
	Kind       MovementKind
	Concept    string
	Amount     int64
	OccurredAt time.Time
	CreatedAt  time.Time
}

// BankFee は銀行手数料（gasto bancario）の記録。
type BankFee struct {
	ID        string
	Concept   string
	Amount    int64
	ChargedAt time.Time
	CreatedAt time.Time
}

// Activity は資金集めの活動（rifa、bingo等）を表す。
type Activity struct {
	ID          string
	Name        string
	Description string
	Income      int64
	Expense     int64
	HeldOn      time.Time
	CreatedAt   time.Time
}

// MemberSettlement は年次精算における会員ごとの掛金合計。
type MemberSettlement struct {
	MemberID    string
	FullName    string
	Contributed int64
}

// Settlement は年次精算（liquidación anual）の集計結果。
// 集計値のみを保持し、配分ルールは持たない。
type Settlement struct {
	Year               int
	Members            []MemberSettlement
	TotalContributions int64
	TotalInterest      int64
	TotalLateFees      int64
	TotalBankFees      int64
	TotalActivities    int64 // 活動の収入 - 支出
	CashBalance        int64
}

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidatePeriod は期間がYYYY-MM形式かどうかを検証する。
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return NewInvalidPeriodError(period)
	}
	return nil
}

// ValidateAmount は金額が正の整数かどうかを検証する。
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return NewInvalidAmountError(amount)
	}
	return nil
}

// 精算対象として受け付ける年の範囲。
const (
	MinSettlementYear = 2000
	MaxSettlementYear = 2100
)

// ValidateSettlementYear は精算年が受け付け範囲内かどうかを検証する。
func ValidateSettlementYear(year int) error {
	if year < MinSettlementYear || year > MaxSettlementYear {
		return NewInvalidYearError(year)
	}
	return nil
}
