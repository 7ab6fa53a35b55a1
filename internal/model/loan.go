package model

import "time"

// LoanStatus は貸付の状態を表す。
type LoanStatus string

const (
	// LoanStatusActive は返済中の貸付。
	LoanStatusActive LoanStatus = "active"
	// LoanStatusPaid は完済済みの貸付。
	LoanStatusPaid LoanStatus = "paid"
	// LoanStatusDefaulted は貸し倒れ扱いの貸付。
	LoanStatusDefaulted LoanStatus = "defaulted"
)

// IsValid は定義済みの状態かどうかを判定する。
func (s LoanStatus) IsValid() bool {
	switch s {
	case LoanStatusActive, LoanStatusPaid, LoanStatusDefaulted:
		return true
	default:
		return false
	}
}

// Loan は会員への貸付（préstamo）を表す。
type Loan struct {
	ID          string
	MemberID    string
	Principal   int64
	MonthlyRate int // 月利（ベーシスポイント）。記録のみで計算には使用しない
	Status      LoanStatus
	IssuedAt    time.Time
	DueAt       *time.Time
	CreatedAt   time.Time
}

// InterestPayment は貸付に対する利息の支払い記録（PaymentRecord）。
type InterestPayment struct {
	ID        string
	LoanID    string
	MemberID  string
	Amount    int64
	PaidAt    time.Time
	CreatedAt time.Time
}
