package model

import "time"

// Member はナティジェラの会員（socio）を表す。
type Member struct {
	ID         string
	FullName   string
	DocumentID string
	Phone      string
	Email      string
	Shares     int // 保有口数
	Notes      string
	Active     bool
	JoinedAt   time.Time
	CreatedAt  time.Time
}

// Contribution は会員の月次掛金（cuota）の支払いを表す。
type Contribution struct {
	ID        string
	MemberID  string
	Period    string // YYYY-MM
	Amount    int64
	PaidAt    time.Time
	CreatedAt time.Time
}

// LateFee は延滞金（multa）を表す。
// 金額は入力値をそのまま記録し、算出ルールは持たない。
type LateFee struct {
	ID        string
	MemberID  string
	Period    string
	Amount    int64
	Reason    string
	Paid      bool
	CreatedAt time.Time
}
