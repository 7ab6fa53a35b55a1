package identity

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenHint は署名を検証せずにアクセストークンから読み取ったログ用の情報。
// 認可判断には使用しないこと。有効性はValidateSessionでのみ判断する。
type TokenHint struct {
	Subject   string
	ExpiresAt time.Time
	Expired   bool
}

// Hint はアクセストークンのsubとexpを署名検証なしで読み取る。
// JWTとして解析できない場合はokがfalseとなる。
func Hint(token string, now time.Time) (TokenHint, bool) {
	if token == "" {
		return TokenHint{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenHint{}, false
	}

	var h TokenHint
	if sub, err := claims.GetSubject(); err == nil {
		h.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		h.ExpiresAt = exp.Time
		h.Expired = !now.Before(exp.Time)
	}
	return h, true
}

// LogAttrs はログ出力用の属性を返す。
func (h TokenHint) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{slog.Bool("token_expired", h.Expired)}
	if h.Subject != "" {
		attrs = append(attrs, slog.String("token_sub", h.Subject))
	}
	if !h.ExpiresAt.IsZero() {
		attrs = append(attrs, slog.Time("token_exp", h.ExpiresAt))
	}
	return attrs
}
