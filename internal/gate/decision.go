package gate

import (
	"net/http"
	"strings"

	"github.com/hitoshi/natillera/internal/model"
)

// Action はアクセス判定の結果。
type Action int

const (
	// ActionAllow はリクエストを後続のハンドラーへ渡す。
	ActionAllow Action = iota
	// ActionRedirectToLogin はセッションCookieを削除してログイン画面へリダイレクトする。
	ActionRedirectToLogin
	// ActionRedirectToHome はログイン済みのためホームへリダイレクトする。
	ActionRedirectToHome
)

// String はログおよびメトリクスのラベル用の名前を返す。
func (a Action) String() string {
	switch a {
	case ActionRedirectToLogin:
		return "redirect_login"
	case ActionRedirectToHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

// WellKnownSessionCookies はログインリダイレクト時に常に削除するCookie名。
var WellKnownSessionCookies = []string{"sb-access-token", "sb-refresh-token"}

// DefaultCookieMarkers はIDバックエンドのCookieとみなす名前の部分文字列。
// "auth"は無関係なCookieにも一致しうるが、ローテーションされた未知の名前も
// 確実に削除するため一致範囲を狭めない。
var DefaultCookieMarkers = []string{"supabase", "sb-", "auth"}

// Policy はDecideが参照する静的な設定。
type Policy struct {
	LoginPath string   // 未認証時のリダイレクト先
	HomePath  string   // ログイン済みでログイン画面を開いた場合のリダイレクト先
	Markers   []string // 削除対象Cookie名の部分文字列（大文字小文字を区別する）
}

// DefaultPolicy は既定のPolicyを返す。
func DefaultPolicy() Policy {
	return Policy{
		LoginPath: DefaultLoginPrefix,
		HomePath:  "/",
		Markers:   DefaultCookieMarkers,
	}
}

// CookieMutation はレスポンスに適用するCookie変更。
// 判定ロジックが発行するのは削除（MaxAge < 0）のみ。
type CookieMutation struct {
	Name   string
	Value  string
	MaxAge int
}

// IsDeletion は削除を表す変更かどうかを返す。
func (m CookieMutation) IsDeletion() bool {
	return m.MaxAge < 0
}

// Decision はアクセス判定の結果と、呼び出し元が一度だけ適用する副作用の一覧。
// Decideは呼び出しごとに新しいスライスとヘッダーを生成するため、
// 値を受け取った側で変更しても他の判定には影響しない。
type Decision struct {
	Action   Action
	Location string // リダイレクト先。Allowの場合は空
	Cookies  []CookieMutation
	Headers  http.Header
}

// StatusCode はリダイレクト時のHTTPステータスを返す。Allowの場合は0。
// GETとHEADは307でメソッドを保つ。フォーム送信などそれ以外のメソッドは
// 303でリダイレクト先をGETに切り替える（POST / や POST /login に化けないようにする）。
func (d Decision) StatusCode(method string) int {
	if d.Action == ActionAllow {
		return 0
	}
	switch method {
	case http.MethodGet, http.MethodHead:
		return http.StatusTemporaryRedirect
	default:
		return http.StatusSeeOther
	}
}

// Decide はルート分類と検証結果からアクセス判定を導出する。
// 入力のみに依存する純粋関数で、同じ入力には常に同じ結果を返す。
//
//	PublicLogin + principalあり → RedirectToHome
//	PublicLogin + principalなし → Allow
//	Protected   + principalあり → Allow
//	Protected   + principalなし → RedirectToLogin（セッションCookieを削除）
//
// cookieNamesにはリクエストに付与されたすべてのCookie名を渡す。
func Decide(category Category, principal *model.Principal, cookieNames []string, policy Policy) Decision {
	d := Decision{Headers: NoCacheHeaders()}

	switch {
	case category == CategoryPublicLogin && principal != nil:
		d.Action = ActionRedirectToHome
		d.Location = policy.HomePath
	case category == CategoryPublicLogin:
		d.Action = ActionAllow
	case principal != nil:
		d.Action = ActionAllow
	default:
		d.Action = ActionRedirectToLogin
		d.Location = policy.LoginPath
		d.Cookies = sessionCookieDeletions(cookieNames, policy.Markers)
	}

	return d
}

// sessionCookieDeletions は既知のセッションCookieと、マーカーに一致する
// リクエスト上のすべてのCookieの削除一覧を重複なく返す。
func sessionCookieDeletions(cookieNames []string, markers []string) []CookieMutation {
	seen := make(map[string]struct{}, len(WellKnownSessionCookies)+len(cookieNames))
	var out []CookieMutation

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, CookieMutation{Name: name, MaxAge: -1})
	}

	for _, name := range WellKnownSessionCookies {
		add(name)
	}
	for _, name := range cookieNames {
		if MatchesMarker(name, markers) {
			add(name)
		}
	}
	return out
}

// MatchesMarker はCookie名がいずれかのマーカーを含むかどうかを判定する。
func MatchesMarker(name string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}
