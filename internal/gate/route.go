// Package gate はセッションによるルート保護の判定ロジックを提供する。
//
// 1リクエストの評価は次の順序で一方向に進む。
//
//	Unclassified → Classified → Validated → Decided → HeadersApplied
//
// このパッケージはルート分類（Classifier）、アクセス判定（Decide）、
// キャッシュ抑止ヘッダー（NoCacheHeaders）の純粋な部分のみを持つ。
// IDバックエンドへの問い合わせと判定結果の適用はmiddlewareパッケージが行う。
package gate

import "strings"

// Category はリクエストパスの分類。
type Category int

const (
	// CategoryProtected は有効なセッションを必要とするパス。
	CategoryProtected Category = iota
	// CategoryPublicLogin はログイン画面のパス。
	CategoryPublicLogin
)

// String はログ出力用の名前を返す。
func (c Category) String() string {
	switch c {
	case CategoryPublicLogin:
		return "public_login"
	default:
		return "protected"
	}
}

// DefaultLoginPrefix はログイン画面として扱うパスの既定プレフィックス。
const DefaultLoginPrefix = "/login"

// DefaultExcluded はゲート対象外とするパスプレフィックスの既定値。
// 静的アセット、フレームワーク内部アセット、画像最適化、favicon、APIの名前空間、
// ヘルスチェックとメトリクスを除外する。
var DefaultExcluded = []string{
	"/static/",
	"/_assets/",
	"/_img/",
	"/favicon.ico",
	"/api",
	"/health",
	"/metrics",
}

// Classifier はリクエストパスをゲートの分類に対応付ける。
// 状態を持たないため、複数のgoroutineから同時に利用できる。
type Classifier struct {
	loginPrefix string
	excluded    []string
}

// NewClassifier はClassifierを生成する。
// loginPrefixが空の場合はDefaultLoginPrefix、excludedがnilの場合はDefaultExcludedを使用する。
func NewClassifier(loginPrefix string, excluded []string) *Classifier {
	if loginPrefix == "" {
		loginPrefix = DefaultLoginPrefix
	}
	if excluded == nil {
		excluded = DefaultExcluded
	}
	// 呼び出し元のスライス変更の影響を受けないようコピーする
	ex := make([]string, 0, len(excluded))
	for _, p := range excluded {
		if p = strings.TrimSpace(p); p != "" {
			ex = append(ex, p)
		}
	}
	return &Classifier{loginPrefix: loginPrefix, excluded: ex}
}

// Excluded はパスがゲート対象外かどうかを判定する。
// 除外パターンはログイン判定より優先される。
func (c *Classifier) Excluded(path string) bool {
	for _, p := range c.excluded {
		if matchPrefix(path, p) {
			return true
		}
	}
	return false
}

// Classify はゲート対象のパスをPublicLoginまたはProtectedに分類する。
// Excludedがtrueとなるパスに対しては呼び出さないこと。
func (c *Classifier) Classify(path string) Category {
	if matchPrefix(path, c.loginPrefix) {
		return CategoryPublicLogin
	}
	return CategoryProtected
}

// matchPrefix はパスがパターンに一致するかをセグメント単位で判定する。
// "/" で終わるパターンは前方一致、それ以外は完全一致か "pattern/" 配下のみ一致する。
// 例: "/api" は "/api" と "/api/members" に一致し、"/apiary" には一致しない。
func matchPrefix(path, pattern string) bool {
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern)
	}
	return path == pattern || strings.HasPrefix(path, pattern+"/")
}

// LoginPrefix はログイン画面のパスプレフィックスを返す。
func (c *Classifier) LoginPrefix() string {
	return c.loginPrefix
}
