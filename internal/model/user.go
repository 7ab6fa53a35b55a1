package model

// Principal はIDバックエンドで検証済みの利用者を表す。
// 1リクエストの評価中にのみ存在し、永続化しない。
type Principal struct {
	ID    string
	Email string
	Role  string
}

// Tokens はCookieに保存されたIDバックエンドのセッション資格情報。
// 内容はIDバックエンドが所有し、アプリケーションは読み取り・転送・削除のみを行う。
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// SignInResult はパスワードログイン成功時にIDバックエンドから返されるセッション。
type SignInResult struct {
	Tokens
	ExpiresIn int // アクセストークンの有効期間（秒）
	Principal Principal
}
