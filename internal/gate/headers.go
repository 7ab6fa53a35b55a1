package gate

import "net/http"

// キャッシュ抑止ヘッダーの値。
const (
	cacheControlValue = "no-store, no-cache, must-revalidate, max-age=0"
	pragmaValue       = "no-cache"
	expiresValue      = "0"
)

// NoCacheHeaders はブラウザおよび中間キャッシュに保存・再利用を禁止するヘッダーを返す。
// 呼び出しごとに新しいhttp.Headerを返す。
func NoCacheHeaders() http.Header {
	return http.Header{
		"Cache-Control": {cacheControlValue},
		"Pragma":        {pragmaValue},
		"Expires":       {expiresValue},
	}
}

// ApplyHeaders はsrcのヘッダーをdstに設定する。既存の同名ヘッダーは上書きする。
func ApplyHeaders(dst, src http.Header) {
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
}
