package identity

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/natillera/internal/model"
)

const (
	// AccessTokenCookie はアクセストークンを保持するCookie名。
	AccessTokenCookie = "sb-access-token"
	// RefreshTokenCookie はリフレッシュトークンを保持するCookie名。
	RefreshTokenCookie = "sb-refresh-token"

	base64Prefix = "base64-"
)

// ssrCookiePattern はSSRクライアントが使う sb-<ref>-auth-token（分割時は .0, .1 ...）に一致する。
var ssrCookiePattern = regexp.MustCompile(`^(sb-[A-Za-z0-9_-]+-auth-token)(?:\.(\d+))?$`)

// TokensFromCookies はリクエストのCookieからセッション資格情報を取り出す。
// sb-access-token / sb-refresh-token を優先し、無い場合はSSR形式のCookieを復元する。
// 解析できない場合は空のTokensを返す（検証時にErrMissingSessionとなる）。
func TokensFromCookies(cookies []*http.Cookie) model.Tokens {
	var tokens model.Tokens
	for _, c := range cookies {
		switch c.Name {
		case AccessTokenCookie:
			tokens.AccessToken = c.Value
		case RefreshTokenCookie:
			tokens.RefreshToken = c.Value
		}
	}
	if tokens.AccessToken != "" {
		return tokens
	}

	if ssr, ok := tokensFromSSRCookies(cookies); ok {
		return ssr
	}
	return tokens
}

// ssrChunk は分割されたSSR形式Cookieの1片。
type ssrChunk struct {
	index int
	value string
}

func tokensFromSSRCookies(cookies []*http.Cookie) (model.Tokens, bool) {
	groups := make(map[string][]ssrChunk)
	var bases []string

	for _, c := range cookies {
		m := ssrCookiePattern.FindStringSubmatch(c.Name)
		if m == nil {
			continue
		}
		idx := -1
		if m[2] != "" {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			idx = n
		}
		if _, ok := groups[m[1]]; !ok {
			bases = append(bases, m[1])
		}
		groups[m[1]] = append(groups[m[1]], ssrChunk{index: idx, value: c.Value})
	}
	sort.Strings(bases)

	for _, base := range bases {
		chunks := groups[base]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].index < chunks[j].index })

		var sb strings.Builder
		for _, ch := range chunks {
			sb.WriteString(ch.value)
		}
		if tokens, ok := decodeSSRValue(sb.String()); ok {
			return tokens, true
		}
	}
	return model.Tokens{}, false
}

// ssrSession はSSR形式Cookieに保存されるセッションJSON。
type ssrSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// decodeSSRValue はCookie値をJSONオブジェクトまたは配列として解釈する。
// 値はURLエンコードおよび "base64-" 接頭辞付きのbase64エンコードを許容する。
func decodeSSRValue(raw string) (model.Tokens, bool) {
	if unescaped, err := url.QueryUnescape(raw); err == nil {
		raw = unescaped
	}
	if strings.HasPrefix(raw, base64Prefix) {
		encoded := strings.TrimPrefix(raw, base64Prefix)
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			decoded, err = base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				return model.Tokens{}, false
			}
		}
		raw = string(decoded)
	}

	var obj ssrSession
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj.AccessToken != "" {
		return model.Tokens{AccessToken: obj.AccessToken, RefreshToken: obj.RefreshToken}, true
	}

	// 旧形式: [access_token, refresh_token, ...]
	var arr []*string
	if err := json.Unmarshal([]byte(raw), &arr); err == nil && len(arr) > 0 && arr[0] != nil && *arr[0] != "" {
		t := model.Tokens{AccessToken: *arr[0]}
		if len(arr) > 1 && arr[1] != nil {
			t.RefreshToken = *arr[1]
		}
		return t, true
	}
	return model.Tokens{}, false
}
