package handler

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/natillera/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// pageNames はレイアウトと組み合わせて読み込むページテンプレート。
var pageNames = []string{
	"login",
	"dashboard",
	"socios",
	"cuotas",
	"multas",
	"prestamos",
	"intereses",
	"caja",
	"liquidacion",
	"gastos-bancarios",
	"actividades",
}

var templateFuncs = template.FuncMap{
	"money":        formatMoney,
	"date":         formatDate,
	"rate":         formatRate,
	"net":          func(income, expense int64) int64 { return income - expense },
	"loanStatus":   loanStatusLabel,
	"movementKind": movementKindLabel,
}

// parseTemplates はページごとにレイアウトと組み合わせたテンプレートを構築する。
func parseTemplates() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("テンプレート %s の解析に失敗しました: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// StaticHandler は埋め込み済みの静的ファイルを /static/ 配下で配信する。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// formatMoney は金額をペソ表記（千の位区切りにピリオド）で返す。
func formatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}

// formatRate はベーシスポイントの利率を百分率で返す。200 -> "2,00 %"
func formatRate(bp int) string {
	return fmt.Sprintf("%d,%02d %%", bp/100, bp%100)
}

func loanStatusLabel(s model.LoanStatus) string {
	switch s {
	case model.LoanStatusActive:
		return "Activo"
	case model.LoanStatusPaid:
		return "Pagado"
	case model.LoanStatusDefaulted:
		return "En mora"
	default:
		return string(s)
	}
}

func movementKindLabel(k model.MovementKind) string {
	if k == model.MovementIn {
		return "Ingreso"
	}
	return "Egreso"
}

// currentYear は精算画面の既定の年を返す。
func currentYear() int {
	return time.Now().Year()
}
