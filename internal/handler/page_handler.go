package handler

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/natillera/internal/middleware"
	"github.com/hitoshi/natillera/internal/model"
	"github.com/hitoshi/natillera/internal/repository"
)

// cashPageLimit は金庫画面に表示する入出金の最大件数。
const cashPageLimit = 100

// PageDeps は画面ハンドラーが参照するサービス群。
type PageDeps struct {
	Members    MemberServiceInterface
	Ledger     LedgerServiceInterface
	Loans      LoanServiceInterface
	Activities ActivityServiceInterface
}

// PageHandler はHTML画面のHTTPハンドラー。
type PageHandler struct {
	deps      PageDeps
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。テンプレートの解析に失敗した場合はエラーを返す。
func NewPageHandler(deps PageDeps, logger *slog.Logger) (*PageHandler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{deps: deps, templates: templates, logger: logger}, nil
}

// pageData はレイアウトに渡す共通データ。
type pageData struct {
	Title     string
	CSRFToken string
	User      *model.Principal
	Error     string
	Data      any
}

// dashboardCard はダッシュボードのナビゲーションカード。
type dashboardCard struct {
	Title       string
	Description string
	Href        string
}

var dashboardCards = []dashboardCard{
	{"Socios", "Inscripción y estado de los socios", "/socios"},
	{"Cuotas", "Control de aportes mensuales", "/cuotas"},
	{"Multas", "Multas por pagos tardíos", "/multas"},
	{"Préstamos", "Préstamos otorgados a socios", "/prestamos"},
	{"Intereses", "Historial y total de intereses", "/intereses"},
	{"Caja", "Movimientos y saldo de la caja central", "/caja"},
	{"Liquidación", "Liquidación anual por socio", "/liquidacion"},
	{"Gastos bancarios", "Comisiones y cargos del banco", "/gastos-bancarios"},
	{"Actividades", "Rifas, bingos y otras actividades", "/actividades"},
}

type contributionsPage struct {
	Period        string
	Contributions []*model.Contribution
	Names         map[string]string
}

type lateFeesPage struct {
	LateFees []*model.LateFee
	Names    map[string]string
}

type loansPage struct {
	Loans []*model.Loan
	Names map[string]string
}

type interestPage struct {
	Payments []*model.InterestPayment
	Total    int64
	Names    map[string]string
}

type cashPage struct {
	Movements []*model.CashMovement
	Balance   int64
}

type settlementPage struct {
	Year       int
	Settlement *model.Settlement
}

// Dashboard はナビゲーションカードを表示する。
// GET /
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "dashboard", "Panel principal", "", dashboardCards)
}

// Members は会員一覧を表示する。
// GET /socios
func (h *PageHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.deps.Members.List(r.Context(), false)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "socios", "Socios", "", members)
}

// Contributions は掛金一覧を表示する。
// GET /cuotas?periodo=YYYY-MM
func (h *PageHandler) Contributions(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("periodo")
	data := contributionsPage{Period: period}

	contributions, err := h.deps.Ledger.ListContributions(r.Context(), repository.ContributionFilter{Period: period})
	if msg, ok := validationMessage(err); ok {
		h.render(w, r, http.StatusBadRequest, "cuotas", "Cuotas", msg, data)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data.Contributions = contributions

	if data.Names, err = h.memberNames(r.Context()); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "cuotas", "Cuotas", "", data)
}

// LateFees は延滞金一覧を表示する。
// GET /multas
func (h *PageHandler) LateFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.deps.Ledger.ListLateFees(r.Context(), "")
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	names, err := h.memberNames(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "multas", "Multas", "", lateFeesPage{LateFees: fees, Names: names})
}

// Loans は貸付一覧を表示する。
// GET /prestamos
func (h *PageHandler) Loans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.deps.Loans.List(r.Context(), "")
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	names, err := h.memberNames(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "prestamos", "Préstamos", "", loansPage{Loans: loans, Names: names})
}

// Interest は利息支払いの履歴と合計を表示する。
// GET /intereses
func (h *PageHandler) Interest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payments, err := h.deps.Loans.History(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	total, err := h.deps.Loans.Total(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	names, err := h.memberNames(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "intereses", "Intereses", "", interestPage{Payments: payments, Total: total, Names: names})
}

// Cash は金庫の入出金と残高を表示する。
// GET /caja
func (h *PageHandler) Cash(w http.ResponseWriter, r *http.Request) {
	movements, err := h.deps.Ledger.ListCashMovements(r.Context(), cashPageLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	balance, err := h.deps.Ledger.CashBalance(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "caja", "Caja central", "", cashPage{Movements: movements, Balance: balance})
}

// Settlement は年次精算を表示する。
// GET /liquidacion?anio=YYYY
func (h *PageHandler) Settlement(w http.ResponseWriter, r *http.Request) {
	year := currentYear()
	if v := r.URL.Query().Get("anio"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			h.render(w, r, http.StatusBadRequest, "liquidacion", "Liquidación anual",
				model.NewInvalidFieldError("anio").Message, settlementPage{Year: year})
			return
		}
		year = y
	}

	s, err := h.deps.Ledger.Settlement(r.Context(), year)
	if msg, ok := validationMessage(err); ok {
		h.render(w, r, http.StatusBadRequest, "liquidacion", "Liquidación anual", msg, settlementPage{Year: year})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "liquidacion", "Liquidación anual", "", settlementPage{Year: year, Settlement: s})
}

// BankFees は銀行手数料一覧を表示する。
// GET /gastos-bancarios
func (h *PageHandler) BankFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.deps.Ledger.ListBankFees(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "gastos-bancarios", "Gastos bancarios", "", fees)
}

// Activities は活動一覧を表示する。
// GET /actividades
func (h *PageHandler) Activities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.deps.Activities.List(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "actividades", "Actividades", "", activities)
}

// render はレイアウト付きでページを描画する。
// 描画結果をバッファしてから書き込み、途中で失敗した場合は500を返す。
func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page, title, errMsg string, data any) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	pd := pageData{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		User:      principal,
		Error:     errMsg,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", pd); err != nil {
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// serverError はエラーをログに記録し、汎用の500レスポンスを返す。
func (h *PageHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "page rendering failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	http.Error(w, "Ocurrió un error interno.", http.StatusInternalServerError)
}

// memberNames は会員IDから氏名への対応表を返す。
func (h *PageHandler) memberNames(ctx context.Context) (map[string]string, error) {
	members, err := h.deps.Members.List(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.FullName
	}
	return names, nil
}

// validationMessage は入力検証エラーの場合に利用者向けメッセージを返す。
func validationMessage(err error) (string, bool) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Category == "validation" {
		return apiErr.Message, true
	}
	return "", false
}
