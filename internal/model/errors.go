// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeIdentityUnavailable = "IDENTITY_UNAVAILABLE"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidField        = "INVALID_FIELD"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidPeriod       = "INVALID_PERIOD"
	ErrCodeInvalidLoanStatus   = "INVALID_LOAN_STATUS"
	ErrCodeInvalidMovementKind = "INVALID_MOVEMENT_KIND"
	ErrCodeInvalidYear         = "INVALID_YEAR"
	ErrCodeMemberNotFound      = "MEMBER_NOT_FOUND"
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeRecordNotFound      = "RECORD_NOT_FOUND"
	ErrCodeDuplicateDocument   = "DUPLICATE_DOCUMENT"
	ErrCodeCSRFInvalid         = "CSRF_INVALID"
	ErrCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Se requiere autenticación.",
		Category: "auth",
		Action:   "Inicie sesión nuevamente.",
	}
}

// NewInvalidCredentialsError はログイン資格情報が誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Correo o contraseña incorrectos.",
		Category: "auth",
		Action:   "Verifique sus datos e intente de nuevo.",
	}
}

// NewIdentityUnavailableError はIDバックエンドに到達できない場合のエラーを生成する。
func NewIdentityUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityUnavailable,
		Message:  "El servicio de autenticación no está disponible.",
		Category: "system",
		Action:   "Espere un momento e intente de nuevo.",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "No se pudo interpretar el cuerpo de la solicitud.",
		Category: "validation",
		Action:   "Envíe la solicitud en formato JSON válido.",
	}
}

// NewInvalidFieldError は必須項目の欠落や形式不正のエラーを生成する。
func NewInvalidFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("El campo %s es obligatorio o no es válido.", field),
		Category: "validation",
		Action:   "Revise el valor ingresado.",
	}
}

// NewInvalidAmountError は金額が正でない場合のエラーを生成する。
func NewInvalidAmountError(amount int64) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  fmt.Sprintf("Monto no válido: %d", amount),
		Category: "validation",
		Action:   "El monto debe ser un número entero mayor que cero.",
	}
}

// NewInvalidPeriodError は期間がYYYY-MM形式でない場合のエラーを生成する。
func NewInvalidPeriodError(period string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPeriod,
		Message:  fmt.Sprintf("Periodo no válido: %s", period),
		Category: "validation",
		Action:   "Use el formato AAAA-MM, por ejemplo 2024-03.",
	}
}

// NewInvalidLoanStatusError は貸付状態が未定義の場合のエラーを生成する。
func NewInvalidLoanStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLoanStatus,
		Message:  fmt.Sprintf("Estado de préstamo no válido: %s", status),
		Category: "validation",
		Action:   "Use active, paid o defaulted.",
	}
}

// NewInvalidMovementKindError は入出金種別が未定義の場合のエラーを生成する。
func NewInvalidMovementKindError(kind string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMovementKind,
		Message:  fmt.Sprintf("Tipo de movimiento no válido: %s", kind),
		Category: "validation",
		Action:   "Use in (ingreso) u out (egreso).",
	}
}

// NewInvalidYearError は精算年が範囲外の場合のエラーを生成する。
func NewInvalidYearError(year int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidYear,
		Message:  fmt.Sprintf("Año no válido: %d", year),
		Category: "validation",
		Action:   "Indique un año entre 2000 y 2100.",
	}
}

// NewMemberNotFoundError は会員が見つからない場合のエラーを生成する。
func NewMemberNotFoundError(memberID string) *APIError {
	return &APIError{
		Code:     ErrCodeMemberNotFound,
		Message:  fmt.Sprintf("No se encontró el socio: %s", memberID),
		Category: "data",
		Action:   "Verifique el identificador del socio.",
	}
}

// NewLoanNotFoundError は貸付が見つからない場合のエラーを生成する。
func NewLoanNotFoundError(loanID string) *APIError {
	return &APIError{
		Code:     ErrCodeLoanNotFound,
		Message:  fmt.Sprintf("No se encontró el préstamo: %s", loanID),
		Category: "data",
		Action:   "Verifique el identificador del préstamo.",
	}
}

// NewRecordNotFoundError は汎用の記録未検出エラーを生成する。
func NewRecordNotFoundError(kind, id string) *APIError {
	return &APIError{
		Code:     ErrCodeRecordNotFound,
		Message:  fmt.Sprintf("No se encontró el registro de %s: %s", kind, id),
		Category: "data",
		Action:   "Actualice la página e intente de nuevo.",
	}
}

// NewDuplicateDocumentError は同じ身分証番号の会員が既に存在する場合のエラーを生成する。
func NewDuplicateDocumentError(documentID string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateDocument,
		Message:  fmt.Sprintf("Ya existe un socio con el documento %s.", documentID),
		Category: "data",
		Action:   "Verifique el número de documento.",
	}
}

// NewCSRFInvalidError はCSRFトークンの欠落または不一致のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "La solicitud no pudo verificarse.",
		Category: "auth",
		Action:   "Recargue la página e intente de nuevo.",
	}
}

// NewRateLimitedError はレート制限超過のエラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "Demasiadas solicitudes. Intente de nuevo más tarde.",
		Category: "system",
		Action:   "Espere el tiempo indicado y vuelva a intentarlo.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ残す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Ocurrió un error interno.",
		Category: "system",
		Action:   "Espere un momento e intente de nuevo.",
	}
}
