package usecase

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindInsufficientStock      ErrorKind = "INSUFFICIENT_STOCK"
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION"
	KindSignatureInvalid       ErrorKind = "SIGNATURE_INVALID"
	KindGatewayTimeout         ErrorKind = "GATEWAY_TIMEOUT"
	KindPersistence            ErrorKind = "PERSISTENCE"
)

// どの商品で在庫が足りなかったか（クライアントがカートを直せるように返す）
type StockShortage struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// 期待される失敗はexceptionではなくこの値で返す。
// panicはバグ・インフラ異常だけ。
type Error struct {
	Kind    ErrorKind
	Message string

	// INVALID_STATE_TRANSITIONのとき、呼び出し側が状態を同期し直せるように現在値を返す
	CurrentStatus string

	// INSUFFICIENT_STOCKのときだけ入る
	Shortages []StockShortage
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func AsError(err error) (*Error, bool) {
	var ue *Error
	ok := errors.As(err, &ue)
	return ue, ok
}

func IsKind(err error, kind ErrorKind) bool {
	ue, ok := AsError(err)
	return ok && ue.Kind == kind
}
