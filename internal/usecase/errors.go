package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラー種別。UIが分岐できるように機械可読コードを持たせる。
const (
	CodeValidation         = "VALIDATION"
	CodeNotFound           = "NOT_FOUND"
	CodeExpired            = "EXPIRED"
	CodeIneligible         = "INELIGIBLE"
	CodeStockInsufficient  = "STOCK_INSUFFICIENT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeTransitionRejected = "TRANSITION_REJECTED"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL"
)

// 在庫系エラーに載せる行単位の詳細。
// 「どの行が」「いくつ要求で」「いくつ在るか」をUIにそのまま返す。
type InvalidItem struct {
	VariantID int64  `json:"variant_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	Reason    string `json:"reason"`
}

type HTTPError struct {
	Status  int
	Code    string
	Message string

	//在庫不足のときだけ入る
	InvalidItems []InvalidItem
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// 在庫不足。失敗した行を必ず添える。
func NewStockInsufficientError(items []InvalidItem) error {
	return &HTTPError{
		Status:       http.StatusConflict,
		Code:         CodeStockInsufficient,
		Message:      "insufficient stock",
		InvalidItems: items,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
