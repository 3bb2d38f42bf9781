package exchange

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// CodeQuantityPrecision: "Precision is over the maximum defined for this asset."
	CodeQuantityPrecision int64 = -1111
	// CodeNoNeedToChangeMargin: "No need to change margin type."
	CodeNoNeedToChangeMargin int64 = -4046
)

var (
	ErrNotConnected = errors.New("exchange not connected")
	ErrNoPrice      = errors.New("no price available")
)

// APIError 是交易所返回的业务错误，各适配器需要把原生错误转换为该类型。
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("<APIError> code=%d, msg=%s", e.Code, e.Message)
}

// IsPrecisionError 判断是否为数量精度被拒，可换用更粗的步长重试。
func IsPrecisionError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == CodeQuantityPrecision
	}
	return false
}

// IsNoChangeNeeded 判断设置保证金模式时是否只是“已是该模式”。
func IsNoChangeNeeded(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == CodeNoNeedToChangeMargin {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no need to change") || strings.Contains(msg, "margin type is same")
}
