package binance

import (
	"context"
	"errors"

	"planc/internal/gateway/exchange"

	"github.com/adshao/go-binance/v2/common"
)

const (
	codeDisconnected    int64 = -1001
	codeTooManyRequests int64 = -1003
	codeTimeout         int64 = -1007
)

// translateError 把 SDK 的 common.APIError 转成 exchange.APIError，其余错误原样返回。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.APIError{Code: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

// isTransient 判断是否值得在同一轮内重试：网络层错误与限频/超时类业务码。
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *exchange.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeDisconnected, codeTooManyRequests, codeTimeout:
			return true
		default:
			return false
		}
	}
	return true
}
