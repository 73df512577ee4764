package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
)

// ストア障害時にクライアントへ返す再試行目安（秒）
const retryAfterSeconds = "5"

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Details string `json:"details,omitempty"`
}

// NewError は理由コード付きの HTTP エラーを作る
func NewError(code int, reason, message string) *echo.HTTPError {
	return &echo.HTTPError{Code: code, Message: ErrorResponse{Error: message, Code: code, Reason: reason}}
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{
		Error:  "内部サーバーエラー",
		Code:   http.StatusInternalServerError,
		Reason: "internal",
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp.Code = he.Code
		resp.Reason = defaultReason(he.Code)
		switch m := he.Message.(type) {
		case ErrorResponse:
			resp = m
		case string:
			resp.Error = m
		default:
			resp.Error = http.StatusText(he.Code)
		}
	}

	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("reason", resp.Reason),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}
	if resp.Code == http.StatusServiceUnavailable {
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Code)
	} else {
		err = c.JSON(resp.Code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func defaultReason(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	}
	if code >= 500 {
		return "internal"
	}
	return ""
}
