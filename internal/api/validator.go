package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate はリクエストのバリデーションを実行する
// 失敗したフィールドは details にまとめて返す
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	he := NewError(http.StatusBadRequest, "invalid_request", "入力値が不正です")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field() + ":" + fe.Tag()
		}
		resp := he.Message.(ErrorResponse)
		resp.Details = strings.Join(fields, ", ")
		he.Message = resp
	}
	return he
}
