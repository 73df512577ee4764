package publicservice

import "errors"

var (
	ErrServiceNotFound     = errors.New("サービスが見つかりません")
	ErrServiceNameRequired = errors.New("サービス名は必須です")
	ErrServiceInactive     = errors.New("サービスは現在受付を停止しています")
)
