package publicservice

import "context"

// Repository はサービスリポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, s *Service) error
	GetByID(ctx context.Context, id string) (*Service, error)
	List(ctx context.Context, activeOnly bool) ([]*Service, error)
}
