package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/publicservice"
)

type serviceRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Department *string   `db:"department"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const serviceColumns = `id, name, department, is_active, created_at, updated_at`

type ServiceRepository struct{ db *sqlx.DB }

func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Create(ctx context.Context, s *publicservice.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := r.db.Rebind(`INSERT INTO public_services (` + serviceColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.Department, s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC()); err != nil {
		return storeErr("サービス作成に失敗", err)
	}
	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*publicservice.Service, error) {
	var row serviceRow
	query := r.db.Rebind(`SELECT ` + serviceColumns + ` FROM public_services WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, notFoundOr(err, publicservice.ErrServiceNotFound, "サービス取得に失敗")
	}
	return row.toEntity(), nil
}

func (r *ServiceRepository) List(ctx context.Context, activeOnly bool) ([]*publicservice.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM public_services`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY name, id`

	var rows []serviceRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, storeErr("サービス一覧取得に失敗", err)
	}
	out := make([]*publicservice.Service, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (row *serviceRow) toEntity() *publicservice.Service {
	return &publicservice.Service{
		ID: row.ID, Name: row.Name, Department: row.Department, IsActive: row.IsActive,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

var _ publicservice.Repository = (*ServiceRepository)(nil)
