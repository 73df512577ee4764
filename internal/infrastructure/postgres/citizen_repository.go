package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/citizen"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/transaction"
)

type citizenRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     *string   `db:"email"`
	Phone     *string   `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const citizenColumns = `id, name, email, phone, created_at, updated_at`

type CitizenRepository struct{ db *sqlx.DB }

func NewCitizenRepository(db *sqlx.DB) *CitizenRepository {
	return &CitizenRepository{db: db}
}

func (r *CitizenRepository) Create(ctx context.Context, c *citizen.Citizen) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := r.db.Rebind(`INSERT INTO citizens (` + citizenColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
		return storeErr("住民登録に失敗", err)
	}
	return nil
}

func (r *CitizenRepository) GetByID(ctx context.Context, id string) (*citizen.Citizen, error) {
	return r.get(ctx, nil, id)
}

func (r *CitizenRepository) GetByIDTx(ctx context.Context, tx transaction.Tx, id string) (*citizen.Citizen, error) {
	return r.get(ctx, tx, id)
}

func (r *CitizenRepository) get(ctx context.Context, tx transaction.Tx, id string) (*citizen.Citizen, error) {
	q := runner(r.db, tx)
	var row citizenRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind(`SELECT `+citizenColumns+` FROM citizens WHERE id = ?`), id); err != nil {
		return nil, lookupErr(tx, err, citizen.ErrCitizenNotFound, "住民取得に失敗")
	}
	return &citizen.Citizen{
		ID: row.ID, Name: row.Name, Email: row.Email, Phone: row.Phone,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}, nil
}

var _ citizen.Repository = (*CitizenRepository)(nil)
