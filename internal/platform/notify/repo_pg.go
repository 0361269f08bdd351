package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) ListSuperAdmins(ctx context.Context) ([]*Admin, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, full_name FROM app_users
		WHERE role = 'super_admin' ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var admins []*Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Email, &a.FullName); err != nil {
			return nil, err
		}
		admins = append(admins, &a)
	}
	return admins, rows.Err()
}

func (r *repoPG) CreateNotification(ctx context.Context, n *Notification) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, user_id, title, body, kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		uuid.New(), n.UserID, n.Title, n.Body, n.Kind,
	).Scan(&n.ID, &n.CreatedAt)
}
