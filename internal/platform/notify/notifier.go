package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request types accepted on the storage endpoint.
const (
	TypeAdditionalStorage = "additional_storage"
	TypePlanUpgrade       = "plan_upgrade"
)

// Admin is a portal user with the super-admin role, the audience for
// storage-upgrade requests.
type Admin struct {
	ID       uuid.UUID `db:"id"`
	Email    string    `db:"email"`
	FullName string    `db:"full_name"`
}

// Notification is one in-app inbox row.
type Notification struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Kind      string    `db:"kind"`
	CreatedAt time.Time `db:"created_at"`
}

type Repository interface {
	ListSuperAdmins(ctx context.Context) ([]*Admin, error)
	CreateNotification(ctx context.Context, n *Notification) error
}

type EmailSender interface {
	Send(to, subject, body string) error
}

// StorageRequest is the inbound payload from the billing flow.
type StorageRequest struct {
	RequestID      string  `json:"requestId"`
	RequestType    string  `json:"requestType"`
	UserID         string  `json:"userId"`
	OrganizationID string  `json:"organizationId,omitempty"`
	AdditionalGB   int     `json:"additionalGB,omitempty"`
	MonthlyAmount  float64 `json:"monthlyAmount,omitempty"`
	PlanName       string  `json:"planName,omitempty"`
	Amount         float64 `json:"amount,omitempty"`
}

func (r *StorageRequest) Validate() error {
	if r.RequestID == "" || r.UserID == "" {
		return fmt.Errorf("requestId and userId are required")
	}
	switch r.RequestType {
	case TypeAdditionalStorage, TypePlanUpgrade:
		return nil
	default:
		return fmt.Errorf("unknown requestType %q", r.RequestType)
	}
}

type Result struct {
	NotificationsCreated int `json:"notificationsCreated"`
	EmailsSent           int `json:"emailsSent"`
}

// Notifier fans a storage request out to every super admin, writing one
// in-app notification row and sending one best-effort email each. A
// failure on one admin never blocks the rest, and email failures never
// fail the caller.
type Notifier struct {
	repo   Repository
	email  EmailSender
	logger zerolog.Logger
}

func NewNotifier(repo Repository, email EmailSender, logger zerolog.Logger) *Notifier {
	return &Notifier{repo: repo, email: email, logger: logger}
}

func (n *Notifier) subjectAndBody(req *StorageRequest) (string, string) {
	switch req.RequestType {
	case TypePlanUpgrade:
		return "Solicitação de upgrade de plano",
			fmt.Sprintf("Usuário %s solicitou upgrade para o plano %s (R$ %.2f/mês). Solicitação %s.",
				req.UserID, req.PlanName, req.Amount, req.RequestID)
	default:
		return "Solicitação de armazenamento adicional",
			fmt.Sprintf("Usuário %s solicitou %dGB adicionais (R$ %.2f/mês). Solicitação %s.",
				req.UserID, req.AdditionalGB, req.MonthlyAmount, req.RequestID)
	}
}

func (n *Notifier) Notify(ctx context.Context, req *StorageRequest) (*Result, error) {
	admins, err := n.repo.ListSuperAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list super admins: %w", err)
	}

	subject, body := n.subjectAndBody(req)
	res := &Result{}
	for _, admin := range admins {
		err := n.repo.CreateNotification(ctx, &Notification{
			UserID: admin.ID,
			Title:  subject,
			Body:   body,
			Kind:   req.RequestType,
		})
		if err != nil {
			n.logger.Error().Err(err).Str("admin_id", admin.ID.String()).Msg("in-app notification write failed")
		} else {
			res.NotificationsCreated++
		}

		if n.email == nil || admin.Email == "" {
			continue
		}
		if err := n.email.Send(admin.Email, subject, body); err != nil {
			n.logger.Error().Err(err).Str("email", admin.Email).Msg("notification email failed")
			continue
		}
		res.EmailsSent++
	}
	return res, nil
}
