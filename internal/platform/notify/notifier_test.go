package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeRepo struct {
	admins       []*Admin
	created      []*Notification
	failAdminIDs map[uuid.UUID]bool
	listErr      error
}

func (f *fakeRepo) ListSuperAdmins(context.Context) ([]*Admin, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.admins, nil
}

func (f *fakeRepo) CreateNotification(_ context.Context, n *Notification) error {
	if f.failAdminIDs[n.UserID] {
		return errors.New("forced insert failure")
	}
	n.ID = uuid.New()
	f.created = append(f.created, n)
	return nil
}

type fakeEmail struct {
	sent      []string
	failAddrs map[string]bool
}

func (f *fakeEmail) Send(to, _, _ string) error {
	if f.failAddrs[to] {
		return errors.New("forced smtp failure")
	}
	f.sent = append(f.sent, to)
	return nil
}

func storageReq() *StorageRequest {
	return &StorageRequest{
		RequestID:     "req-1",
		RequestType:   TypeAdditionalStorage,
		UserID:        uuid.New().String(),
		AdditionalGB:  50,
		MonthlyAmount: 49.90,
	}
}

func TestNotifyFansOutToEverySuperAdmin(t *testing.T) {
	repo := &fakeRepo{admins: []*Admin{
		{ID: uuid.New(), Email: "admin1@vidalink.com.br"},
		{ID: uuid.New(), Email: "admin2@vidalink.com.br"},
		{ID: uuid.New(), Email: "admin3@vidalink.com.br"},
	}}
	email := &fakeEmail{}
	n := NewNotifier(repo, email, zerolog.Nop())

	res, err := n.Notify(context.Background(), storageReq())
	if err != nil {
		t.Fatal(err)
	}
	if res.NotificationsCreated != 3 || res.EmailsSent != 3 {
		t.Fatalf("created=%d emails=%d, want 3/3", res.NotificationsCreated, res.EmailsSent)
	}
}

func TestNotifyEmailFailureNeverFailsTheCaller(t *testing.T) {
	repo := &fakeRepo{admins: []*Admin{
		{ID: uuid.New(), Email: "ok@vidalink.com.br"},
		{ID: uuid.New(), Email: "down@vidalink.com.br"},
	}}
	email := &fakeEmail{failAddrs: map[string]bool{"down@vidalink.com.br": true}}
	n := NewNotifier(repo, email, zerolog.Nop())

	res, err := n.Notify(context.Background(), storageReq())
	if err != nil {
		t.Fatalf("email failure must not fail the caller: %v", err)
	}
	if res.NotificationsCreated != 2 || res.EmailsSent != 1 {
		t.Fatalf("created=%d emails=%d, want 2/1", res.NotificationsCreated, res.EmailsSent)
	}
}

func TestNotifyInsertFailureDoesNotBlockOthers(t *testing.T) {
	badAdmin := uuid.New()
	repo := &fakeRepo{
		admins: []*Admin{
			{ID: badAdmin, Email: "a@vidalink.com.br"},
			{ID: uuid.New(), Email: "b@vidalink.com.br"},
		},
		failAdminIDs: map[uuid.UUID]bool{badAdmin: true},
	}
	n := NewNotifier(repo, &fakeEmail{}, zerolog.Nop())

	res, err := n.Notify(context.Background(), storageReq())
	if err != nil {
		t.Fatal(err)
	}
	if res.NotificationsCreated != 1 || res.EmailsSent != 2 {
		t.Fatalf("created=%d emails=%d, want 1/2", res.NotificationsCreated, res.EmailsSent)
	}
}

func TestNotifyNoEmailSenderConfigured(t *testing.T) {
	repo := &fakeRepo{admins: []*Admin{{ID: uuid.New(), Email: "a@vidalink.com.br"}}}
	n := NewNotifier(repo, nil, zerolog.Nop())

	res, err := n.Notify(context.Background(), storageReq())
	if err != nil {
		t.Fatal(err)
	}
	if res.NotificationsCreated != 1 || res.EmailsSent != 0 {
		t.Fatalf("created=%d emails=%d, want 1/0", res.NotificationsCreated, res.EmailsSent)
	}
}

func TestStorageRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     StorageRequest
		wantErr bool
	}{
		{"valid storage", *storageReq(), false},
		{"valid upgrade", StorageRequest{RequestID: "r", RequestType: TypePlanUpgrade, UserID: "u", PlanName: "Pro", Amount: 199}, false},
		{"missing request id", StorageRequest{RequestType: TypeAdditionalStorage, UserID: "u"}, true},
		{"missing user", StorageRequest{RequestID: "r", RequestType: TypeAdditionalStorage}, true},
		{"unknown type", StorageRequest{RequestID: "r", RequestType: "downgrade", UserID: "u"}, true},
	}
	for _, tc := range cases {
		err := tc.req.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err=%v, wantErr=%v", tc.name, err, tc.wantErr)
		}
	}
}
