package services

import (
	"context"
	"errors"
	"testing"

	"github.com/devcon26/registration-api/live"
	"github.com/devcon26/registration-api/models"
)

func newPaymentFixture() (PaymentService, *fakePaymentRepo, *recordingPublisher, *recordingHook) {
	repo := newFakePaymentRepo()
	events := &recordingPublisher{}
	hook := &recordingHook{}
	return NewPaymentService(repo, hook, events, nil, discardLogger()), repo, events, hook
}

func TestVerifyCashPayment_MarksVerifiedByAmbassador(t *testing.T) {
	svc, repo, events, hook := newPaymentFixture()
	pending := repo.add(models.Payment{ParticipantID: 3, Amount: 500, Method: models.PaymentMethodCash, Status: models.PaymentStatusPending})

	payment, err := svc.VerifyCashPayment(context.Background(), 3, 42)
	if err != nil {
		t.Fatalf("VerifyCashPayment() error = %v", err)
	}
	if payment.ID != pending.ID || payment.Status != models.PaymentStatusVerified {
		t.Errorf("unexpected payment: %+v", payment)
	}
	if payment.VerifiedBy == nil || *payment.VerifiedBy != 42 {
		t.Errorf("VerifiedBy = %v, want 42", payment.VerifiedBy)
	}
	if len(hook.approved) != 1 || hook.approved[0] != pending.ID {
		t.Errorf("hook calls = %v", hook.approved)
	}
	if got := events.types(); len(got) != 1 || got[0] != live.EventPaymentVerified {
		t.Errorf("events = %v", got)
	}
}

func TestVerifyCashPayment_NoPaymentIsNotFound(t *testing.T) {
	svc, _, _, hook := newPaymentFixture()

	_, err := svc.VerifyCashPayment(context.Background(), 99, 42)
	if !errors.Is(err, ErrPendingPaymentAbsent) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if len(hook.approved) != 0 {
		t.Error("hook fired without a payment")
	}
}

func TestVerifyCashPayment_TwiceConflicts(t *testing.T) {
	svc, repo, _, hook := newPaymentFixture()
	repo.add(models.Payment{ParticipantID: 3, Amount: 500, Method: models.PaymentMethodCash, Status: models.PaymentStatusPending})

	if _, err := svc.VerifyCashPayment(context.Background(), 3, 42); err != nil {
		t.Fatalf("first verification: %v", err)
	}
	_, err := svc.VerifyCashPayment(context.Background(), 3, 43)
	if !errors.Is(err, ErrPaymentNotPending) || !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	stored, _ := repo.FindByParticipantID(context.Background(), nil, 3)
	if *stored.VerifiedBy != 42 {
		t.Errorf("VerifiedBy changed to %d", *stored.VerifiedBy)
	}
	if len(hook.approved) != 1 {
		t.Errorf("hook calls = %d, want 1", len(hook.approved))
	}
}

func TestVerifyOnlinePayment(t *testing.T) {
	tests := []struct {
		name      string
		approve   bool
		want      models.PaymentStatus
		wantEvent string
		wantHook  int
	}{
		{name: "approve", approve: true, want: models.PaymentStatusVerified, wantEvent: live.EventPaymentVerified, wantHook: 1},
		{name: "reject", approve: false, want: models.PaymentStatusRejected, wantEvent: live.EventPaymentRejected, wantHook: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, events, hook := newPaymentFixture()
			p := repo.add(models.Payment{ParticipantID: 1, Amount: 500, Method: models.PaymentMethodOnline, Status: models.PaymentStatusPending})

			got, err := svc.VerifyOnlinePayment(context.Background(), p.ID, tt.approve, 1)
			if err != nil {
				t.Fatalf("VerifyOnlinePayment() error = %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Method != models.PaymentMethodOnline {
				t.Errorf("method changed to %s", got.Method)
			}
			if len(hook.approved) != tt.wantHook {
				t.Errorf("hook calls = %d, want %d", len(hook.approved), tt.wantHook)
			}
			if ev := events.types(); len(ev) != 1 || ev[0] != tt.wantEvent {
				t.Errorf("events = %v", ev)
			}

			// терминальный статус больше не меняется
			if _, err := svc.VerifyOnlinePayment(context.Background(), p.ID, !tt.approve, 1); !errors.Is(err, ErrPaymentNotPending) {
				t.Errorf("second call err = %v, want ErrPaymentNotPending", err)
			}
			stored, _ := repo.FindByID(context.Background(), p.ID)
			if stored.Status != tt.want {
				t.Errorf("stored status = %s, want %s", stored.Status, tt.want)
			}
		})
	}
}

func TestVerifyOnlinePayment_NotFound(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()

	_, err := svc.VerifyOnlinePayment(context.Background(), 404, true, 1)
	if !errors.Is(err, ErrPaymentNotFound) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
}

func TestCreatePayment_ForcesPending(t *testing.T) {
	svc, repo, _, _ := newPaymentFixture()

	p := &models.Payment{ParticipantID: 1, Amount: 500, Method: models.PaymentMethodOnline, Status: models.PaymentStatusVerified}
	if err := svc.CreatePayment(context.Background(), nil, p); err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), p.ID)
	if stored.Status != models.PaymentStatusPending {
		t.Errorf("status = %s, want pending", stored.Status)
	}
}
