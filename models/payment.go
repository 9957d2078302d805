package models

import "time"

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCash   PaymentMethod = "cash"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// Terminal: verified и rejected не имеют переходов дальше.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusVerified || s == PaymentStatusRejected
}

type Payment struct {
	ID            int           `json:"id"`
	ParticipantID int           `json:"participant_id"`
	TeamID        *int          `json:"team_id"`
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID *string       `json:"transaction_id,omitempty"`
	ReceiptPath   *string       `json:"-"`
	VerifiedBy    *int          `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time    `json:"verified_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`

	ReceiptURL *string `json:"receipt_url,omitempty"`
}
