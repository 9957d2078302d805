package models

// RegistrationRow — одна строка выгрузки регистраций.
type RegistrationRow struct {
	ParticipantID int
	FullName      string
	Email         string
	University    string
	Track         Track
	TeamName      *string
	PaymentStatus *PaymentStatus
}

// ParticipantSearchResult — то, что видит амбассадор на стойке регистрации.
type ParticipantSearchResult struct {
	ParticipantID int            `json:"participant_id"`
	UserID        int            `json:"user_id"`
	FullName      string         `json:"full_name"`
	Email         string         `json:"email"`
	University    string         `json:"university"`
	StudentID     *string        `json:"student_id,omitempty"`
	Track         Track          `json:"track"`
	TeamName      *string        `json:"team_name,omitempty"`
	PaymentID     *int           `json:"payment_id,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
}
