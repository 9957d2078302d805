package models

type PaymentsSummary struct {
	Total          int   `json:"total"`
	Pending        int   `json:"pending"`
	Verified       int   `json:"verified"`
	Rejected       int   `json:"rejected"`
	VerifiedAmount int64 `json:"verified_amount"`
}

type DashboardStats struct {
	TotalParticipants      int             `json:"total_participants"`
	PaymentsSummary        PaymentsSummary `json:"payments_summary"`
	TrackDistribution      map[string]int  `json:"track_distribution"`
	UniversityDistribution map[string]int  `json:"university_distribution"`
}
