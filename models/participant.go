package models

import "time"

type Track string

const (
	TrackWeb           Track = "web"
	TrackMobile        Track = "mobile"
	TrackAIML          Track = "ai_ml"
	TrackCybersecurity Track = "cybersecurity"
	TrackCloudDevOps   Track = "cloud_devops"
	TrackDataScience   Track = "data_science"
	TrackUIUX          Track = "ui_ux"
)

var Tracks = []Track{
	TrackWeb,
	TrackMobile,
	TrackAIML,
	TrackCybersecurity,
	TrackCloudDevOps,
	TrackDataScience,
	TrackUIUX,
}

func (t Track) Valid() bool {
	for _, known := range Tracks {
		if t == known {
			return true
		}
	}
	return false
}

type Participant struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	Track      Track     `json:"track"`
	TeamID     *int      `json:"team_id"`
	IsTeamLead bool      `json:"is_team_lead"`
	CreatedAt  time.Time `json:"created_at"`

	User    *User    `json:"user,omitempty"`
	Team    *Team    `json:"team,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}
