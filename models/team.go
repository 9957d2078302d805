package models

import "time"

type Team struct {
	ID                  int       `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Track               Track     `json:"track" db:"track"`
	LeaderParticipantID int       `json:"leader_participant_id" db:"leader_participant_id"`
	JoinCode            string    `json:"join_code" db:"join_code"`
	MemberCount         int       `json:"member_count" db:"member_count"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}
