package domain

import "time"

// Match Model
type Match struct {
	ID               uint      `gorm:"primaryKey" json:"id"`               // Primary key
	TeamOneID        uint      `gorm:"not null;index" json:"team_one_id"`  // First participant
	TeamTwoID        uint      `gorm:"not null;index" json:"team_two_id"`  // Second participant
	StartsAt         time.Time `gorm:"not null;index" json:"starts_at"`    // Scheduled start, UTC
	Details          *string   `gorm:"type:text" json:"details,omitempty"` // Optional details
	DeclaredWinnerID *uint     `gorm:"index" json:"declared_winner_id"`    // Nil until decided
	CreatedAt        time.Time `json:"created_at"`                         // Creation time
	UpdatedAt        time.Time `json:"updated_at"`                         // Last update time
}

// HasParticipant reports whether teamID plays in the match
func (m *Match) HasParticipant(teamID uint) bool {
	return teamID != 0 && (teamID == m.TeamOneID || teamID == m.TeamTwoID)
}

// Decided reports whether a winner has been declared
func (m *Match) Decided() bool {
	return m.DeclaredWinnerID != nil
}

// LockTime is the instant after which predictions are refused
func (m *Match) LockTime(buffer time.Duration) time.Time {
	return m.StartsAt.Add(-buffer)
}

// CanPredict reports whether the match still accepts predictions at now.
// A decided match is closed regardless of its schedule.
func (m *Match) CanPredict(now time.Time, buffer time.Duration) bool {
	if m.Decided() {
		return false
	}
	return now.Before(m.LockTime(buffer))
}
