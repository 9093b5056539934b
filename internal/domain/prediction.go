package domain

import "time"

// Points awarded by reconciliation
const (
	ScoreCorrect   = 2  // Predicted the declared winner
	ScoreIncorrect = -1 // Predicted the other participant
	ScorePending   = 0  // Match not decided yet
)

// Prediction Model, one row per (user, match)
type Prediction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                                 // Primary key, also arrival order
	UserID    uint      `gorm:"uniqueIndex:idx_prediction_user_match;not null" json:"user_id"`        // Owner
	MatchID   uint      `gorm:"uniqueIndex:idx_prediction_user_match;index;not null" json:"match_id"` // Predicted match
	TeamID    uint      `gorm:"not null" json:"team_id"`                                              // Predicted winner
	Score     int       `gorm:"not null;default:0" json:"score"`                                      // Written by reconciliation only
	CreatedAt time.Time `json:"created_at"`                                                           // Creation time
	UpdatedAt time.Time `json:"updated_at"`                                                           // Last update time
}

// ScoreFor returns the score a prediction earns against the declared winner
func ScoreFor(predicted, winner uint) int {
	if predicted == winner {
		return ScoreCorrect
	}
	return ScoreIncorrect
}

// UserTotal is one row of the "sum score grouped by user" aggregate
type UserTotal struct {
	UserID       uint `json:"user_id"`     // User
	TotalScore   int  `json:"total_score"` // Sum of prediction scores
	FirstArrival uint `json:"-"`           // Earliest prediction ID, tie breaker
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`        // Competition rank, ties share a rank
	UserID     uint   `json:"user_id"`     // User
	Username   string `json:"username"`    // Display name
	TotalScore int    `json:"total_score"` // Sum of prediction scores
}
