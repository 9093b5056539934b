package domain

import "time"

// Team Model
type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`                      // Primary key
	Name        string    `gorm:"size:128;not null" json:"name"`             // Display name
	Slug        string    `gorm:"uniqueIndex;size:128;not null" json:"slug"` // Normalized name, uniqueness key
	ImageURL    string    `gorm:"size:512;not null" json:"image_url"`        // Logo reference
	Description *string   `gorm:"type:text" json:"description,omitempty"`    // Optional details
	CreatedAt   time.Time `json:"created_at"`                                // Creation time
	UpdatedAt   time.Time `json:"updated_at"`                                // Last update time
}
