package types

import (
	"time"

	"github.com/google/uuid"
)

// Client is the minimal directory contract: the referral core reads these
// records by id and never mutates them past creation.
type Client struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"not null;column:first_name" json:"first_name"`
	LastName    string    `gorm:"not null;column:last_name" json:"last_name"`
	DateOfBirth string    `gorm:"column:date_of_birth" json:"date_of_birth"`
	Contact     string    `gorm:"column:contact" json:"contact"`
	Notes       string    `gorm:"column:notes" json:"notes"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string {
	return "client"
}

func (c *Client) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
