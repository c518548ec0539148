package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ResourceRecord is one entry in the community resource catalog. Source
// directories vary widely in which descriptive fields they provide, so
// anything outside the fixed core schema lives in Attributes as named
// string attributes.
type ResourceRecord struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Organization     string         `gorm:"not null;column:organization" json:"organization"`
	ProgramType      string         `gorm:"column:program_type" json:"program_type"`
	Contact          string         `gorm:"column:contact" json:"contact"`
	Services         string         `gorm:"column:services" json:"services"`
	TargetPopulation string         `gorm:"column:target_population" json:"target_population"`
	Category         Category       `gorm:"not null;default:housing;column:category" json:"category"`
	Attributes       datatypes.JSON `gorm:"column:attributes" json:"attributes,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (ResourceRecord) TableName() string {
	return "resource_record"
}
