package types

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	StatusPending     ReferralStatus = "pending"
	StatusContacted   ReferralStatus = "contacted"
	StatusInProgress  ReferralStatus = "in_progress"
	StatusCompleted   ReferralStatus = "completed"
	StatusDeclined    ReferralStatus = "declined"
	StatusNotEligible ReferralStatus = "not_eligible"
)

func ParseReferralStatus(s string) (ReferralStatus, bool) {
	switch ReferralStatus(s) {
	case StatusPending, StatusContacted, StatusInProgress,
		StatusCompleted, StatusDeclined, StatusNotEligible:
		return ReferralStatus(s), true
	}
	return "", false
}

// statusTransitions is the single source of truth for the referral state
// machine. A status missing from the map is terminal.
var statusTransitions = map[ReferralStatus][]ReferralStatus{
	StatusPending:    {StatusContacted, StatusDeclined, StatusNotEligible},
	StatusContacted:  {StatusInProgress, StatusDeclined, StatusNotEligible},
	StatusInProgress: {StatusCompleted, StatusDeclined, StatusNotEligible},
}

func (s ReferralStatus) IsTerminal() bool {
	_, ok := statusTransitions[s]
	return !ok
}

func (s ReferralStatus) CanTransitionTo(next ReferralStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ReferralProvenance string

const (
	ProvenanceBrowse ReferralProvenance = "browse"
	ProvenanceMatch  ReferralProvenance = "match"
)

func ParseReferralProvenance(s string) (ReferralProvenance, bool) {
	switch ReferralProvenance(s) {
	case ProvenanceBrowse, ProvenanceMatch:
		return ReferralProvenance(s), true
	}
	return "", false
}

// ReferralEntry binds one client to one catalog resource with a tracked
// outcome. The (client_id, resource_id) pair is the identity; the unique
// index backs the compare-and-create commit path.
type ReferralEntry struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_referral_client_resource;column:client_id" json:"client_id"`
	ResourceID  uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_referral_client_resource;column:resource_id" json:"resource_id"`
	Status      ReferralStatus     `gorm:"not null;default:pending;column:status" json:"status"`
	Provenance  ReferralProvenance `gorm:"not null;column:provenance" json:"provenance"`
	Notes       string             `gorm:"column:notes" json:"notes"`
	AIReasoning *string            `gorm:"column:ai_reasoning" json:"ai_reasoning,omitempty"`
	AddedDate   time.Time          `gorm:"not null;column:added_date" json:"added_date"`
	LastUpdated time.Time          `gorm:"not null;column:last_updated" json:"last_updated"`
}

func (ReferralEntry) TableName() string {
	return "referral_entry"
}
