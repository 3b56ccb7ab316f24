package activity

import "time"

// ActivityType identifies the mutation an entry describes.
type ActivityType string

const (
	TypeRecordUpdated   ActivityType = "record_updated"
	TypeRecordsIngested ActivityType = "records_ingested"
	TypeDatasetDeleted  ActivityType = "dataset_deleted"
	TypeBulkValidated   ActivityType = "bulk_validated"
)

// Outcome is how a mutation ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRejected  Outcome = "rejected"
)

// ActivityEntry is one line of the local mutation log.
type ActivityEntry struct {
	ID           int64        `json:"id"`
	IntentID     string       `json:"intent_id"`
	ActivityType ActivityType `json:"type"`
	Source       string       `json:"source"`
	Target       string       `json:"target,omitempty"`
	Outcome      Outcome      `json:"outcome"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
