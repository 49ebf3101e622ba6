// Package promotion defines the audit record appended for every tier
// transition: score- or human-triggered promotions and TTL evictions.
package promotion

import "github.com/kailas-cloud/recalld/internal/domain"

// Trigger identifies what caused a tier transition.
type Trigger string

const (
	// TriggerScore marks a promotion gated by the confidence threshold.
	TriggerScore Trigger = "score"
	// TriggerHuman marks a promotion approved through human verification.
	TriggerHuman Trigger = "human"
	// TriggerTTL marks a TTL eviction from HOT.
	TriggerTTL Trigger = "ttl"
)

// Event is the persisted audit record. One is appended for every
// commit_promotion and every eviction before the HOT copy is removed.
type Event struct {
	ID          string      `json:"id"`
	DocID       string      `json:"doc_id"`
	DocVersion  int64       `json:"doc_version"`
	FromTier    domain.Tier `json:"from_tier"`
	ToTier      domain.Tier `json:"to_tier,omitempty"` // empty for evictions
	TimestampMS int64       `json:"timestamp_ms"`
	Trigger     Trigger     `json:"trigger"`
}
