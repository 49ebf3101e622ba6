package domain

// Tier identifies which store owns a document. A document logically lives in
// exactly one tier at a time; the only sanctioned crossing is promotion.
type Tier string

const (
	// TierLT is the authoritative, durable long-term store.
	TierLT Tier = "lt"
	// TierHot is the ephemeral store for unverified facts.
	TierHot Tier = "hot"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool { return t == TierLT || t == TierHot }

func (t Tier) String() string { return string(t) }
