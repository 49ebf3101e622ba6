package document

// Status is the HOT-side lifecycle flag.
// Legal transitions: unverified -> pending_promotion -> promoted,
// or unverified -> evicted. promoted and evicted are terminal.
type Status string

const (
	// StatusUnverified is the initial state of a materialized HOT fact.
	StatusUnverified Status = "unverified"
	// StatusPending marks a document eligible for promotion into LT.
	StatusPending Status = "pending_promotion"
	// StatusPromoted marks a document that has been written into LT.
	StatusPromoted Status = "promoted"
	// StatusEvicted marks a document removed by TTL eviction.
	StatusEvicted Status = "evicted"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool { return s == StatusPromoted || s == StatusEvicted }

// CanTransition reports whether s -> to is a legal lifecycle transition.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusUnverified:
		return to == StatusPending || to == StatusEvicted
	case StatusPending:
		return to == StatusPromoted
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
