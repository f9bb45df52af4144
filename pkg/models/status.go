package models

// ItemState is the per-URL progress of one acquisition attempt sequence
type ItemState string

const (
	ItemStateUnset             ItemState = ""                   // Zero value = unset/unknown
	ItemStatePending           ItemState = "pending"            // Queued, nothing fetched yet
	ItemStateHighResAttempted  ItemState = "high_res_attempted" // Rewritten URL fetched
	ItemStateFallbackAttempted ItemState = "fallback_attempted" // Original URL fetched after high-res was rejected
	ItemStateSaved             ItemState = "saved"              // Payload validated and written
	ItemStateSkipped           ItemState = "skipped"            // Rejected by classifier or still undersized after fallback
	ItemStateFailed            ItemState = "failed"             // Transport or filesystem error
)

// String implements fmt.Stringer for logging
func (s ItemState) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsTerminal reports whether no further transition can happen from s
func (s ItemState) IsTerminal() bool {
	switch s {
	case ItemStateSaved, ItemStateSkipped, ItemStateFailed:
		return true
	}
	return false
}

// CanTransition reports whether the item state machine allows s -> next
func (s ItemState) CanTransition(next ItemState) bool {
	switch s {
	case ItemStatePending:
		return next == ItemStateHighResAttempted || next == ItemStateSkipped || next == ItemStateFailed
	case ItemStateHighResAttempted:
		return next == ItemStateSaved || next == ItemStateFallbackAttempted || next == ItemStateFailed
	case ItemStateFallbackAttempted:
		return next == ItemStateSaved || next == ItemStateSkipped || next == ItemStateFailed
	}
	return false
}

// Store identifies which catalog an app is resolved against
type Store string

const (
	StoreAppStore  Store = "appstore"
	StorePlayStore Store = "playstore"
)

// String implements fmt.Stringer for logging
func (s Store) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the store is one the tool knows how to query
func (s Store) IsValid() bool {
	switch s {
	case StoreAppStore, StorePlayStore:
		return true
	}
	return false
}
