// ABOUTME: Maps provider status codes to the internal bot lifecycle enum
// ABOUTME: Defines the transition rules the reconciler enforces

package recorder

import "github.com/notefold/notetaker/internal/store"

// Unrecognized marks a provider code this service does not know. Callers
// skip it rather than failing, so new provider codes roll out without
// breaking reconciliation.
const Unrecognized = store.BotStatus("")

// statusByCode compresses the provider's status vocabulary into the internal
// lifecycle states. Several raw codes collapse to the same state.
var statusByCode = map[string]store.BotStatus{
	"ready":                        store.BotStatusScheduled,
	"joining_call":                 store.BotStatusJoining,
	"in_waiting_room":              store.BotStatusJoining,
	"in_call_not_recording":        store.BotStatusInCall,
	"in_call_recording":            store.BotStatusInCall,
	"recording_permission_allowed": store.BotStatusInCall,
	"call_ended":                   store.BotStatusDone,
	"done":                         store.BotStatusDone,
	"fatal":                        store.BotStatusFatal,
}

// MapStatus translates a provider status code into a lifecycle status.
// Unknown codes return Unrecognized.
func MapStatus(code string) store.BotStatus {
	status, ok := statusByCode[code]
	if !ok {
		return Unrecognized
	}
	return status
}

// happyPathRank orders the happy-path states so stale poll responses can be
// detected. Terminal failure states carry no rank.
var happyPathRank = map[store.BotStatus]int{
	store.BotStatusScheduled: 0,
	store.BotStatusJoining:   1,
	store.BotStatusInCall:    2,
	store.BotStatusDone:      3,
}

// canTransition reports whether the reconciler may move a bot from one
// status to another. Cancelled is never a valid reconciler target (only the
// cancel operation writes it), terminal states never move, and a status less
// advanced than the persisted one is treated as an out-of-order delivery.
func canTransition(from, to store.BotStatus) bool {
	if to == store.BotStatusCancelled {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == store.BotStatusFatal {
		// The provider reports fatal failures while joining or in call.
		return from == store.BotStatusJoining || from == store.BotStatusInCall
	}
	fromRank, ok := happyPathRank[from]
	if !ok {
		return false
	}
	toRank, ok := happyPathRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
