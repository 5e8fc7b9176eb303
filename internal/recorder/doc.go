// Package recorder manages the lifecycle of meeting-recording bots.
//
// The lifecycle runs Scheduled → Joining → InCall → Done on the happy path.
// The provider can report a fatal failure while joining or in call, and the
// cancel operation can stop a bot in any pre-Done state:
//
//	Scheduled → Joining → InCall → Done
//	            Joining | InCall → Fatal
//	Scheduled | Joining | InCall → Cancelled
//
// Done is terminal for good. Cancelled and Fatal are resettable: a new
// Schedule call deletes the record and creates a replacement bot.
//
// The Scheduler creates bots at the provider and persists them; the
// Reconciler polls remote state and advances the persisted status through a
// conditional write, so concurrent reconciliations of the same bot produce
// exactly one winner and exactly one round of side effects (media capture,
// meeting completion, job enqueue). The reconciler never writes Cancelled
// and never moves a status backward, which guards against out-of-order poll
// responses.
package recorder
