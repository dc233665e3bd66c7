// Package alert defines the Alerting Sink contract (spec §2, §4.1, §4.4): a
// side-channel for operational failures, independent of the ack/nack
// decision it accompanies.
package alert

import "context"

// Failure describes one operational failure worth surfacing to an
// operator.
type Failure struct {
	ContentID string // best-known contentId, or "unknown" if the event failed to parse
	Stage     string // "decode", "provision", "notify", "reconcile"
	Err       error
}

// Sink emits operational failures to an external channel (Slack, pager,
// etc). Implementations must not block the caller on a slow downstream for
// longer than their own configured timeout.
type Sink interface {
	Record(ctx context.Context, failure Failure) error
}
