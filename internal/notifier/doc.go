// Package notifier is the async outbound pipeline for alert texts: a
// bounded queue drained by a small worker pool behind a shared rate
// limiter.
//
// Delivery is single attempt. The sent-alert ledger reserves each
// occurrence before it reaches this queue, so a failed send is logged
// and dropped rather than retried: no-duplicates wins over
// at-least-once.
package notifier
