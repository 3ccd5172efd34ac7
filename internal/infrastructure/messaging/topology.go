package messaging

// Broker objects are durable so the at-least-once guarantee survives broker
// restarts. The work queue binds the whole audit namespace; future subscribers
// can bind narrower patterns (e.g. "audit.invoice.*") to the same exchange.
const (
	AuditExchange      = "audit_events"
	DeadLetterExchange = "audit_events.dlx"

	AuditQueue      = "audit_logs"
	DeadLetterQueue = "audit_logs.dead"

	AuditBindingPattern = "audit.#"
)
