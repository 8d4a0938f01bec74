package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldOwnerID     = "owner_id"
	FieldGoalID      = "goal_id"
	FieldDepositID   = "deposit_id"
	FieldTemplateID  = "template_id"
	FieldAmountCents = "amount_cents"
	FieldFrequency   = "frequency"
	FieldOccurrence  = "occurrence"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentAuth       = "auth"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentRecurrence = "recurrence"
	ComponentLedger     = "ledger"
	ComponentExport     = "export"
	ComponentCache      = "cache"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpGenerate  = "generate"
	OpReconcile = "reconcile"
	OpExport    = "export"
	OpSweep     = "sweep"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
