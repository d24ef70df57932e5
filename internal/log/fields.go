package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldExpenseID   = "expense_id"
	FieldCategory    = "category"
	FieldAmountCents = "amount_cents"
	FieldCount       = "count"

	FieldExportID    = "export_id"
	FieldTemplate    = "template"
	FieldDestination = "destination"
	FieldScheduleID  = "schedule_id"
	FieldNamespace   = "namespace"
	FieldBackend     = "backend"
)

// Standard component names.
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentStorage     = "storage"
	ComponentRepository  = "repository"
	ComponentSession     = "session"
	ComponentCloudExport = "cloud_export"
	ComponentWorker      = "worker"
	ComponentAMQP        = "amqp"
	ComponentCache       = "cache"
	ComponentConfig      = "config"
)
