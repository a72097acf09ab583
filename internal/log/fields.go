package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldMemberID   = "member_id"
	FieldDepositID  = "deposit_id"
	FieldLoanID     = "loan_id"
	FieldPaymentID  = "payment_id"
	FieldWeek       = "week_number"
	FieldYear       = "savings_year"
	FieldAmount     = "amount"
	FieldRevision   = "revision"
	FieldFilename   = "filename"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentWorkbook = "workbook"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpExport   = "export"
	OpImport   = "import"
	OpBackup   = "backup"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
