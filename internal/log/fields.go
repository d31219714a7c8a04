package log

import (
	"sort"
	"time"
)

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldDuration    = "duration_ms"
	FieldHousehold   = "household_id"
	FieldTemplate    = "template_id"
	FieldExpense     = "expense_id"
	FieldMember      = "member"
	FieldAmountCents = "amount_cents"
	FieldThrough     = "through"
	FieldTemplates   = "templates"
	FieldInserted    = "inserted"
	FieldFailed      = "failed"
	FieldEventType   = "event_type"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentCLI          = "cli"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentMaterializer = "materializer"
	ComponentSheets       = "sheets"
	ComponentMetrics      = "metrics"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpMaterialize = "materialize"
	OpExport      = "export"
	OpStartup     = "startup"
	OpShutdown    = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithDuration adds the elapsed time in milliseconds
func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// WithRun adds the counters of one materializer run
func (f LogFields) WithRun(templates, inserted, failed int) LogFields {
	f[FieldTemplates] = templates
	f[FieldInserted] = inserted
	f[FieldFailed] = failed
	return f
}

// Args flattens the fields into slog key/value pairs, ordered by key.
func (f LogFields) Args() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(f)*2)
	for _, k := range keys {
		args = append(args, k, f[k])
	}
	return args
}
