package logger

// Field keys shared by every streamop log line.
const (
	FieldService     = "service"
	FieldComponent   = "component"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldOperator    = "operator"
	FieldOperatorID  = "operator_id"
	FieldMode        = "mode"
	FieldParallelism = "parallelism"
	FieldTaskSeq     = "task_seq"
	FieldSubmitted   = "submitted"
	FieldCompleted   = "completed"
	FieldFailed      = "failed"
	FieldUnfinished  = "unfinished"
	FieldTimeout     = "timeout_ms"
)

// Fields builds a field map from alternating key-value pairs. Non-string keys
// and a trailing key without a value are dropped.
//
//	log.Info("Operator stopped", logger.Fields(logger.FieldCompleted, 12))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// MergeWithError adds err under FieldError, allocating the map when nil.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}
