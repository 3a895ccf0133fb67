package db

// Log is one persisted log record.
type Log struct {
	Level    int64
	Message  string
	JsonData string
	// Created uses TimeFormat.
	Created string
}

// Rows is a fully read query result. Values hold int64, float64, string,
// []byte or nil.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Len returns the number of rows.
func (r *Rows) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Values)
}
