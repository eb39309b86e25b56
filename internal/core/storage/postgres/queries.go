package postgres

// SQL statements of the telemetry sink. Both tables are append-only.

const (
	queryInsertEvent = `
		INSERT INTO jfr_events (
			id, event_type, occurred_at, attributes, received_at
		)
		VALUES ($1, $2, $3, $4, $5)
	`

	// queryInsertSummary stores one closed window of one grouping key.
	// sum is NUMERIC because a window sum can exceed BIGINT.
	queryInsertSummary = `
		INSERT INTO jfr_summaries (
			id, partition_id, name, group_key, count, sum, min, max,
			window_start, window_end, attributes, received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	queryTablesExist = `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('jfr_events', 'jfr_summaries')
	`
)
