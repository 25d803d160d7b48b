package postgres

// SQL for the event ledger and workflow runs. Projection SQL is generated per
// table in projection_sql.go from the storage catalog.

const eventColumns = `
	id, stream_id, stream_type, stream_version, event_type,
	event_data, event_metadata, created_at, processed_at, seq`

const (
	// queryAppendEvent inserts an event at the next stream_version.
	// $4 = 0 lets the database assign max+1; any other value must equal max+1.
	// A version gap yields no rows through HAVING, a duplicate id or a lost
	// version race yields no rows through ON CONFLICT DO NOTHING.
	queryAppendEvent = `
		INSERT INTO events (
			id, stream_id, stream_type, stream_version, event_type,
			event_data, event_metadata, created_at
		)
		SELECT $1::text, $2::text, $3::text,
			CASE WHEN $4::bigint = 0 THEN COALESCE(MAX(e.stream_version), 0) + 1 ELSE $4::bigint END,
			$5::text, $6::jsonb, $7::jsonb, $8::timestamptz
		FROM events e
		WHERE e.stream_id = $2::text
		HAVING $4::bigint = 0 OR $4::bigint = COALESCE(MAX(e.stream_version), 0) + 1
		ON CONFLICT DO NOTHING
		RETURNING seq, stream_version
	`

	queryEventExists = `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`

	queryGetEvent = `SELECT` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	// queryListStream uses LIMIT NULL for "no limit".
	queryListStream = `SELECT` + eventColumns + `
		FROM events
		WHERE stream_id = $1 AND stream_version > $2
		ORDER BY stream_version ASC
		LIMIT $3
	`

	queryListUnprocessed = `SELECT` + eventColumns + `
		FROM events
		WHERE processed_at IS NULL AND seq > $1
		ORDER BY seq ASC
		LIMIT $2
	`

	// queryLockStream serializes writers of one stream for the rest of the transaction.
	queryLockStream = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	queryGetStreamEvent = `SELECT` + eventColumns + `
		FROM events
		WHERE id = $1 AND stream_id = $2
	`

	queryPendingStreamEvents = `SELECT` + eventColumns + `
		FROM events
		WHERE stream_id = $1 AND stream_version <= $2 AND processed_at IS NULL
		ORDER BY stream_version ASC
	`

	queryMarkProcessed = `
		UPDATE events
		SET processed_at = $2
		WHERE id = $1 AND processed_at IS NULL
	`
)

const runColumns = `
	id, step, status, params, state, attempt, next_attempt_at,
	cancel_requested, failed_step, last_error, version, created_at, updated_at`

const (
	queryCreateRun = `
		INSERT INTO workflow_runs (
			id, step, status, params, state, attempt, next_attempt_at,
			cancel_requested, failed_step, last_error, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`

	queryGetRun = `SELECT` + runColumns + `
		FROM workflow_runs
		WHERE id = $1
	`

	queryRunExists = `SELECT EXISTS (SELECT 1 FROM workflow_runs WHERE id = $1)`

	// querySaveRun is an optimistic write. A cancel request stored since the run
	// was loaded survives the save and keeps the run due.
	querySaveRun = `
		UPDATE workflow_runs SET
			step = $2,
			status = $3,
			state = $4,
			attempt = $5,
			next_attempt_at = CASE
				WHEN cancel_requested AND NOT $7 THEN LEAST(next_attempt_at, $6)
				ELSE $6
			END,
			cancel_requested = cancel_requested OR $7,
			failed_step = $8,
			last_error = $9,
			updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $11
		RETURNING version, cancel_requested, next_attempt_at
	`

	queryClaimRuns = `
		UPDATE workflow_runs r
		SET next_attempt_at = $2, version = r.version + 1
		FROM (
			SELECT id FROM workflow_runs
			WHERE status IN ('running', 'compensating') AND next_attempt_at <= $1
			ORDER BY next_attempt_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		) due
		WHERE r.id = due.id
		RETURNING r.id, r.step, r.status, r.params, r.state, r.attempt, r.next_attempt_at,
			r.cancel_requested, r.failed_step, r.last_error, r.version, r.created_at, r.updated_at
	`

	// queryRequestCancel leaves version alone so an in-flight save still lands.
	queryRequestCancel = `
		UPDATE workflow_runs
		SET cancel_requested = TRUE, next_attempt_at = $2
		WHERE id = $1 AND status IN ('running', 'compensating')
	`

	queryPurgeRuns = `
		DELETE FROM workflow_runs
		WHERE status IN ('completed', 'failed') AND updated_at < $1
	`
)
