// Package audit records an append-only trail of scheduling runs to
// Postgres. It is observability only — nothing here feeds back into
// scheduler.Service.Run, which stays a pure function of (input, seed)
// per spec.md §5.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covermd/dutyplanner/internal/httpserver"
)

// Entry is one scheduling run's audit record.
type Entry struct {
	RunID            uuid.UUID
	InputDigest      string
	Seed             int64
	Year             int
	Month            int
	DoctorCount      int
	WereAnyDutiesSet bool
	WereAllDutiesSet bool
	ErrorCount       int
	DurationMS       int64
}

// Record is an Entry as read back from storage, with its timestamp.
type Record struct {
	Entry
	CreatedAt time.Time
}

// Writer is an async, buffered audit log writer. Entries are sent to an
// internal channel and flushed by a background goroutine, mirroring the
// teacher's audit.Writer — minus the tenant-schema grouping, since this
// service has a single scheduling_runs table.
type Writer struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	entries chan Entry
	wg      sync.WaitGroup
}

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
	flushBatch    = 32
)

// NewWriter creates an audit Writer. Call Start to begin processing entries.
func NewWriter(pool *pgxpool.Pool, logger *slog.Logger) *Writer {
	return &Writer{
		pool:    pool,
		logger:  logger,
		entries: make(chan Entry, bufferSize),
	}
}

// Start begins the background goroutine that flushes audit entries to the
// database. It returns immediately; Close waits for the goroutine to
// drain and flush every entry.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for all pending entries to be flushed.
func (w *Writer) Close() {
	close(w.entries)
	w.wg.Wait()
}

// Log enqueues an audit entry for async writing. It never blocks the
// caller; if the buffer is full the entry is dropped and a warning is
// logged.
func (w *Writer) Log(entry Entry) {
	select {
	case w.entries <- entry:
	default:
		w.logger.Warn("audit log buffer full, dropping entry", "run_id", entry.RunID)
	}
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, flushBatch)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= flushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case entry, ok := <-w.entries:
					if !ok {
						flush()
						return
					}
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) flush(entries []Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batchRows := &pgx.Batch{}
	for _, e := range entries {
		batchRows.Queue(
			`INSERT INTO scheduling_runs
			 (run_id, input_digest, seed, year, month, doctor_count,
			  were_any_duties_set, were_all_duties_set, error_count, duration_ms)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.RunID, e.InputDigest, e.Seed, e.Year, e.Month, e.DoctorCount,
			e.WereAnyDutiesSet, e.WereAllDutiesSet, e.ErrorCount, e.DurationMS,
		)
	}

	results := w.pool.SendBatch(ctx, batchRows)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			w.logger.Error("writing audit log entry", "error", err)
		}
	}
}

// Get fetches one scheduling run's audit record by ID.
func Get(ctx context.Context, pool *pgxpool.Pool, runID uuid.UUID) (*Record, error) {
	var rec Record
	rec.RunID = runID
	err := pool.QueryRow(ctx,
		`SELECT input_digest, seed, year, month, doctor_count,
		        were_any_duties_set, were_all_duties_set, error_count,
		        duration_ms, created_at
		 FROM scheduling_runs WHERE run_id = $1`,
		runID,
	).Scan(
		&rec.InputDigest, &rec.Seed, &rec.Year, &rec.Month, &rec.DoctorCount,
		&rec.WereAnyDutiesSet, &rec.WereAllDutiesSet, &rec.ErrorCount,
		&rec.DurationMS, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the most recent scheduling runs, newest first, keyset-paginated
// on (created_at, run_id). Pass params.Limit+1 rows worth of headroom by
// fetching one extra row so httpserver.NewCursorPage can detect HasMore.
func List(ctx context.Context, pool *pgxpool.Pool, params httpserver.CursorParams) ([]Record, error) {
	fetch := params.Limit + 1

	var rows pgx.Rows
	var err error
	if params.After == nil {
		rows, err = pool.Query(ctx,
			`SELECT run_id, input_digest, seed, year, month, doctor_count,
			        were_any_duties_set, were_all_duties_set, error_count,
			        duration_ms, created_at
			 FROM scheduling_runs
			 ORDER BY created_at DESC, run_id DESC
			 LIMIT $1`,
			fetch,
		)
	} else {
		rows, err = pool.Query(ctx,
			`SELECT run_id, input_digest, seed, year, month, doctor_count,
			        were_any_duties_set, were_all_duties_set, error_count,
			        duration_ms, created_at
			 FROM scheduling_runs
			 WHERE (created_at, run_id) < ($1, $2)
			 ORDER BY created_at DESC, run_id DESC
			 LIMIT $3`,
			params.After.CreatedAt, params.After.ID, fetch,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.RunID, &rec.InputDigest, &rec.Seed, &rec.Year, &rec.Month, &rec.DoctorCount,
			&rec.WereAnyDutiesSet, &rec.WereAllDutiesSet, &rec.ErrorCount,
			&rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Cursor extracts the keyset-pagination cursor for a Record.
func Cursor(rec Record) httpserver.Cursor {
	return httpserver.Cursor{CreatedAt: rec.CreatedAt, ID: rec.RunID}
}
