// Package store persists build history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dkoosis/quarantine/pkg/history"
	"github.com/dkoosis/quarantine/pkg/testrun"

	_ "modernc.org/sqlite"
)

// currentSchemaVersion is the target schema version for this build.
const currentSchemaVersion = schemaVersionV1

// SQLStore implements history.Store with SQLite.
//
// Builds are read fresh on every call, so the records of a returned build are
// a snapshot: toggle quarantine through Quarantine and Release, which apply a
// compare-and-set on the stored row.
type SQLStore struct {
	db  *sql.DB
	log *slog.Logger

	// Now stamps quarantine toggles; nil means time.Now.
	Now func() time.Time
}

var _ history.Store = (*SQLStore)(nil)

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .quarantine) if it does not exist.
func Open(path string, log *slog.Logger) (*SQLStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps nested reads off the lock.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLStore{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Debug("opened history", slog.String("path", path))
	return s, nil
}

// Close releases the database.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SQLStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Head implements history.History.
func (s *SQLStore) Head(ctx context.Context) (*history.Build, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(number) FROM builds").Scan(&n); err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	if !n.Valid {
		return nil, nil
	}
	return s.Get(ctx, int(n.Int64))
}

// Get implements history.History.
func (s *SQLStore) Get(ctx context.Context, n int) (*history.Build, error) {
	var started, verdict string
	err := s.db.QueryRowContext(ctx,
		"SELECT started_at, verdict FROM builds WHERE number = ?", n,
	).Scan(&started, &verdict)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %d: %w", n, history.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read build %d: %w", n, err)
	}
	at, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("build %d: started_at: %w", n, err)
	}
	v, err := history.ParseVerdict(verdict)
	if err != nil {
		return nil, fmt.Errorf("build %d: %w", n, err)
	}

	run, err := s.loadRun(ctx, n)
	if err != nil {
		return nil, err
	}
	records, err := s.loadRecords(ctx, n)
	if err != nil {
		return nil, err
	}

	b := history.NewBuild(n, at, run)
	b.Verdict = v
	b.Lock()
	for _, c := range run.Cases() {
		rec, ok := records[c.FullName]
		if !ok {
			rec = history.NewRecord(n, c.FullName)
		}
		b.Attach(c.FullName, rec)
	}
	b.Unlock()
	return b, nil
}

func (s *SQLStore) loadRun(ctx context.Context, n int) (*testrun.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT suite, name, full_name, outcome, duration_ns, output
		 FROM cases WHERE build = ? ORDER BY seq`, n)
	if err != nil {
		return nil, fmt.Errorf("read cases of build %d: %w", n, err)
	}
	defer rows.Close()

	var suites []testrun.Suite
	for rows.Next() {
		var (
			c       testrun.Case
			outcome string
			nanos   int64
			output  sql.NullString
		)
		if err := rows.Scan(&c.Suite, &c.Name, &c.FullName, &outcome, &nanos, &output); err != nil {
			return nil, fmt.Errorf("scan case of build %d: %w", n, err)
		}
		if c.Outcome, err = testrun.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("build %d: %s: %w", n, c.FullName, err)
		}
		c.Duration = time.Duration(nanos)
		if output.Valid {
			c.Output = strings.Split(output.String, "\n")
		}
		if len(suites) == 0 || suites[len(suites)-1].Name != c.Suite {
			suites = append(suites, testrun.Suite{Name: c.Suite})
		}
		last := &suites[len(suites)-1]
		last.Cases = append(last.Cases, c)
		last.Duration += c.Duration
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cases of build %d: %w", n, err)
	}
	return testrun.New(suites), nil
}

func (s *SQLStore) loadRecords(ctx context.Context, n int) (map[string]*history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_name, quarantined, quarantined_by, reason, changed_at
		 FROM records WHERE build = ?`, n)
	if err != nil {
		return nil, fmt.Errorf("read records of build %d: %w", n, err)
	}
	defer rows.Close()

	out := make(map[string]*history.Record)
	for rows.Next() {
		st := history.RecordState{Build: n}
		var (
			by, why sql.NullString
			changed sql.NullString
			flag    int
		)
		if err := rows.Scan(&st.FullName, &flag, &by, &why, &changed); err != nil {
			return nil, fmt.Errorf("scan record of build %d: %w", n, err)
		}
		st.Quarantined = flag != 0
		st.QuarantinedBy = nullStr(by)
		st.Reason = nullStr(why)
		if changed.Valid {
			if st.Changed, err = parseTime(changed.String); err != nil {
				return nil, fmt.Errorf("record %s in build %d: %w", st.FullName, n, err)
			}
		}
		out[st.FullName] = history.RestoreRecord(st)
	}
	return out, rows.Err()
}

// Before implements history.History. Each step reads one build.
func (s *SQLStore) Before(ctx context.Context, n int) iter.Seq2[*history.Build, error] {
	return s.walk(ctx, n, "SELECT MAX(number) FROM builds WHERE number < ?")
}

// After implements history.History.
func (s *SQLStore) After(ctx context.Context, n int) iter.Seq2[*history.Build, error] {
	return s.walk(ctx, n, "SELECT MIN(number) FROM builds WHERE number > ?")
}

func (s *SQLStore) walk(ctx context.Context, n int, next string) iter.Seq2[*history.Build, error] {
	return func(yield func(*history.Build, error) bool) {
		cursor := n
		for {
			var num sql.NullInt64
			if err := s.db.QueryRowContext(ctx, next, cursor).Scan(&num); err != nil {
				yield(nil, fmt.Errorf("step from build %d: %w", cursor, err))
				return
			}
			if !num.Valid {
				return
			}
			cursor = int(num.Int64)
			b, err := s.Get(ctx, cursor)
			if !yield(b, err) {
				return
			}
		}
	}
}

// Append implements history.Appender.
func (s *SQLStore) Append(ctx context.Context, b *history.Build) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var head sql.NullInt64
	if err = tx.QueryRowContext(ctx, "SELECT MAX(number) FROM builds").Scan(&head); err != nil {
		return fmt.Errorf("read head: %w", err)
	}
	if head.Valid && int64(b.Number) <= head.Int64 {
		return fmt.Errorf("append build %d: head is already %d", b.Number, head.Int64)
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO builds(number, started_at, verdict) VALUES(?, ?, ?)",
		b.Number, formatTime(b.Started), b.Verdict.String(),
	); err != nil {
		return fmt.Errorf("insert build %d: %w", b.Number, err)
	}

	for i, c := range b.Run.Cases() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO cases(build, seq, suite, name, full_name, outcome, duration_ns, output)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			b.Number, i, c.Suite, c.Name, c.FullName, c.Outcome.String(), int64(c.Duration), joinOutput(c.Output),
		); err != nil {
			return fmt.Errorf("insert case %s: %w", c.FullName, err)
		}
	}

	for _, r := range b.RecordsLocked() {
		st := r.State()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO records(build, full_name, quarantined, quarantined_by, reason, changed_at)
			 VALUES(?, ?, ?, ?, ?, ?)`,
			b.Number, st.FullName, boolInt(st.Quarantined), nullable(st.QuarantinedBy), nullable(st.Reason),
			nullableTime(st.Changed),
		); err != nil {
			return fmt.Errorf("insert record %s: %w", st.FullName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit build %d: %w", b.Number, err)
	}
	return nil
}

// Quarantine implements history.Annotator.
func (s *SQLStore) Quarantine(ctx context.Context, build int, fullName, user, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET quarantined = 1, quarantined_by = ?, reason = ?, changed_at = ?
		 WHERE build = ? AND full_name = ? AND quarantined = 0`,
		nullable(user), nullable(reason), formatTime(s.now()), build, fullName)
	if err != nil {
		return false, fmt.Errorf("quarantine %s in build %d: %w", fullName, build, err)
	}
	return s.changed(ctx, res, build, fullName)
}

// Release implements history.Annotator.
func (s *SQLStore) Release(ctx context.Context, build int, fullName string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET quarantined = 0, quarantined_by = NULL, reason = NULL, changed_at = ?
		 WHERE build = ? AND full_name = ? AND quarantined = 1`,
		formatTime(s.now()), build, fullName)
	if err != nil {
		return false, fmt.Errorf("release %s in build %d: %w", fullName, build, err)
	}
	return s.changed(ctx, res, build, fullName)
}

// changed turns a compare-and-set result into (changed, error), telling a
// lost comparison apart from a missing record.
func (s *SQLStore) changed(ctx context.Context, res sql.Result, build int, fullName string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var one int
	err = s.db.QueryRowContext(ctx,
		"SELECT 1 FROM records WHERE build = ? AND full_name = ?", build, fullName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("test %q in build %d: %w", fullName, build, history.ErrNotFound)
	}
	return false, err
}
