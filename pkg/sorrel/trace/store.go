// Package trace records block execution for later inspection.
//
// A Store is an evaluator.Hook that writes one row per block entry and
// exit to a SQL table. Metrics counts the same events in memory, and
// Deadline stops an evaluation when a context.Context ends.
package trace

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	// Drivers selectable by name in the trace configuration.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

// Phases of a block event.
const (
	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// Event is one recorded block entry or exit.
type Event struct {
	ID        int64
	Run       string
	Phase     string
	Script    string
	Line      int
	Column    int
	Function  string // innermost in-flight function, empty at top level
	CallDepth int
	Timestamp time.Time
}

// Config selects the database and bounds the table size.
type Config struct {
	Driver      string // sqlite, postgres or mysql
	DSN         string
	Table       string
	MaxRows     int // 0 keeps every row
	TruncatePct int // share of rows deleted when MaxRows is reached (default 25)
}

// DefaultConfig returns a sqlite configuration for the given file.
func DefaultConfig(path string) Config {
	return Config{
		Driver:      "sqlite",
		DSN:         path,
		Table:       "_sorrel_trace",
		MaxRows:     100000,
		TruncatePct: 25,
	}
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store writes block events to a SQL table.
type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	driver      string
	table       string
	maxRows     int
	truncatePct int
	rows        int
	run         string
	seq         uint64
}

// Open connects to the configured database and creates the trace table.
func Open(cfg Config) (*Store, error) {
	if cfg.Table == "" {
		cfg.Table = "_sorrel_trace"
	}
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid trace table name %q", cfg.Table)
	}

	dsn := cfg.DSN
	switch cfg.Driver {
	case "sqlite":
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("creating trace directory: %w", err)
			}
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported trace driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to trace database: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// One connection keeps :memory: databases alive across calls
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	s := &Store{
		db:          db,
		driver:      cfg.Driver,
		table:       cfg.Table,
		maxRows:     cfg.MaxRows,
		truncatePct: cfg.TruncatePct,
		run:         newRunID(),
	}
	if s.truncatePct <= 0 || s.truncatePct > 100 {
		s.truncatePct = 25
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace schema: %w", err)
	}
	if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM " + s.table)).Scan(&s.rows); err != nil {
		db.Close()
		return nil, fmt.Errorf("counting trace rows: %w", err)
	}
	return s, nil
}

func newRunID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

func (s *Store) createSchema() error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.driver {
	case "postgres":
		id = "BIGSERIAL PRIMARY KEY"
	case "mysql":
		id = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	}
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id %[2]s,
			run VARCHAR(64) NOT NULL,
			phase VARCHAR(16) NOT NULL,
			script VARCHAR(255) NOT NULL DEFAULT '',
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			function_name VARCHAR(255) NOT NULL DEFAULT '',
			call_depth INTEGER NOT NULL,
			recorded_at VARCHAR(40) NOT NULL
		)`, s.table, id)
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_run ON %[1]s(run)", s.table)
	if s.driver == "mysql" {
		// MySQL has no IF NOT EXISTS for indexes
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM information_schema.statistics
			WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`,
			s.table, "idx_"+s.table+"_run").Scan(&n)
		if err != nil || n > 0 {
			return err
		}
		index = fmt.Sprintf("CREATE INDEX idx_%[1]s_run ON %[1]s(run)", s.table)
	}
	_, err := s.db.Exec(index)
	return err
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Run is the identifier stamped on events recorded by this store.
func (s *Store) Run() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// StartRun begins a new run so its events can be queried separately.
func (s *Store) StartRun() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = newRunID() + "-" + strconv.FormatUint(s.seq, 10)
	return s.run
}

// Record writes one event. An empty Run or zero Timestamp is filled in.
func (s *Store) Record(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.maybeTruncate(); err != nil {
		return err
	}
	if e.Run == "" {
		e.Run = s.run
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	_, err := s.db.Exec(s.rebind(`INSERT INTO `+s.table+`
		(run, phase, script, line, col, function_name, call_depth, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		e.Run, e.Phase, e.Script, e.Line, e.Column, e.Function, e.CallDepth,
		e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err == nil {
		s.rows++
		s.seq++
	}
	return err
}

// maybeTruncate deletes the oldest rows once the table reaches maxRows.
// Must be called with the lock held.
func (s *Store) maybeTruncate() error {
	if s.maxRows <= 0 || s.rows < s.maxRows {
		return nil
	}
	deleteCount := (s.rows * s.truncatePct) / 100
	if deleteCount == 0 {
		deleteCount = 1
	}

	// MySQL cannot LIMIT a subquery on the table being deleted from
	query := `DELETE FROM ` + s.table + ` WHERE id IN (
		SELECT id FROM (SELECT id FROM ` + s.table + ` ORDER BY id ASC LIMIT ?) oldest)`
	if _, err := s.db.Exec(s.rebind(query), deleteCount); err != nil {
		return fmt.Errorf("truncating trace: %w", err)
	}
	return s.db.QueryRow("SELECT COUNT(*) FROM " + s.table).Scan(&s.rows)
}

// Events returns recorded events in order, optionally for one run.
func (s *Store) Events(run string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT id, run, phase, script, line, col, function_name, call_depth, recorded_at
		FROM ` + s.table
	args := []any{}
	if run != "" {
		query += " WHERE run = ?"
		args = append(args, run)
	}
	query += " ORDER BY id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying trace: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.ID, &e.Run, &e.Phase, &e.Script, &e.Line, &e.Column, &e.Function, &e.CallDepth, &ts); err != nil {
			return nil, fmt.Errorf("scanning trace event: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of events, optionally for one run.
func (s *Store) Count(run string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	var err error
	if run == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM " + s.table).Scan(&count)
	} else {
		err = s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM "+s.table+" WHERE run = ?"), run).Scan(&count)
	}
	return count, err
}

// Clear removes events, optionally for one run.
func (s *Store) Clear(run string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if run == "" {
		_, err = s.db.Exec("DELETE FROM " + s.table)
	} else {
		_, err = s.db.Exec(s.rebind("DELETE FROM "+s.table+" WHERE run = ?"), run)
	}
	if err != nil {
		return err
	}
	return s.db.QueryRow("SELECT COUNT(*) FROM " + s.table).Scan(&s.rows)
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// BeforeExecute records a block entry.
func (s *Store) BeforeExecute(node ast.Node, ctx *evaluator.Context) {
	s.hookRecord(PhaseBefore, node, ctx)
}

// AfterExecute records a block exit.
func (s *Store) AfterExecute(node ast.Node, ctx *evaluator.Context) {
	s.hookRecord(PhaseAfter, node, ctx)
}

// hookRecord never fails the evaluation; write errors go to diagnostics.
func (s *Store) hookRecord(phase string, node ast.Node, ctx *evaluator.Context) {
	if err := s.Record(eventFor(phase, node, ctx)); err != nil {
		ctx.Diagnostics.Warn("trace write failed", "error", err)
	}
}

func eventFor(phase string, node ast.Node, ctx *evaluator.Context) Event {
	pos := node.Position()
	e := Event{
		Phase:     phase,
		Script:    pos.Script,
		Line:      pos.Line,
		Column:    pos.Column,
		CallDepth: ctx.CallStack.Depth(),
	}
	if e.Script == "" {
		e.Script = ctx.Script
	}
	if top, ok := ctx.CallStack.Top(); ok {
		e.Function = top.Name
	}
	return e
}
