package trace

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

func at(line, col int) ast.Base {
	return ast.Base{Pos: ast.Position{Script: "double.sorrel", Line: line, Column: col}}
}

// doubleProgram defines double(n) and calls it twice.
func doubleProgram() *ast.Block {
	body := &ast.Block{Base: at(1, 20), Statements: []ast.Node{
		&ast.Return{Value: &ast.Binary{Left: &ast.Identifier{Name: "n"}, Operator: "*", Right: &ast.IntegerLiteral{Value: 2}}},
	}}
	fd := ast.NewFunctionDefinition(ast.Position{Script: "double.sorrel", Line: 1, Column: 1}, "double", []string{"n"}, body)
	call := func(line int, v int64) ast.Node {
		return &ast.ExpressionStatement{Base: at(line, 1), Expression: &ast.Call{
			Callee: &ast.Identifier{Name: "double"},
			Args:   []ast.Node{&ast.IntegerLiteral{Value: v}},
		}}
	}
	return &ast.Block{Base: at(1, 1), Statements: []ast.Node{fd, call(5, 1), call(6, 2)}}
}

func openStore(t *testing.T, maxRows int) *Store {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "trace", "trace.db"))
	cfg.MaxRows = maxRows
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreHook(t *testing.T) {
	s := openStore(t, 0)

	ctx := evaluator.NewContext()
	ctx.AddHook(s)
	result, err := evaluator.Evaluate(doubleProgram(), ctx)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Inspect() != "4" {
		t.Errorf("expected 4, got %s", result.Inspect())
	}

	events, err := s.Events(s.Run(), 0)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	want := []struct {
		phase    string
		line     int
		function string
		depth    int
	}{
		{PhaseBefore, 1, "", 0},
		{PhaseBefore, 1, "double", 1},
		{PhaseAfter, 1, "double", 1},
		{PhaseBefore, 1, "double", 1},
		{PhaseAfter, 1, "double", 1},
		{PhaseAfter, 1, "", 0},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		e := events[i]
		if e.Phase != w.phase || e.Line != w.line || e.Function != w.function || e.CallDepth != w.depth {
			t.Errorf("event %d: expected %+v, got %+v", i, w, e)
		}
		if e.Script != "double.sorrel" {
			t.Errorf("event %d: expected script double.sorrel, got %q", i, e.Script)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d: timestamp not parsed", i)
		}
	}
	if events[1].Column != 20 {
		t.Errorf("expected the body block column, got %d", events[1].Column)
	}
}

func TestStoreRuns(t *testing.T) {
	s := openStore(t, 0)

	first := s.Run()
	if err := s.Record(Event{Phase: PhaseBefore, Line: 1}); err != nil {
		t.Fatal(err)
	}
	second := s.StartRun()
	if second == first {
		t.Fatal("expected a new run id")
	}
	for i := 0; i < 3; i++ {
		if err := s.Record(Event{Phase: PhaseBefore, Line: i}); err != nil {
			t.Fatal(err)
		}
	}

	if n, _ := s.Count(first); n != 1 {
		t.Errorf("expected 1 event in first run, got %d", n)
	}
	if n, _ := s.Count(second); n != 3 {
		t.Errorf("expected 3 events in second run, got %d", n)
	}
	if n, _ := s.Count(""); n != 4 {
		t.Errorf("expected 4 events in total, got %d", n)
	}

	if err := s.Clear(first); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := s.Count(""); n != 3 {
		t.Errorf("expected 3 events after clearing a run, got %d", n)
	}
	if err := s.Clear(""); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := s.Count(""); n != 0 {
		t.Errorf("expected no events, got %d", n)
	}
}

func TestStoreTruncation(t *testing.T) {
	s := openStore(t, 10)

	for i := 1; i <= 25; i++ {
		if err := s.Record(Event{Phase: PhaseBefore, Line: i}); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
		if n, _ := s.Count(""); n > 10 {
			t.Fatalf("expected at most 10 rows, got %d after %d writes", n, i)
		}
	}

	events, err := s.Events("", 0)
	if err != nil {
		t.Fatal(err)
	}
	if last := events[len(events)-1]; last.Line != 25 {
		t.Errorf("expected the newest event to survive, got line %d", last.Line)
	}
	if events[0].Line == 1 {
		t.Error("expected the oldest events to be deleted")
	}
}

func TestStoreReopen(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "trace.db"))
	s, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(Event{Phase: PhaseAfter, Line: 3}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()
	if n, _ := s.Count(""); n != 1 {
		t.Errorf("expected the event to persist, got %d", n)
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"bad table", Config{Driver: "sqlite", DSN: ":memory:", Table: "trace; DROP"}, "invalid trace table name"},
		{"bad driver", Config{Driver: "oracle", DSN: "x"}, "unsupported trace driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(Config{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if err := s.Record(Event{Phase: PhaseBefore}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(""); n != 1 {
		t.Errorf("expected 1 event, got %d", n)
	}
}

func TestRebind(t *testing.T) {
	s := &Store{driver: "postgres"}
	got := s.rebind("SELECT * FROM t WHERE a = ? AND b = ?")
	if got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected rebind: %s", got)
	}
	s.driver = "mysql"
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Errorf("mysql placeholders should be unchanged, got %s", got)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	ctx := evaluator.NewContext()
	ctx.AddHook(m)
	if _, err := evaluator.Evaluate(doubleProgram(), ctx); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if m.TotalBlocks() != 3 {
		t.Errorf("expected 3 block entries, got %d", m.TotalBlocks())
	}
	if m.Functions["double"] != 2 {
		t.Errorf("expected double to run twice, got %d", m.Functions["double"])
	}
	if m.Blocks["double.sorrel:1:20"] != 2 {
		t.Errorf("unexpected block counts: %v", m.Blocks)
	}
	if m.MaxCallDepth != 1 {
		t.Errorf("expected max call depth 1, got %d", m.MaxCallDepth)
	}
	if m.MaxScopes <= 2 {
		t.Errorf("expected nested scopes, got %d", m.MaxScopes)
	}

	var buf bytes.Buffer
	if err := m.Report(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "blocks: 3") || !strings.Contains(buf.String(), "double") {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}

func TestDeadline(t *testing.T) {
	loop := &ast.Block{Statements: []ast.Node{
		&ast.While{Condition: &ast.BooleanLiteral{Value: true}, Body: &ast.Block{}},
	}}

	t.Run("cancel interrupts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ectx := evaluator.NewContext()
		stop := Deadline(ctx, ectx)
		defer stop()
		cancel()

		_, err := evaluator.Evaluate(loop, ectx)
		se, ok := serrors.As(err)
		if !ok || se.Code != "RUN-0010" {
			t.Fatalf("expected RUN-0010, got %v", err)
		}
		if !strings.Contains(se.Message, "context canceled") {
			t.Errorf("expected the cause in %q", se.Message)
		}
	})

	t.Run("stop before cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ectx := evaluator.NewContext()
		stop := Deadline(ctx, ectx)
		if !stop() {
			t.Fatal("expected stop to prevent the interrupt")
		}
		cancel()

		result, err := evaluator.Evaluate(&ast.Block{Statements: []ast.Node{&ast.IntegerLiteral{Value: 1}}}, ectx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Inspect() != "1" {
			t.Errorf("expected 1, got %s", result.Inspect())
		}
	})
}
