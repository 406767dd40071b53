package repl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/peterh/liner"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

// scripted replays canned input lines, then reports EOF.
type scripted struct {
	lines   []string
	prompts int
}

func (s *scripted) Prompt(string) (string, error) {
	s.prompts++
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func pos(line int) ast.Base {
	return ast.Base{Pos: ast.Position{Script: "loop.sorrel", Line: line, Column: 1}}
}

// loopProgram sets x, then runs a three-pass loop whose body starts on line 3.
func loopProgram() *ast.Block {
	return &ast.Block{Base: pos(1), Statements: []ast.Node{
		&ast.Assignment{Base: pos(1), Target: &ast.Identifier{Name: "x"}, Operator: "=", Value: &ast.StringLiteral{Value: "hi"}, Declare: true},
		&ast.ForIn{
			Base:     pos(2),
			Variable: "i",
			Iterable: &ast.ArrayLiteral{Elements: []ast.Node{
				&ast.IntegerLiteral{Value: 1}, &ast.IntegerLiteral{Value: 2}, &ast.IntegerLiteral{Value: 3},
			}},
			Body: &ast.Block{Base: pos(3), Statements: []ast.Node{&ast.Identifier{Name: "i"}}},
		},
	}}
}

func runConsole(t *testing.T, lines ...string) (string, *scripted, error) {
	t.Helper()
	in := &scripted{lines: lines}
	var out bytes.Buffer
	ctx := evaluator.NewContext()
	ctx.AddHook(New(in, &out))
	_, err := evaluator.Evaluate(loopProgram(), ctx)
	return out.String(), in, err
}

func TestConsoleStepping(t *testing.T) {
	out, in, err := runConsole(t, "", ":s", ":step", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Root block plus three loop bodies
	if in.prompts != 4 {
		t.Errorf("expected 4 pauses, got %d", in.prompts)
	}
	if strings.Count(out, "paused at loop.sorrel:3:1 in top level") != 3 {
		t.Errorf("expected three pauses in the loop body:\n%s", out)
	}
}

func TestConsoleContinueAndBreakpoints(t *testing.T) {
	out, in, err := runConsole(t, ":break 3", ":continue", ":clear 3", ":c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.prompts != 4 {
		t.Errorf("expected 4 prompts, got %d", in.prompts)
	}
	if !strings.Contains(out, "Breakpoint at line 3") || !strings.Contains(out, "Breakpoint at line 3 cleared") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConsoleQuit(t *testing.T) {
	for _, input := range []string{":quit", ""} {
		lines := []string{input}
		if input == "" {
			lines = nil // EOF
		}
		_, _, err := runConsole(t, lines...)
		se, ok := serrors.As(err)
		if !ok || se.Code != "RUN-0010" {
			t.Fatalf("input %q: expected RUN-0010, got %v", input, err)
		}
		if !strings.Contains(se.Message, "step console") {
			t.Errorf("unexpected message %q", se.Message)
		}
	}
}

func TestConsoleInspection(t *testing.T) {
	out, _, err := runConsole(t,
		":s",       // root block
		":vars",    // in the first loop body
		":stack",
		":methods string",
		":methods widget",
		":break x",
		":bogus",
		"^C",
		":help",
		":c",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := []string{
		"  i: number = 1",
		"  x: string = hi",
		"(top level)",
		"toUpper",
		"no methods for widget",
		"invalid line: x",
		"Unknown command: :bogus",
		"^C",
		"Step console commands:",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFilterCompletions(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{":c", []string{":continue", ":clear"}},
		{":st", []string{":step", ":stack"}},
		{"", nil},
		{":break 3", nil},
	}
	for _, tt := range tests {
		got := filterCompletions(tt.input)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("filterCompletions(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
