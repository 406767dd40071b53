// Package repl provides the step console: a hook that pauses evaluation
// at block boundaries and lets the user inspect the running script.
package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/sorrel/pkg/sorrel/ast"
	serrors "github.com/sambeau/sorrel/pkg/sorrel/errors"
	"github.com/sambeau/sorrel/pkg/sorrel/evaluator"
)

const PROMPT = "step> "

// Console commands for tab completion
var completionWords = []string{
	":step", ":continue", ":break", ":clear", ":vars", ":stack",
	":methods", ":help", ":quit",
}

// Prompter reads one line of input. *liner.State satisfies it.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

// Console pauses before blocks and reads commands until told to resume.
type Console struct {
	in       Prompter
	out      io.Writer
	stepping bool
	breaks   map[int]bool
	stopped  bool
}

// New returns a console that pauses before the first block.
func New(in Prompter, out io.Writer) *Console {
	return &Console{in: in, out: out, stepping: true, breaks: make(map[int]bool)}
}

// Start opens a terminal console with line editing and history. Call the
// returned function when evaluation ends.
func Start(out io.Writer) (*Console, func()) {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(filterCompletions)

	historyFile := filepath.Join(os.TempDir(), ".sorrel_step_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	c := New(&historyPrompter{line}, out)
	return c, func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
		line.Close()
	}
}

// historyPrompter records every non-empty command.
type historyPrompter struct {
	line *liner.State
}

func (h *historyPrompter) Prompt(p string) (string, error) {
	s, err := h.line.Prompt(p)
	if err == nil && strings.TrimSpace(s) != "" {
		h.line.AppendHistory(s)
	}
	return s, err
}

// Break pauses at every block that starts on line.
func (c *Console) Break(line int) { c.breaks[line] = true }

func (c *Console) shouldPause(node ast.Node) bool {
	if c.stopped {
		return false
	}
	return c.stepping || c.breaks[node.Position().Line]
}

func (c *Console) BeforeExecute(node ast.Node, ctx *evaluator.Context) {
	if !c.shouldPause(node) {
		return
	}
	c.printLocation(node, ctx)

	for {
		input, err := c.in.Prompt(PROMPT)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(c.out, "^C")
				continue
			}
			// EOF or a broken terminal ends the session
			c.stop(ctx)
			return
		}
		if c.handleCommand(strings.TrimSpace(input), ctx) {
			return
		}
	}
}

func (c *Console) AfterExecute(node ast.Node, ctx *evaluator.Context) {}

func (c *Console) stop(ctx *evaluator.Context) {
	c.stopped = true
	ctx.Interrupt(serrors.New("RUN-0010", map[string]any{"Reason": "stopped from the step console"}))
}

// handleCommand runs one command and reports whether evaluation resumes.
func (c *Console) handleCommand(cmd string, ctx *evaluator.Context) bool {
	fields := strings.Fields(cmd)
	name := ""
	if len(fields) > 0 {
		name = fields[0]
	}

	switch name {
	case "", ":step", ":s":
		c.stepping = true
		return true

	case ":continue", ":c":
		c.stepping = false
		return true

	case ":quit", ":q":
		fmt.Fprintln(c.out, "Stopping evaluation")
		c.stop(ctx)
		return true

	case ":break", ":b", ":clear":
		if len(fields) != 2 {
			fmt.Fprintf(c.out, "usage: %s LINE\n", name)
			return false
		}
		line, err := strconv.Atoi(fields[1])
		if err != nil || line < 1 {
			fmt.Fprintf(c.out, "invalid line: %s\n", fields[1])
			return false
		}
		if name == ":clear" {
			delete(c.breaks, line)
			fmt.Fprintf(c.out, "Breakpoint at line %d cleared\n", line)
		} else {
			c.breaks[line] = true
			fmt.Fprintf(c.out, "Breakpoint at line %d\n", line)
		}
		return false

	case ":vars", ":v":
		printVariables(ctx, c.out)
		return false

	case ":stack":
		printStack(ctx, c.out)
		return false

	case ":methods", ":m":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "usage: :methods KIND (e.g. :methods string)")
			return false
		}
		printMethods(fields[1], c.out)
		return false

	case ":help", ":h", ":?":
		printHelp(c.out)
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type :help for commands)\n", cmd)
		return false
	}
}

func (c *Console) printLocation(node ast.Node, ctx *evaluator.Context) {
	pos := node.Position()
	if pos.Script == "" {
		pos.Script = ctx.Script
	}
	where := "top level"
	if top, ok := ctx.CallStack.Top(); ok {
		where = top.Name
	}
	fmt.Fprintf(c.out, "paused at %s in %s (depth %d)\n", pos, where, ctx.CallStack.Depth())
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Step console commands:")
	fmt.Fprintln(out, "  :step, :s, Enter    Run to the next block")
	fmt.Fprintln(out, "  :continue, :c       Run to the next breakpoint")
	fmt.Fprintln(out, "  :break LINE         Pause at blocks starting on LINE")
	fmt.Fprintln(out, "  :clear LINE         Remove a breakpoint")
	fmt.Fprintln(out, "  :vars, :v           Show variables in scope")
	fmt.Fprintln(out, "  :stack              Show in-flight calls")
	fmt.Fprintln(out, "  :methods KIND       List methods of a value kind")
	fmt.Fprintln(out, "  :quit, :q           Stop the evaluation")
}

// printVariables displays the visible bindings, sorted by name
func printVariables(ctx *evaluator.Context, out io.Writer) {
	names := ctx.Memory.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no variables)")
		return
	}
	sort.Strings(names)

	for _, name := range names {
		obj, _ := ctx.Memory.Get(name)
		value := obj.Inspect()

		// For multi-line values, indent continuation lines by 2 spaces
		if strings.Contains(value, "\n") {
			value = strings.ReplaceAll(value, "\n", "\n  ")
		} else if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", name, serrors.TypeName(string(obj.Type())), value)
	}
}

func printStack(ctx *evaluator.Context, out io.Writer) {
	frames := ctx.CallStack.Frames()
	if len(frames) == 0 {
		fmt.Fprintln(out, "(top level)")
		return
	}
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		site := "?"
		if f.Node != nil {
			site = f.Node.Position().String()
		}
		fmt.Fprintf(out, "  #%d %s called at %s\n", len(frames)-1-i, f.Name, site)
	}
}

func printMethods(kind string, out io.Writer) {
	key := strings.ToUpper(strings.ReplaceAll(kind, "-", "_"))
	if key == "DAYOFWEEK" {
		key = evaluator.DAY_OF_WEEK_OBJ
	}
	infos := evaluator.MethodsForType(evaluator.ObjectType(key))
	if len(infos) == 0 {
		fmt.Fprintf(out, "no methods for %s\n", kind)
		return
	}
	for _, m := range infos {
		fmt.Fprintf(out, "  %-14s %-9s %s\n", m.Name, m.Arity, m.Description)
	}
}

// filterCompletions returns command suggestions for the word being typed
func filterCompletions(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t") {
		return nil
	}
	var matches []string
	for _, word := range completionWords {
		if strings.HasPrefix(word, trimmed) {
			matches = append(matches, word)
		}
	}
	return matches
}
