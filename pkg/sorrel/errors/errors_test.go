package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSorrelError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *SorrelError
		expected string
	}{
		{
			name:     "message only",
			err:      &SorrelError{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name:     "with line and column",
			err:      &SorrelError{Message: "type mismatch", Line: 5, Column: 10},
			expected: "line 5, column 10: type mismatch",
		},
		{
			name: "with script",
			err: &SorrelError{
				Message: "variable does not exist: x",
				Script:  "billing",
				Line:    3,
				Column:  1,
			},
			expected: "billing: line 3, column 1: variable does not exist: x",
		},
		{
			name: "with hints",
			err: &SorrelError{
				Message: "function does not exist: lgo",
				Line:    1,
				Column:  1,
				Hints:   []string{"Did you mean `log`?"},
			},
			expected: "line 1, column 1: function does not exist: lgo\n  Did you mean `log`?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSorrelError_PrettyString(t *testing.T) {
	tests := []struct {
		name     string
		err      *SorrelError
		contains []string
	}{
		{
			name:     "syntax error",
			err:      &SorrelError{Class: ClassSyntax, Message: "invalid operator"},
			contains: []string{"Syntax error", "invalid operator"},
		},
		{
			name:     "limit error with position",
			err:      &SorrelError{Class: ClassLimit, Message: "too long", Line: 2, Column: 4},
			contains: []string{"Limit exceeded", "line 2, column 4", "too long"},
		},
		{
			name:     "runtime error with script",
			err:      &SorrelError{Class: ClassType, Message: "bad", Script: "rules", Line: 1, Column: 1},
			contains: []string{"Runtime error", "in: rules", "at: line 1, column 1"},
		},
		{
			name:     "fatal",
			err:      &SorrelError{Class: ClassFatal, Message: "stack overflow"},
			contains: []string{"Fatal error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.PrettyString()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("PrettyString() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestSorrelError_ToJSON(t *testing.T) {
	err := New("TYPE-0001", map[string]any{"LeftType": "date", "Operator": "*", "RightType": "date"})
	err = err.WithPosition("rules", 4, 2)

	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON() error: %v", jerr)
	}

	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["class"] != "type" {
		t.Errorf("class = %v, want type", decoded["class"])
	}
	if decoded["code"] != "TYPE-0001" {
		t.Errorf("code = %v, want TYPE-0001", decoded["code"])
	}
	if decoded["line"] != float64(4) {
		t.Errorf("line = %v, want 4", decoded["line"])
	}
}

func TestNew_WithCatalog(t *testing.T) {
	tests := []struct {
		code    string
		data    map[string]any
		class   ErrorClass
		message string
	}{
		{"RUN-0001", map[string]any{"Name": "foo"}, ClassRuntime, "function does not exist: foo"},
		{"RUN-0002", map[string]any{"Name": "nosuchvar"}, ClassRuntime, "variable does not exist: nosuchvar"},
		{"RUN-0003", nil, ClassRuntime, "can only add/subtract time intervals"},
		{"LIMIT-0001", map[string]any{"Length": 12, "Max": 10}, ClassLimit, "string length 12 exceeds the maximum of 10"},
		{"SYNTAX-0001", map[string]any{"Operator": "+", "Kind": "logical"}, ClassSyntax, "invalid operator '+' for logical expression"},
		{"FATAL-0001", map[string]any{"Max": 5, "Function": "f"}, ClassFatal, "stack overflow: call depth exceeded 5"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, tt.data)
			if err.Class != tt.class {
				t.Errorf("Class = %q, want %q", err.Class, tt.class)
			}
			if err.Message != tt.message {
				t.Errorf("Message = %q, want %q", err.Message, tt.message)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNew_UnknownCode(t *testing.T) {
	err := New("HOST-9999", map[string]any{"message": "host failure"})
	if err.Class != ClassRuntime {
		t.Errorf("Class = %q, want runtime", err.Class)
	}
	if err.Message != "host failure" {
		t.Errorf("Message = %q, want host failure", err.Message)
	}
}

func TestNewWithPosition(t *testing.T) {
	err := NewWithPosition("RUN-0002", "rules", 7, 3, map[string]any{"Name": "x"})
	if !err.HasPosition() {
		t.Fatal("HasPosition() = false")
	}
	if err.Line != 7 || err.Column != 3 || err.Script != "rules" {
		t.Errorf("position = %s:%d:%d", err.Script, err.Line, err.Column)
	}
}

func TestWithHint_DoesNotMutateOriginal(t *testing.T) {
	orig := NewSimpleWithHints(ClassRuntime, "boom", "first")
	next := orig.WithHint("second")
	if len(orig.Hints) != 1 {
		t.Errorf("original hints changed: %v", orig.Hints)
	}
	if len(next.Hints) != 2 || next.Hints[1] != "second" {
		t.Errorf("WithHint hints = %v", next.Hints)
	}
}

func TestClassPredicates(t *testing.T) {
	runtime := []ErrorClass{ClassRuntime, ClassType, ClassUndefined, ClassArity, ClassIndex, ClassOperator, ClassFormat}
	for _, c := range runtime {
		if !NewSimple(c, "x").IsRuntimeError() {
			t.Errorf("%s: IsRuntimeError() = false", c)
		}
	}
	for _, c := range []ErrorClass{ClassSyntax, ClassLimit, ClassFatal} {
		if NewSimple(c, "x").IsRuntimeError() {
			t.Errorf("%s: IsRuntimeError() = true", c)
		}
	}
	if !NewSimple(ClassLimit, "x").IsLimitExceeded() {
		t.Error("IsLimitExceeded() = false")
	}
	if !NewSimple(ClassFatal, "x").IsFatal() {
		t.Error("IsFatal() = false")
	}
}

func TestIsClass_Wrapped(t *testing.T) {
	base := New("RUN-0002", map[string]any{"Name": "x"})
	wrapped := fmt.Errorf("evaluating rules: %w", base)

	if !IsClass(wrapped, ClassRuntime) {
		t.Error("IsClass(wrapped, runtime) = false")
	}
	if IsClass(wrapped, ClassSyntax) {
		t.Error("IsClass(wrapped, syntax) = true")
	}
	if !IsRuntime(wrapped) {
		t.Error("IsRuntime(wrapped) = false")
	}
	if IsClass(fmt.Errorf("plain"), ClassRuntime) {
		t.Error("IsClass(plain) = true")
	}
}

func TestFindClosestMatch(t *testing.T) {
	tests := []struct {
		input      string
		candidates []string
		expected   string
	}{
		{"lod", []string{"log", "logLine", "len"}, "log"},
		{"totl", []string{"total", "tax"}, "total"},
		{"xyz", []string{"total", "tax"}, ""},
		{"log", []string{"log"}, ""},
		{"", []string{"log"}, ""},
		{"LOG", []string{"lg"}, "lg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FindClosestMatch(tt.input, tt.candidates); got != tt.expected {
				t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindTopMatches(t *testing.T) {
	got := FindTopMatches("toUper", []string{"toUpper", "toLower", "trim", "toTitle"}, 2)
	if len(got) == 0 || got[0] != "toUpper" {
		t.Errorf("FindTopMatches() = %v, want toUpper first", got)
	}
}

func TestNewUndefinedVariable(t *testing.T) {
	err := NewUndefinedVariable("totl", []string{"total", "count"})
	if err.Code != "RUN-0002" {
		t.Errorf("Code = %q", err.Code)
	}
	if len(err.Hints) != 1 || !strings.Contains(err.Hints[0], "total") {
		t.Errorf("Hints = %v", err.Hints)
	}
}

func TestNewUndefinedMethod(t *testing.T) {
	err := NewUndefinedMethod("toUper", "string", []string{"toUpper", "toLower"})
	if err.Class != ClassUndefined {
		t.Errorf("Class = %q", err.Class)
	}
	if !strings.Contains(err.Message, "toUper") || !strings.Contains(err.Message, "string") {
		t.Errorf("Message = %q", err.Message)
	}
	if len(err.Hints) == 0 {
		t.Error("expected a suggestion hint")
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName("DAY_OF_WEEK"); got != "day of week" {
		t.Errorf("TypeName() = %q", got)
	}
}
