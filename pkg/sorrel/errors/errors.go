// Package errors provides structured error types for the Sorrel language.
//
// This package defines SorrelError, a unified error type raised by AST
// construction, AST document decoding and evaluation. Errors carry a class,
// a catalog code, the raising node's position and optional hints.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassSyntax    ErrorClass = "syntax"    // AST shape violates an evaluator invariant
	ClassRuntime   ErrorClass = "runtime"   // Well-formed but invalid dynamic condition
	ClassType      ErrorClass = "type"      // Type mismatches
	ClassUndefined ErrorClass = "undefined" // Unknown method, property, unit or module member
	ClassArity     ErrorClass = "arity"     // Wrong argument count
	ClassIndex     ErrorClass = "index"     // Out of bounds
	ClassOperator  ErrorClass = "operator"  // Invalid operations
	ClassFormat    ErrorClass = "format"    // Invalid format/parse
	ClassLimit     ErrorClass = "limit"     // Configured resource bound exceeded
	ClassFatal     ErrorClass = "fatal"     // Unrecoverable (stack overflow)
)

// SorrelError represents any error raised while building or evaluating a script.
type SorrelError struct {
	Class   ErrorClass     `json:"class"`            // Error category
	Code    string         `json:"code"`             // Error code (e.g., "TYPE-0001")
	Message string         `json:"message"`          // Human-readable message
	Hints   []string       `json:"hints,omitempty"`  // Suggestions and call chain
	Line    int            `json:"line"`             // 1-based line (0 if unknown)
	Column  int            `json:"column"`           // 1-based column (0 if unknown)
	Script  string         `json:"script,omitempty"` // Script name (if known)
	Data    map[string]any `json:"data,omitempty"`   // Template variables
}

// Error implements the error interface.
func (e *SorrelError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *SorrelError) String() string {
	var sb strings.Builder

	if e.Script != "" {
		sb.WriteString(e.Script)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *SorrelError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassSyntax:
		sb.WriteString("Syntax error")
	case ClassLimit:
		sb.WriteString("Limit exceeded")
	case ClassFatal:
		sb.WriteString("Fatal error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.Script != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.Script)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *SorrelError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithScript returns a copy of the error with the script name set.
func (e *SorrelError) WithScript(script string) *SorrelError {
	copy := *e
	copy.Script = script
	return &copy
}

// WithPosition returns a copy of the error with script, line and column set.
func (e *SorrelError) WithPosition(script string, line, column int) *SorrelError {
	copy := *e
	copy.Script = script
	copy.Line = line
	copy.Column = column
	return &copy
}

// HasPosition reports whether a raising node already stamped its position.
func (e *SorrelError) HasPosition() bool {
	return e.Line > 0 || e.Script != ""
}

// WithHint returns a copy of the error with an extra hint appended.
func (e *SorrelError) WithHint(hint string) *SorrelError {
	copy := *e
	copy.Hints = append(append([]string(nil), e.Hints...), hint)
	return &copy
}

// IsSyntaxError returns true for evaluator-level contract violations.
func (e *SorrelError) IsSyntaxError() bool {
	return e.Class == ClassSyntax
}

// IsRuntimeError returns true for well-formed-but-invalid dynamic conditions.
func (e *SorrelError) IsRuntimeError() bool {
	switch e.Class {
	case ClassRuntime, ClassType, ClassUndefined, ClassArity, ClassIndex, ClassOperator, ClassFormat:
		return true
	}
	return false
}

// IsLimitExceeded returns true when a configured resource bound was hit.
func (e *SorrelError) IsLimitExceeded() bool {
	return e.Class == ClassLimit
}

// IsFatal returns true for errors a host must not treat as recoverable.
func (e *SorrelError) IsFatal() bool {
	return e.Class == ClassFatal
}

// As extracts a *SorrelError from err.
func As(err error) (*SorrelError, bool) {
	var se *SorrelError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsClass reports whether err is a SorrelError of the given class.
func IsClass(err error, class ErrorClass) bool {
	se, ok := As(err)
	return ok && se.Class == class
}

// IsRuntime reports whether err is a runtime-class SorrelError.
func IsRuntime(err error) bool {
	se, ok := As(err)
	return ok && se.IsRuntimeError()
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Syntax errors (SYNTAX-0xxx)
	// ========================================
	"SYNTAX-0001": {
		Class:    ClassSyntax,
		Template: "invalid operator '{{.Operator}}' for {{.Kind}} expression",
	},
	"SYNTAX-0002": {
		Class:    ClassSyntax,
		Template: "{{.Statement}} outside of a loop",
	},
	"SYNTAX-0003": {
		Class:    ClassSyntax,
		Template: "module {{.Name}} cannot be called",
		Hints:    []string{"call a member instead: {{.Name}}.member(...)"},
	},
	"SYNTAX-0004": {
		Class:    ClassSyntax,
		Template: "invalid assignment target: {{.Target}}",
	},
	"SYNTAX-0005": {
		Class:    ClassSyntax,
		Template: "malformed {{.Kind}} node: {{.Detail}}",
	},
	"SYNTAX-0006": {
		Class:    ClassSyntax,
		Template: "unknown node kind '{{.Kind}}'",
	},
	"SYNTAX-0007": {
		Class:    ClassSyntax,
		Template: "invalid AST document: {{.Detail}}",
	},

	// ========================================
	// Runtime errors (RUN-0xxx)
	// ========================================
	"RUN-0001": {
		Class:    ClassRuntime,
		Template: "function does not exist: {{.Name}}",
	},
	"RUN-0002": {
		Class:    ClassRuntime,
		Template: "variable does not exist: {{.Name}}",
	},
	"RUN-0003": {
		Class:    ClassRuntime,
		Template: "can only add/subtract time intervals",
	},
	"RUN-0004": {
		Class:    ClassRuntime,
		Template: "can only subtract dates",
		Hints:    []string{"add a time interval to a date instead"},
	},
	"RUN-0005": {
		Class:    ClassRuntime,
		Template: "null reference: cannot access '{{.Name}}' on null",
	},
	"RUN-0006": {
		Class:    ClassRuntime,
		Template: "unknown type: {{.Name}}",
	},
	"RUN-0007": {
		Class:    ClassRuntime,
		Template: "cannot construct {{.Type}} from {{.Got}}",
	},
	"RUN-0008": {
		Class:    ClassRuntime,
		Template: "property '{{.Name}}' of {{.Type}} is read-only",
	},
	"RUN-0009": {
		Class:    ClassRuntime,
		Template: "{{.Got}} is not callable",
	},
	"RUN-0010": {
		Class:    ClassRuntime,
		Template: "evaluation interrupted: {{.Reason}}",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "type mismatch: {{.LeftType}} {{.Operator}} {{.RightType}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "operator {{.Operator}} requires booleans, got {{.Got}}",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "unary {{.Operator}} not supported for {{.Type}}",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "{{.Function}} expected {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "cannot index {{.Left}} with {{.Index}}",
		Hints:    []string{"Arrays and strings are indexed with numbers, maps with strings"},
	},
	"TYPE-0007": {
		Class:    ClassType,
		Template: "cannot iterate over {{.Type}}",
		Hints:    []string{"for-in works over arrays, maps and strings"},
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "cannot combine {{.LeftGroup}} and {{.RightGroup}} quantities with {{.Operator}}",
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "unknown method '{{.Method}}' for {{.Type}}",
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "unknown property '{{.Property}}' on {{.Type}}",
	},
	"UNDEF-0003": {
		Class:    ClassUndefined,
		Template: "unknown unit '{{.Unit}}'",
	},
	"UNDEF-0004": {
		Class:    ClassUndefined,
		Template: "module {{.Module}} has no member '{{.Name}}'",
	},

	// ========================================
	// Arity errors (ARITY-0xxx)
	// ========================================
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "wrong number of arguments to `{{.Function}}`. got={{.Got}}, want={{.Want}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects {{.Min}}-{{.Max}} arguments, got {{.Got}}",
	},
	"ARITY-0003": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects at least {{.Min}} argument(s), got {{.Got}}",
	},

	// ========================================
	// Index errors (INDEX-0xxx)
	// ========================================
	"INDEX-0001": {
		Class:    ClassIndex,
		Template: "index {{.Index}} out of range (length {{.Length}})",
	},
	"INDEX-0002": {
		Class:    ClassIndex,
		Template: "index must be a whole number, got {{.Index}}",
	},

	// ========================================
	// Operator errors (OP-0xxx)
	// ========================================
	"OP-0001": {
		Class:    ClassOperator,
		Template: "cannot {{.Operator}} {{.Type}}",
	},

	// ========================================
	// Format errors (FMT-0xxx)
	// ========================================
	"FMT-0001": {
		Class:    ClassFormat,
		Template: "invalid {{.Format}}: {{.GoError}}",
	},
	"FMT-0002": {
		Class:    ClassFormat,
		Template: "invalid date: {{.GoError}}",
	},

	// ========================================
	// Limit errors (LIMIT-0xxx)
	// ========================================
	"LIMIT-0001": {
		Class:    ClassLimit,
		Template: "string length {{.Length}} exceeds the maximum of {{.Max}}",
	},

	// ========================================
	// Fatal errors (FATAL-0xxx)
	// ========================================
	"FATAL-0001": {
		Class:    ClassFatal,
		Template: "stack overflow: call depth exceeded {{.Max}}",
		Hints:    []string{"check for unbounded recursion in {{.Function}}"},
	},
}

// New creates a SorrelError from the catalog.
// If the code is not found, creates a runtime error with the message.
func New(code string, data map[string]any) *SorrelError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &SorrelError{
			Class:   ClassRuntime,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &SorrelError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a SorrelError with position information.
func NewWithPosition(code string, script string, line, column int, data map[string]any) *SorrelError {
	err := New(code, data)
	err.Script = script
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *SorrelError {
	return &SorrelError{
		Class:   class,
		Message: message,
	}
}

// NewSimpleWithHints creates a simple error with hints.
func NewSimpleWithHints(class ErrorClass, message string, hints ...string) *SorrelError {
	return &SorrelError{
		Class:   class,
		Message: message,
		Hints:   hints,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// TypeName returns a lowercase type name for error messages.
// Converts "STRING" to "string", "DAY_OF_WEEK" to "day of week", etc.
func TypeName(t string) string {
	return strings.ReplaceAll(strings.ToLower(t), "_", " ")
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// FuzzyMatch represents a fuzzy match result with its distance.
type FuzzyMatch struct {
	Value    string
	Distance int
}

// matchThreshold scales the allowed edit distance with the input length.
// Short words (1-3): max 1 edit, medium words (4-6): max 2, longer: max 3.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Don't suggest if distance is 0 (exact match) or over threshold
	if bestDistance <= 0 || bestDistance > matchThreshold(input) {
		return ""
	}

	return bestMatch
}

// FindTopMatches returns the top N closest matches to the input.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	inputLower := strings.ToLower(input)

	var matches []FuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, FuzzyMatch{Value: candidate, Distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	threshold := matchThreshold(input)
	var result []string
	for i := 0; i < len(matches) && i < n; i++ {
		if matches[i].Distance <= threshold {
			result = append(result, matches[i].Value)
		}
	}

	return result
}

func withSuggestion(err *SorrelError, name string, candidates []string) *SorrelError {
	if suggestion := FindClosestMatch(name, candidates); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}

// NewUndefinedVariable creates a "variable does not exist" error with optional fuzzy matching.
func NewUndefinedVariable(name string, available []string) *SorrelError {
	return withSuggestion(New("RUN-0002", map[string]any{"Name": name}), name, available)
}

// NewUndefinedFunction creates a "function does not exist" error with optional fuzzy matching.
func NewUndefinedFunction(name string, available []string) *SorrelError {
	return withSuggestion(New("RUN-0001", map[string]any{"Name": name}), name, available)
}

// NewUndefinedMethod creates an undefined method error with optional fuzzy matching.
func NewUndefinedMethod(method, typeName string, available []string) *SorrelError {
	err := New("UNDEF-0001", map[string]any{"Method": method, "Type": typeName})
	return withSuggestion(err, method, available)
}

// NewUndefinedProperty creates an undefined property error with optional fuzzy matching.
func NewUndefinedProperty(property, typeName string, available []string) *SorrelError {
	err := New("UNDEF-0002", map[string]any{"Property": property, "Type": typeName})
	return withSuggestion(err, property, available)
}

// SorrelKeywords lists reserved words, used for fuzzy matching against typos.
var SorrelKeywords = []string{
	"if", "else", "while", "for", "in", "function", "var", "return",
	"break", "continue", "new", "true", "false", "null",
}
