package ast

import (
	"math"
	"strings"
)

// FunctionDefinition declares a script function. Definitions are shared by
// every invocation; the counters are the only fields mutated after
// construction and are not safe for concurrent evaluations.
type FunctionDefinition struct {
	Base
	Name    string
	Params  []string
	Doc     string
	Version string
	Body    *Block

	paramIndex     map[string]int
	executionCount uint32
	errorCount     uint32
}

// NewFunctionDefinition builds a hoisted function definition.
func NewFunctionDefinition(pos Position, name string, params []string, body *Block) *FunctionDefinition {
	if body == nil {
		body = &Block{Base: Base{Pos: pos}}
	}
	fd := &FunctionDefinition{
		Base:   Base{Pos: pos, Immediate: true},
		Name:   name,
		Params: params,
		Body:   body,
	}
	fd.indexParams()
	return fd
}

func (fd *FunctionDefinition) indexParams() {
	fd.paramIndex = make(map[string]int, len(fd.Params))
	for i, p := range fd.Params {
		if _, dup := fd.paramIndex[p]; !dup {
			fd.paramIndex[p] = i
		}
	}
}

// HasParam reports whether name is a declared parameter.
func (fd *FunctionDefinition) HasParam(name string) bool {
	if fd.paramIndex == nil {
		fd.indexParams()
	}
	_, ok := fd.paramIndex[name]
	return ok
}

// QualifiedName is the name prefixed by the declaring scope path.
func (fd *FunctionDefinition) QualifiedName() string {
	return fd.Scope.Qualify(fd.Name)
}

// ExecutionCount is the number of invocations, modulo 2^32.
func (fd *FunctionDefinition) ExecutionCount() uint32 { return fd.executionCount }

// ErrorCount is the number of invocations that ended in an error.
func (fd *FunctionDefinition) ErrorCount() uint32 { return fd.errorCount }

// RecordExecution counts one invocation, wrapping to 0 at the ceiling.
func (fd *FunctionDefinition) RecordExecution() {
	if fd.executionCount == math.MaxUint32 {
		fd.executionCount = 0
		return
	}
	fd.executionCount++
}

// RecordError counts one failed invocation.
func (fd *FunctionDefinition) RecordError() {
	if fd.errorCount == math.MaxUint32 {
		fd.errorCount = 0
		return
	}
	fd.errorCount++
}

func (fd *FunctionDefinition) String() string {
	return "function " + fd.Name + "(" + strings.Join(fd.Params, ", ") + ") " + fd.Body.String()
}
