package evaluator

// Frame is one level of variable bindings. Names keep declaration order.
type Frame struct {
	names  []string
	values map[string]Object
}

func newFrame() *Frame {
	return &Frame{values: make(map[string]Object)}
}

// Get retrieves a binding from this frame only.
func (f *Frame) Get(name string) (Object, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Set binds name in this frame.
func (f *Frame) Set(name string, val Object) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = val
}

// Names returns the bound names in declaration order.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Memory is the scope stack of one evaluation. Frame 0 is the global frame
// and is never popped.
type Memory struct {
	frames []*Frame
}

// NewMemory creates a scope stack holding only the global frame.
func NewMemory() *Memory {
	return &Memory{frames: []*Frame{newFrame()}}
}

// Push enters a new innermost frame. The returned release pops exactly
// that frame and is safe to call more than once; use it with defer.
func (m *Memory) Push() (release func()) {
	m.frames = append(m.frames, newFrame())
	depth := len(m.frames)
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Frames above ours belong to guards that did not run; drop them too.
		if len(m.frames) >= depth {
			m.frames = m.frames[:depth-1]
		}
	}
}

// Depth is the number of frames including the global frame.
func (m *Memory) Depth() int { return len(m.frames) }

// Innermost returns the current frame.
func (m *Memory) Innermost() *Frame { return m.frames[len(m.frames)-1] }

// Global returns the outermost frame.
func (m *Memory) Global() *Frame { return m.frames[0] }

// Get looks name up from the innermost frame outwards.
func (m *Memory) Get(name string) (Object, bool) {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if v, ok := m.frames[i].values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether any frame binds name.
func (m *Memory) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Declare binds name in the innermost frame, shadowing outer bindings.
func (m *Memory) Declare(name string, val Object) {
	m.Innermost().Set(name, val)
}

// Assign updates the nearest frame binding name. When no frame binds it,
// the value is declared in the innermost frame if allowUndeclared is set;
// otherwise Assign reports false and changes nothing.
func (m *Memory) Assign(name string, val Object, allowUndeclared bool) bool {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if _, ok := m.frames[i].values[name]; ok {
			m.frames[i].values[name] = val
			return true
		}
	}
	if !allowUndeclared {
		return false
	}
	m.Declare(name, val)
	return true
}

// Names returns every visible name, innermost first, without duplicates.
// Used for fuzzy matching and the debugger's variable listing.
func (m *Memory) Names() []string {
	seen := make(map[string]bool)
	var result []string
	for i := len(m.frames) - 1; i >= 0; i-- {
		for _, name := range m.frames[i].names {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result
}
