package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/thomasrohde/scoper/pkg/symtab"
)

var (
	// ErrScopeUnderflow is returned when a scope is closed with none open.
	ErrScopeUnderflow = errors.New("'end' with no open scope")
	// ErrScopeLimit is returned when opening a scope would exceed the depth limit.
	ErrScopeLimit = errors.New("scope depth limit reached")
	// ErrNoScope is returned when a variable is assigned with no open scope.
	ErrNoScope = errors.New("no open scope")
)

// Frame is the binding table of one begin...end block. The parent link is
// only followed for lookup; a frame never owns its parent.
type Frame struct {
	table  *symtab.Table
	parent *Frame
	depth  int
}

// Depth returns the frame's nesting level, 1 for the outermost frame.
func (f *Frame) Depth() int {
	return f.depth
}

// Len returns the number of names bound directly in the frame.
func (f *Frame) Len() int {
	return f.table.Len()
}

// ScopeChain is the stack of open frames, innermost at the tip.
type ScopeChain struct {
	current   *Frame
	maxDepth  int
	tableOpts []symtab.Option
}

// ChainOption configures a ScopeChain.
type ChainOption func(*ScopeChain)

// WithMaxDepth caps the number of simultaneously open frames. Zero means no cap.
func WithMaxDepth(n int) ChainOption {
	return func(c *ScopeChain) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithTableOptions sets the options used for every frame's table.
func WithTableOptions(opts ...symtab.Option) ChainOption {
	return func(c *ScopeChain) {
		c.tableOpts = append(c.tableOpts, opts...)
	}
}

// NewScopeChain creates a chain with no open frame.
func NewScopeChain(opts ...ChainOption) *ScopeChain {
	c := &ScopeChain{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open pushes a new empty frame whose parent is the current frame.
// On failure the chain is left untouched.
func (c *ScopeChain) Open() error {
	depth := c.Depth() + 1
	if c.maxDepth > 0 && depth > c.maxDepth {
		return fmt.Errorf("%w (max %d)", ErrScopeLimit, c.maxDepth)
	}
	c.current = &Frame{
		table:  symtab.New(c.tableOpts...),
		parent: c.current,
		depth:  depth,
	}
	return nil
}

// Close releases the current frame's bindings and makes its parent current.
func (c *ScopeChain) Close() error {
	f := c.current
	if f == nil {
		return ErrScopeUnderflow
	}
	f.table.Clear()
	c.current = f.parent
	f.parent = nil
	return nil
}

// Assign binds name in the current frame only. An outer binding of the same
// name is shadowed, not modified.
func (c *ScopeChain) Assign(name string, value int) error {
	if c.current == nil {
		return ErrNoScope
	}
	c.current.table.Insert(name, value)
	return nil
}

// Lookup searches the current frame, then each enclosing frame outwards.
// It returns the value and the depth of the frame that bound it.
func (c *ScopeChain) Lookup(name string) (value, depth int, found bool) {
	for f := c.current; f != nil; f = f.parent {
		if v, ok := f.table.Find(name); ok {
			return v, f.depth, true
		}
	}
	return 0, 0, false
}

// Depth returns the number of open frames.
func (c *ScopeChain) Depth() int {
	if c.current == nil {
		return 0
	}
	return c.current.depth
}

// Empty reports whether no frame is open.
func (c *ScopeChain) Empty() bool {
	return c.current == nil
}

// Current returns the innermost frame, or nil.
func (c *ScopeChain) Current() *Frame {
	return c.current
}

// VisibleNames returns every name reachable from the current frame, sorted.
func (c *ScopeChain) VisibleNames() []string {
	seen := make(map[string]bool)
	var names []string
	for f := c.current; f != nil; f = f.parent {
		for _, k := range f.table.Keys() {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// TableStats reports bucket occupancy of the current frame's table.
func (c *ScopeChain) TableStats() (symtab.Stats, bool) {
	if c.current == nil {
		return symtab.Stats{}, false
	}
	return c.current.table.Stats(), true
}

// Reset closes every open frame, innermost first.
func (c *ScopeChain) Reset() {
	for c.current != nil {
		_ = c.Close()
	}
}
