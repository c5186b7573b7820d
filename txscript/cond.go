package txscript

// condState is a single conditional-stack marker (spec.md §9's redesign:
// "a single list of {taken, not-taken, skipped} markers"). The invariant
// that makes executing a plain top-of-stack check is: once a branch
// pushes condSkip, every marker nested inside it is also condSkip — a
// false or skipped ancestor makes every descendant skipped regardless of
// its own popped condition.
type condState int

const (
	condFalse condState = iota
	condTrue
	condSkip
)

// condStack tracks nested IF/NOTIF/ELSE/ENDIF state.
type condStack struct {
	marks []condState
}

func (c *condStack) depth() int {
	return len(c.marks)
}

// executing reports whether operations at the current nesting level
// should actually run: true when the stack is empty (top level) or the
// innermost marker is condTrue.
func (c *condStack) executing() bool {
	if len(c.marks) == 0 {
		return true
	}
	return c.marks[len(c.marks)-1] == condTrue
}

// pushIf records entry into a new IF/NOTIF branch. If the enclosing branch
// isn't executing, the new marker is unconditionally condSkip and value is
// ignored (mirroring consensus: a not-taken IF's condition is never popped
// from the data stack — see opIf in opcode_exec.go).
func (c *condStack) pushIf(value bool) {
	if !c.executing() {
		c.marks = append(c.marks, condSkip)
		return
	}
	if value {
		c.marks = append(c.marks, condTrue)
	} else {
		c.marks = append(c.marks, condFalse)
	}
}

// toggleElse flips the innermost (top) marker between true and false; if
// that marker is skipped it is left untouched and ELSE is a no-op there.
func (c *condStack) toggleElse() error {
	if len(c.marks) == 0 {
		return scriptError(ErrUnbalancedConditional, "OP_ELSE without matching OP_IF")
	}
	top := len(c.marks) - 1
	switch c.marks[top] {
	case condTrue:
		c.marks[top] = condFalse
	case condFalse:
		c.marks[top] = condTrue
	case condSkip:
		// stays skipped
	}
	return nil
}

func (c *condStack) popEndif() error {
	if len(c.marks) == 0 {
		return scriptError(ErrUnbalancedConditional, "OP_ENDIF without matching OP_IF")
	}
	c.marks = c.marks[:len(c.marks)-1]
	return nil
}
