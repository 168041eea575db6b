package compiler

func (c *Compiler) beginScope() { c.cur.scope++ }

func (c *Compiler) endScope() {
	c.cur.scope--
	f := c.cur
	for len(f.locals) > 0 && f.locals[len(f.locals)-1].depth > f.scope {
		last := f.locals[len(f.locals)-1]
		if last.isCaptured {
			c.emitOp(CLOSE_UPVALUE)
		} else {
			c.emitOp(POP)
		}
		f.locals = f.locals[:len(f.locals)-1]
	}
}

// declareVariable registers name as a new local in the current scope (a
// no-op at global scope, where variables live in the globals table instead).
// It reports a compile error on redeclaration within the same scope.
func (c *Compiler) declareVariable(name string) {
	f := c.cur
	if f.scope == 0 {
		return
	}
	for i := len(f.locals) - 1; i >= 0; i-- {
		l := f.locals[i]
		if l.depth != -1 && l.depth < f.scope {
			break
		}
		if l.name == name {
			c.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if len(c.cur.locals) >= maxLocals {
		c.errorAtPrevious("Too many local variables in function.")
		return
	}
	c.cur.locals = append(c.cur.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	f := c.cur
	if f.scope == 0 {
		return
	}
	f.locals[len(f.locals)-1].depth = f.scope
}

// resolveLocal returns the slot index of name in f's own locals, or -1 if
// not found there.
func resolveLocal(f *frame, name string) int {
	for i := len(f.locals) - 1; i >= 0; i-- {
		if f.locals[i].name == name {
			if f.locals[i].depth == -1 {
				return -1 // placeholder before its initializer ran; treat as unresolved
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue looks for name in any enclosing frame, adding (and
// coalescing) upvalue descriptors along the chain back to f. It returns the
// upvalue index in f, or -1 if name is not found in any enclosing frame
// (meaning it must be a global).
func resolveUpvalue(f *frame, name string) int {
	if f.enclosing == nil {
		return -1
	}
	if slot := resolveLocal(f.enclosing, name); slot >= 0 {
		f.enclosing.locals[slot].isCaptured = true
		return addUpvalue(f, uint8(slot), true)
	}
	if up := resolveUpvalue(f.enclosing, name); up >= 0 {
		return addUpvalue(f, uint8(up), false)
	}
	return -1
}

func addUpvalue(f *frame, index uint8, isLocal bool) int {
	for i, u := range f.fn.Upvalues {
		if u.Index == index && u.IsLocal == isLocal {
			return i
		}
	}
	if len(f.fn.Upvalues) >= maxUpvalues {
		return 0
	}
	f.fn.Upvalues = append(f.fn.Upvalues, UpvalueDesc{Index: index, IsLocal: isLocal})
	return len(f.fn.Upvalues) - 1
}
