package machine

// callFrame is one activation record on the VM's frame stack: the closure
// being executed, the instruction pointer within its bytecode, and the base
// index into the VM's operand stack where its slots begin. slotsBase[0] is
// the callee value (the receiver, for methods); slotsBase[1:arity+1] are the
// arguments.
type callFrame struct {
	closure   *Closure
	ip        int
	slotsBase int
}
