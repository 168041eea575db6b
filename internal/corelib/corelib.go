// Package corelib registers the language's built-in global functions: print,
// input, toString and clock.
package corelib

import (
	"bufio"
	"fmt"
	"time"

	"github.com/mna/ember/lang/machine"
)

var start = time.Now()

// Funcs returns the machine.FuncInfo table to register on a fresh VM via
// machine.VM.RegisterGlobalFunctions.
func Funcs() []machine.FuncInfo {
	return []machine.FuncInfo{
		{Name: "print", Arity: -1, Fn: print_},
		{Name: "toString", Arity: 1, Fn: toString},
		{Name: "clock", Arity: 0, Fn: clock},
		{Name: "input", Arity: 0, Fn: input},
	}
}

// print_ writes every argument's String() form to the VM's stdout,
// tab-separated, followed by a newline.
func print_(vm *machine.VM, recv machine.Value, args []machine.Value) (machine.Value, error) {
	w := vm.StdoutWriter()
	for i, a := range args {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, a.String())
	}
	fmt.Fprintln(w)
	return machine.NilValue, nil
}

// toString coerces its single argument to a string via its own String
// representation.
func toString(vm *machine.VM, recv machine.Value, args []machine.Value) (machine.Value, error) {
	return vm.InternString(args[0].String()), nil
}

// clock reports seconds elapsed since this process's corelib was
// initialized; a wall-clock stand-in for CPU time, which Go cannot read
// portably without OS-specific syscalls.
func clock(vm *machine.VM, recv machine.Value, args []machine.Value) (machine.Value, error) {
	return machine.Number(time.Since(start).Seconds()), nil
}

// input reads one line from the VM's stdin, without the trailing newline.
func input(vm *machine.VM, recv machine.Value, args []machine.Value) (machine.Value, error) {
	r := bufio.NewReader(vm.StdinReader())
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return vm.InternString(""), nil
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return vm.InternString(line), nil
}
