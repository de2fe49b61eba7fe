package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"loxy-vm/internal/chunk"
	"loxy-vm/internal/mem"
	"loxy-vm/internal/value"
)

// StackMax bounds the value stack.
const StackMax = 256

type InterpretResult int

const (
	Ok InterpretResult = iota
	CompileError
	RuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case Ok:
		return "Ok"
	case CompileError:
		return "CompileError"
	case RuntimeError:
		return "RuntimeError"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// VM owns the allocator, the string pool, the loaded modules, and the
// execution stack. It is single-threaded: the dispatch loop runs to
// completion before Interpret returns.
type VM struct {
	alloc   *mem.Allocator
	strings *value.StringPool
	modules map[*value.ObjString]*Module

	stack    [StackMax]value.Value
	stackTop int

	// execution state for the current run
	module *Module
	ip     int

	Stdout io.Writer
	Stderr io.Writer

	// TraceExecution logs each instruction at debug level.
	TraceExecution bool

	// DumpCode disassembles every chunk after a successful compile.
	DumpCode bool

	log commonlog.Logger
}

func New() *VM {
	alloc := mem.NewAllocator()
	vm := &VM{
		alloc:   alloc,
		strings: value.NewStringPool(alloc),
		modules: make(map[*value.ObjString]*Module),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		log:     commonlog.GetLogger("loxy.vm"),
	}
	alloc.Collect = vm.collectGarbage
	return vm
}

// Allocator exposes the byte-accounting funnel, mostly for tests and the
// collector.
func (vm *VM) Allocator() *mem.Allocator {
	return vm.alloc
}

// Strings exposes the interning pool.
func (vm *VM) Strings() *value.StringPool {
	return vm.strings
}

// SetGCThreshold overrides the initial collection threshold.
func (vm *VM) SetGCThreshold(bytes int) {
	if bytes > 0 {
		vm.alloc.SetNextGC(bytes)
	}
}

// Interpret compiles source in the context of the named module, creating
// and registering the module on first use, then runs the bytecode.
func (vm *VM) Interpret(source string, moduleName string) InterpretResult {
	name := vm.strings.Intern(moduleName)

	module, ok := vm.modules[name]
	if !ok {
		module = NewModule(vm, name, name, source)
		vm.modules[name] = module
	} else {
		module.SetSource(source)
	}

	if !module.Compile(vm) {
		return CompileError
	}

	if vm.DumpCode {
		module.Bytecode().Disassemble(moduleName)
	}

	return vm.run(module)
}

// LookupModule resolves a previously registered module by name.
func (vm *VM) LookupModule(moduleName string) (*Module, bool) {
	module, ok := vm.modules[vm.strings.Intern(moduleName)]
	return module, ok
}

// run is the fetch-decode-execute loop over the module's chunk.
func (vm *VM) run(module *Module) InterpretResult {
	vm.module = module
	vm.stackTop = 0
	vm.ip = 0

	code := module.Bytecode()

	for {
		at := vm.ip
		instruction := chunk.OpCode(code.Read(vm.ip))
		vm.ip++

		if vm.TraceExecution {
			vm.log.Debugf("%04d %s", at, instruction)
		}

		switch instruction {
		case chunk.OP_CONSTANT:
			constant := code.GetConstant(int(vm.readByte(code)))
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(constant)

		case chunk.OP_NIL:
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(value.Nil)

		case chunk.OP_TRUE:
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(value.True)

		case chunk.OP_FALSE:
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(value.False)

		case chunk.OP_POP:
			vm.pop()

		case chunk.OP_GET_LOCAL:
			slot := vm.readByte(code)
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(vm.stack[slot])

		case chunk.OP_SET_LOCAL:
			slot := vm.readByte(code)
			vm.stack[slot] = vm.peek(0)

		case chunk.OP_GET_GLOBAL:
			name := vm.readString(code)
			v, ok := module.GetVariable(name)
			if !ok {
				return vm.runtimeError(code, at, "Undefined variable '%s'.", name.Chars)
			}
			if vm.stackTop == StackMax {
				return vm.runtimeError(code, at, "Stack overflow.")
			}
			vm.push(v)

		case chunk.OP_SET_GLOBAL:
			name := vm.readString(code)
			if !module.SetVariable(name, vm.peek(0)) {
				return vm.runtimeError(code, at, "Undefined variable '%s'.", name.Chars)
			}

		case chunk.OP_DEFINE_GLOBAL:
			name := vm.readString(code)
			module.AddVariable(name, vm.pop())

		case chunk.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.ValuesEqual(a, b)))

		case chunk.OP_GREATER:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError(code, at, "Operands must be numbers.")
			}
			vm.push(value.NewBool(a.AsNumber > b.AsNumber))

		case chunk.OP_LESS:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError(code, at, "Operands must be numbers.")
			}
			vm.push(value.NewBool(a.AsNumber < b.AsNumber))

		case chunk.OP_ADD:
			b := vm.pop()
			a := vm.pop()
			if a.IsNumber() && b.IsNumber() {
				vm.push(value.NewNumber(a.AsNumber + b.AsNumber))
			} else if a.IsString() && b.IsString() {
				s := vm.strings.Intern(a.AsString().Chars + b.AsString().Chars)
				vm.push(value.NewString(s))
			} else {
				return vm.runtimeError(code, at, "Operands must be two numbers or two strings.")
			}

		case chunk.OP_SUBTRACT:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError(code, at, "Operands must be numbers.")
			}
			vm.push(value.NewNumber(a.AsNumber - b.AsNumber))

		case chunk.OP_MULTIPLY:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError(code, at, "Operands must be numbers.")
			}
			vm.push(value.NewNumber(a.AsNumber * b.AsNumber))

		case chunk.OP_DIVIDE:
			b := vm.pop()
			a := vm.pop()
			if !a.IsNumber() || !b.IsNumber() {
				return vm.runtimeError(code, at, "Operands must be numbers.")
			}
			vm.push(value.NewNumber(a.AsNumber / b.AsNumber))

		case chunk.OP_NOT:
			v := vm.pop()
			vm.push(value.NewBool(value.IsFalsey(v)))

		case chunk.OP_NEGATE:
			v := vm.pop()
			if !v.IsNumber() {
				return vm.runtimeError(code, at, "Operand must be a number.")
			}
			vm.push(value.NewNumber(-v.AsNumber))

		case chunk.OP_PRINT:
			v := vm.pop()
			fmt.Fprintln(vm.Stdout, v.String())

		case chunk.OP_JUMP:
			offset := vm.readShort(code)
			vm.ip += offset

		case chunk.OP_JUMP_IF_FALSE:
			offset := vm.readShort(code)
			if value.IsFalsey(vm.peek(0)) {
				vm.ip += offset
			}

		case chunk.OP_LOOP:
			offset := vm.readShort(code)
			vm.ip -= offset

		case chunk.OP_RETURN:
			return Ok

		default:
			// an unknown opcode is a compiler bug, not a user error
			panic(fmt.Sprintf("unknown opcode %d at offset %d", byte(instruction), at))
		}
	}
}

func (vm *VM) readByte(code *chunk.Chunk) byte {
	b := code.Read(vm.ip)
	vm.ip++
	return b
}

func (vm *VM) readShort(code *chunk.Chunk) int {
	hi := int(code.Read(vm.ip))
	lo := int(code.Read(vm.ip + 1))
	vm.ip += 2
	return hi<<8 | lo
}

func (vm *VM) readString(code *chunk.Chunk) *value.ObjString {
	return code.GetConstant(int(vm.readByte(code))).AsString()
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	if vm.stackTop == 0 {
		panic("pop from empty stack")
	}
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// runtimeError reports the error with the source line of the faulting
// instruction and aborts execution.
func (vm *VM) runtimeError(code *chunk.Chunk, at int, format string, args ...interface{}) InterpretResult {
	fmt.Fprintf(vm.Stderr, "[line %d] %s\n", code.Lines[at], fmt.Sprintf(format, args...))
	return RuntimeError
}
