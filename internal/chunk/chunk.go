package chunk

import (
	"fmt"

	"loxy-vm/internal/mem"
	"loxy-vm/internal/value"
)

type OpCode byte

const (
	OP_CONSTANT OpCode = iota
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_DEFINE_GLOBAL
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP
	OP_RETURN
)

func (op OpCode) String() string {
	switch op {
	case OP_CONSTANT:
		return "OP_CONSTANT"
	case OP_NIL:
		return "OP_NIL"
	case OP_TRUE:
		return "OP_TRUE"
	case OP_FALSE:
		return "OP_FALSE"
	case OP_POP:
		return "OP_POP"
	case OP_GET_GLOBAL:
		return "OP_GET_GLOBAL"
	case OP_SET_GLOBAL:
		return "OP_SET_GLOBAL"
	case OP_GET_LOCAL:
		return "OP_GET_LOCAL"
	case OP_SET_LOCAL:
		return "OP_SET_LOCAL"
	case OP_DEFINE_GLOBAL:
		return "OP_DEFINE_GLOBAL"
	case OP_EQUAL:
		return "OP_EQUAL"
	case OP_GREATER:
		return "OP_GREATER"
	case OP_LESS:
		return "OP_LESS"
	case OP_ADD:
		return "OP_ADD"
	case OP_SUBTRACT:
		return "OP_SUBTRACT"
	case OP_MULTIPLY:
		return "OP_MULTIPLY"
	case OP_DIVIDE:
		return "OP_DIVIDE"
	case OP_NOT:
		return "OP_NOT"
	case OP_NEGATE:
		return "OP_NEGATE"
	case OP_PRINT:
		return "OP_PRINT"
	case OP_JUMP:
		return "OP_JUMP"
	case OP_JUMP_IF_FALSE:
		return "OP_JUMP_IF_FALSE"
	case OP_LOOP:
		return "OP_LOOP"
	case OP_RETURN:
		return "OP_RETURN"
	default:
		return fmt.Sprintf("OP_%d", byte(op))
	}
}

// valueSize is the bytes charged per constant-pool slot.
const valueSize = 32

// Chunk is the compiled form of one module: bytecode, a line number per
// byte, and the constant pool. All three buffers report their growth
// through the allocator.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value

	alloc *mem.Allocator
}

func New(alloc *mem.Allocator) *Chunk {
	return &Chunk{alloc: alloc}
}

// Write appends one byte of code with its source line.
func (c *Chunk) Write(byteCode byte, line int) {
	if len(c.Code) == cap(c.Code) {
		oldCap := cap(c.Code)
		newCap := mem.GrowCapacity(oldCap)
		// code bytes plus the parallel line buffer
		c.alloc.Reallocate(oldCap, newCap)
		c.alloc.Reallocate(oldCap*8, newCap*8)

		code := make([]byte, len(c.Code), newCap)
		copy(code, c.Code)
		c.Code = code

		lines := make([]int, len(c.Lines), newCap)
		copy(lines, c.Lines)
		c.Lines = lines
	}
	c.Code = append(c.Code, byteCode)
	c.Lines = append(c.Lines, line)
}

// AddConstant returns the index of v in the constant pool, appending it
// only when no equal constant exists yet.
func (c *Chunk) AddConstant(v value.Value) int {
	for i, existing := range c.Constants {
		if value.ValuesEqual(existing, v) {
			return i
		}
	}

	if len(c.Constants) == cap(c.Constants) {
		oldCap := cap(c.Constants)
		newCap := mem.GrowCapacity(oldCap)
		c.alloc.Reallocate(oldCap*valueSize, newCap*valueSize)

		constants := make([]value.Value, len(c.Constants), newCap)
		copy(constants, c.Constants)
		c.Constants = constants
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Read returns the byte at offset. Bounds are the caller's problem; the VM
// only fetches within Size.
func (c *Chunk) Read(offset int) byte {
	return c.Code[offset]
}

func (c *Chunk) Size() int {
	return len(c.Code)
}

func (c *Chunk) GetConstant(index int) value.Value {
	return c.Constants[index]
}

// Free releases the chunk's buffers from the allocator's accounting. Paired
// with the growth charges made in Write and AddConstant.
func (c *Chunk) Free() {
	c.alloc.Reallocate(cap(c.Code), 0)
	c.alloc.Reallocate(cap(c.Lines)*8, 0)
	c.alloc.Reallocate(cap(c.Constants)*valueSize, 0)
	c.Code = nil
	c.Lines = nil
	c.Constants = nil
}
