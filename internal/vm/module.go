package vm

import (
	"fmt"

	"loxy-vm/internal/chunk"
	"loxy-vm/internal/compiler"
	"loxy-vm/internal/mem"
	"loxy-vm/internal/value"
)

// moduleOverhead approximates a module's fixed heap cost.
const moduleOverhead = 128

// Module is the unit of compilation: a named source buffer, its compiled
// chunk, the top-level bindings, and the modules it imports. Modules are
// heap objects and live on the VM's heap list until teardown.
type Module struct {
	header mem.Header

	name   *value.ObjString
	path   *value.ObjString
	source string

	bytecode *chunk.Chunk

	// top-level bindings, keyed by interned name
	globals map[*value.ObjString]value.Value

	imports []*Module
}

func (m *Module) Header() *mem.Header     { return &m.header }
func (m *Module) Type() value.ObjectType  { return value.OBJ_MODULE }
func (m *Module) String() string          { return fmt.Sprintf("<module %s>", m.name.Chars) }
func (m *Module) Name() *value.ObjString  { return m.name }
func (m *Module) Path() *value.ObjString  { return m.path }
func (m *Module) Bytecode() *chunk.Chunk  { return m.bytecode }
func (m *Module) SetSource(source string) { m.source = source }

// NewModule creates and tracks a module owned by vm.
func NewModule(vm *VM, name, path *value.ObjString, source string) *Module {
	m := &Module{
		name:    name,
		path:    path,
		source:  source,
		globals: make(map[*value.ObjString]value.Value),
	}
	vm.alloc.Track(m, moduleOverhead+len(source))
	return m
}

// Compile compiles the module's source into a fresh chunk. On failure the
// previous bytecode, if any, is left in place.
func (m *Module) Compile(vm *VM) bool {
	ch := chunk.New(vm.alloc)
	if !compiler.Compile(m.source, ch, vm.strings, vm.Stderr) {
		ch.Free()
		return false
	}

	if m.bytecode != nil {
		m.bytecode.Free()
	}
	m.bytecode = ch
	return true
}

// AddVariable binds name to v, overwriting any existing binding. Top-level
// redeclaration is legal: the last definition wins.
func (m *Module) AddVariable(name *value.ObjString, v value.Value) {
	m.globals[name] = v
}

// GetVariable reads a binding; the second result reports existence.
func (m *Module) GetVariable(name *value.ObjString) (value.Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// SetVariable updates an existing binding. It reports false when name was
// never declared, which the VM turns into an undefined-variable error.
func (m *Module) SetVariable(name *value.ObjString, v value.Value) bool {
	if _, ok := m.globals[name]; !ok {
		return false
	}
	m.globals[name] = v
	return true
}

// AddImport records a module dependency; imported modules are GC roots of
// the importer.
func (m *Module) AddImport(imported *Module) {
	m.imports = append(m.imports, imported)
}
