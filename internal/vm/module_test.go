package vm

import (
	"testing"

	"loxy-vm/internal/value"
)

func TestModuleVariables(t *testing.T) {
	machine := New()
	name := machine.Strings().Intern("mod")
	module := NewModule(machine, name, name, "")

	key := machine.Strings().Intern("answer")

	// reading before any definition fails
	if _, ok := module.GetVariable(key); ok {
		t.Fatalf("GetVariable on empty module succeeded")
	}

	// assigning before definition fails; the VM reports undefined variable
	if module.SetVariable(key, value.NewNumber(1)) {
		t.Fatalf("SetVariable on undeclared name succeeded")
	}

	module.AddVariable(key, value.NewNumber(42))
	v, ok := module.GetVariable(key)
	if !ok || v.AsNumber != 42 {
		t.Fatalf("GetVariable got=(%s, %t), want=(42, true)", v, ok)
	}

	// redefinition overwrites
	module.AddVariable(key, value.NewNumber(7))
	if v, _ := module.GetVariable(key); v.AsNumber != 7 {
		t.Errorf("after redefinition got=%s, want=7", v)
	}

	// assignment to an existing name succeeds
	if !module.SetVariable(key, value.NewNumber(9)) {
		t.Fatalf("SetVariable on declared name failed")
	}
	if v, _ := module.GetVariable(key); v.AsNumber != 9 {
		t.Errorf("after assignment got=%s, want=9", v)
	}
}

func TestModuleCompile(t *testing.T) {
	machine := New()
	name := machine.Strings().Intern("mod")

	module := NewModule(machine, name, name, "print 1;")
	if !module.Compile(machine) {
		t.Fatalf("compile failed")
	}
	if module.Bytecode() == nil || module.Bytecode().Size() == 0 {
		t.Fatalf("compile produced no bytecode")
	}
	if len(module.Bytecode().Code) != len(module.Bytecode().Lines) {
		t.Errorf("line table parity broken: |code|=%d |lines|=%d",
			len(module.Bytecode().Code), len(module.Bytecode().Lines))
	}

	module.SetSource("print ;")
	old := module.Bytecode()
	if module.Compile(machine) {
		t.Fatalf("broken source should not compile")
	}
	if module.Bytecode() != old {
		t.Errorf("failed compile replaced the previous bytecode")
	}
}

func TestModuleImports(t *testing.T) {
	machine := New()
	a := NewModule(machine, machine.Strings().Intern("a"), machine.Strings().Intern("a"), "")
	b := NewModule(machine, machine.Strings().Intern("b"), machine.Strings().Intern("b"), "")

	a.AddImport(b)
	if len(a.imports) != 1 || a.imports[0] != b {
		t.Fatalf("import was not recorded")
	}
}
