package vm

import (
	"fmt"
	"strings"
	"testing"
)

func TestCollectKeepsRoots(t *testing.T) {
	machine := New()
	result, _, stderr := interpret(t, machine, `var greeting = "hello" + " " + "world";`)
	if result != Ok {
		t.Fatalf("interpret got=%s (stderr=%q)", result, stderr)
	}

	machine.collectGarbage()

	module, _ := machine.LookupModule("main")
	v, ok := module.GetVariable(machine.Strings().Intern("greeting"))
	if !ok {
		t.Fatalf("global lost after collection")
	}
	if v.AsString().Chars != "hello world" {
		t.Errorf("global got=%q, want=%q", v.AsString().Chars, "hello world")
	}

	// the module itself survived on the heap list
	found := false
	for obj := machine.Allocator().First(); obj != nil; obj = obj.Header().Next {
		if obj == module {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("module missing from heap list after collection")
	}
}

func TestCollectClearsMarks(t *testing.T) {
	machine := New()
	interpret(t, machine, `var a = "one"; var b = "two";`)

	machine.collectGarbage()
	for obj := machine.Allocator().First(); obj != nil; obj = obj.Header().Next {
		if obj.Header().IsDark {
			t.Fatalf("mark bit left set after sweep")
		}
	}
}

func TestCollectRaisesThreshold(t *testing.T) {
	machine := New()
	machine.collectGarbage()

	if machine.Allocator().NextGC() < machine.Allocator().AllocatedBytes() {
		t.Errorf("threshold below live bytes: next=%d live=%d",
			machine.Allocator().NextGC(), machine.Allocator().AllocatedBytes())
	}
}

func TestCollectionTriggeredDuringInterpret(t *testing.T) {
	machine := New()
	machine.SetGCThreshold(1)

	// The 1-byte threshold makes the first growing reallocation inside
	// Interpret collect; the collector then raises the threshold to at least
	// mem.InitialGCThreshold, and the string churn runs after that.
	var sb strings.Builder
	sb.WriteString(`var s = "";`)
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, `s = s + "chunk%d";`, i)
	}
	sb.WriteString("print s == s;")

	result, stdout, stderr := interpret(t, machine, sb.String())
	if result != Ok {
		t.Fatalf("interpret got=%s (stderr=%q)", result, stderr)
	}
	if stdout != "true\n" {
		t.Errorf("output got=%q", stdout)
	}
}
