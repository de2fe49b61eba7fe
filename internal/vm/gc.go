package vm

import (
	"loxy-vm/internal/mem"
	"loxy-vm/internal/value"
)

// collectGarbage is a mark-sweep pass over the heap-object list. The
// allocator invokes it when the byte counter crosses the threshold.
//
// Roots: the value stack, every registered module (whose trace covers its
// globals, imports, and chunk constants), and the string pool contents.
func (vm *VM) collectGarbage() {
	before := vm.alloc.AllocatedBytes()

	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for _, module := range vm.modules {
		vm.markObject(module)
	}
	vm.strings.Range(func(s *value.ObjString) {
		vm.markObject(s)
	})

	vm.sweep()

	live := vm.alloc.AllocatedBytes()
	next := live + live/2
	if next < mem.InitialGCThreshold {
		next = mem.InitialGCThreshold
	}
	vm.alloc.SetNextGC(next)

	vm.log.Debugf("gc: %d -> %d bytes, next at %d", before, live, vm.alloc.NextGC())
}

func (vm *VM) markValue(v value.Value) {
	if v.Obj != nil {
		vm.markObject(v.Obj)
	}
}

func (vm *VM) markObject(obj value.Object) {
	header := obj.Header()
	if header.IsDark {
		return
	}
	header.IsDark = true

	switch o := obj.(type) {
	case *Module:
		vm.markObject(o.name)
		vm.markObject(o.path)
		for name, v := range o.globals {
			vm.markObject(name)
			vm.markValue(v)
		}
		for _, imported := range o.imports {
			vm.markObject(imported)
		}
		if o.bytecode != nil {
			for _, constant := range o.bytecode.Constants {
				vm.markValue(constant)
			}
		}
	}
}

// sweep unlinks every unmarked object from the heap list and uncharges it,
// clearing the mark bit on survivors for the next cycle.
func (vm *VM) sweep() {
	var prev mem.Managed
	obj := vm.alloc.First()

	for obj != nil {
		header := obj.Header()
		next := header.Next

		if header.IsDark {
			header.IsDark = false
			prev = obj
		} else {
			if s, ok := obj.(*value.ObjString); ok {
				vm.strings.Remove(s)
			}
			if prev == nil {
				vm.alloc.SetFirst(next)
			} else {
				prev.Header().Next = next
			}
			header.Next = nil
			vm.alloc.Release(obj)
		}

		obj = next
	}
}
