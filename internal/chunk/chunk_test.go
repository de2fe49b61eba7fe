package chunk

import (
	"testing"

	"loxy-vm/internal/mem"
	"loxy-vm/internal/value"
)

func TestWriteKeepsLineParity(t *testing.T) {
	c := New(mem.NewAllocator())

	lines := []int{1, 1, 2, 3, 3, 3, 10}
	for i, line := range lines {
		c.Write(byte(i), line)
	}

	if len(c.Code) != len(c.Lines) {
		t.Fatalf("|code|=%d |lines|=%d, want equal", len(c.Code), len(c.Lines))
	}
	for i, line := range lines {
		if c.Read(i) != byte(i) {
			t.Errorf("code[%d] got=%d, want=%d", i, c.Read(i), i)
		}
		if c.Lines[i] != line {
			t.Errorf("lines[%d] got=%d, want=%d", i, c.Lines[i], line)
		}
	}
	if c.Size() != len(lines) {
		t.Errorf("Size got=%d, want=%d", c.Size(), len(lines))
	}
}

func TestAddConstantDeduplicates(t *testing.T) {
	pool := value.NewStringPool(mem.NewAllocator())
	c := New(mem.NewAllocator())

	one := c.AddConstant(value.NewNumber(1))
	two := c.AddConstant(value.NewNumber(2))
	if one == two {
		t.Fatalf("distinct constants share index %d", one)
	}

	if got := c.AddConstant(value.NewNumber(1)); got != one {
		t.Errorf("re-adding 1 got=%d, want=%d", got, one)
	}
	if got := c.AddConstant(value.NewNumber(2)); got != two {
		t.Errorf("re-adding 2 got=%d, want=%d", got, two)
	}

	// interned strings dedup by identity
	s := c.AddConstant(value.NewString(pool.Intern("name")))
	if got := c.AddConstant(value.NewString(pool.Intern("name"))); got != s {
		t.Errorf("re-adding interned string got=%d, want=%d", got, s)
	}

	if got := c.GetConstant(one); !value.ValuesEqual(got, value.NewNumber(1)) {
		t.Errorf("GetConstant(%d) got=%s", one, got)
	}
}

func TestWriteReportsGrowth(t *testing.T) {
	alloc := mem.NewAllocator()
	c := New(alloc)

	for i := 0; i < 100; i++ {
		c.Write(0, 1)
	}
	if alloc.AllocatedBytes() == 0 {
		t.Fatalf("buffer growth was not reported to the allocator")
	}

	charged := alloc.AllocatedBytes()
	c.AddConstant(value.NewNumber(1))
	if alloc.AllocatedBytes() <= charged {
		t.Fatalf("constant growth was not reported to the allocator")
	}

	c.Free()
	if alloc.AllocatedBytes() != 0 {
		t.Fatalf("Free left %d bytes charged", alloc.AllocatedBytes())
	}
}
