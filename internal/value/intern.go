package value

import (
	"loxy-vm/internal/mem"
)

const (
	// poolMaxLoad is the numerator of the 3/4 load factor.
	poolMaxLoad = 3

	// poolEntrySize is the bytes charged per table slot.
	poolEntrySize = 16

	// objStringOverhead approximates the fixed cost of an ObjString beyond
	// its character data.
	objStringOverhead = 32
)

// poolEntry is one slot of the open-addressed table. A nil key with
// tombstone unset is empty; a nil key with tombstone set marks a deleted
// slot that probing must treat as occupied.
type poolEntry struct {
	key       *ObjString
	tombstone bool
}

// StringPool is the interning table. It is the sole entry point for string
// allocation: every string canonicalises through Intern before it escapes.
type StringPool struct {
	alloc   *mem.Allocator
	entries []poolEntry
	count   int // live keys plus tombstones
}

func NewStringPool(alloc *mem.Allocator) *StringPool {
	return &StringPool{alloc: alloc}
}

// Intern returns the canonical ObjString for chars, creating and tracking
// a new object only when no equal string is live.
func (p *StringPool) Intern(chars string) *ObjString {
	hash := HashString(chars)

	if s := p.Find(chars, hash); s != nil {
		return s
	}

	// Insert before tracking: once the string is on the heap list, the
	// pool entry is what keeps a collection from sweeping it.
	s := &ObjString{Chars: chars, Hash: hash}
	p.add(s)
	p.alloc.Track(s, len(chars)+objStringOverhead)
	return s
}

// Find probes for a live string with the given content, or nil.
func (p *StringPool) Find(chars string, hash uint32) *ObjString {
	if p.count == 0 {
		return nil
	}

	index := int(hash) & (len(p.entries) - 1)
	for {
		entry := &p.entries[index]
		if entry.key == nil {
			if !entry.tombstone {
				return nil
			}
			// tombstone: keep probing.
		} else if entry.key.Hash == hash &&
			len(entry.key.Chars) == len(chars) &&
			entry.key.Chars == chars {
			return entry.key
		}
		index = (index + 1) & (len(p.entries) - 1)
	}
}

// Remove deletes s from the pool, leaving a tombstone. The collector calls
// this for strings it is about to sweep.
func (p *StringPool) Remove(s *ObjString) {
	if p.count == 0 {
		return
	}

	index := int(s.Hash) & (len(p.entries) - 1)
	for {
		entry := &p.entries[index]
		if entry.key == nil && !entry.tombstone {
			return
		}
		if entry.key == s {
			entry.key = nil
			entry.tombstone = true
			return
		}
		index = (index + 1) & (len(p.entries) - 1)
	}
}

// Range calls fn for every live string in the pool.
func (p *StringPool) Range(fn func(*ObjString)) {
	for i := range p.entries {
		if p.entries[i].key != nil {
			fn(p.entries[i].key)
		}
	}
}

func (p *StringPool) add(s *ObjString) {
	if (p.count+1)*4 > len(p.entries)*poolMaxLoad {
		p.grow()
	}

	index := int(s.Hash) & (len(p.entries) - 1)
	for {
		entry := &p.entries[index]
		if entry.key == nil {
			// A tombstone slot is reused without bumping count: it was
			// already charged against the load factor.
			if !entry.tombstone {
				p.count++
			}
			entry.key = s
			entry.tombstone = false
			return
		}
		index = (index + 1) & (len(p.entries) - 1)
	}
}

// grow doubles the table (capacity stays a power of two) and reinserts the
// live keys. Tombstones are reclaimed here.
func (p *StringPool) grow() {
	oldEntries := p.entries
	newCap := mem.GrowCapacity(len(oldEntries))

	p.alloc.Reallocate(len(oldEntries)*poolEntrySize, newCap*poolEntrySize)
	p.entries = make([]poolEntry, newCap)
	p.count = 0

	for i := range oldEntries {
		key := oldEntries[i].key
		if key == nil {
			continue
		}
		index := int(key.Hash) & (newCap - 1)
		for p.entries[index].key != nil {
			index = (index + 1) & (newCap - 1)
		}
		p.entries[index].key = key
		p.count++
	}
}
