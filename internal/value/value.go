package value

import (
	"strconv"

	"loxy-vm/internal/mem"
)

type ValueType int

const (
	VAL_NIL ValueType = iota
	VAL_BOOL
	VAL_NUMBER
	VAL_STRING
	VAL_OBJ

	// VAL_UNDEF is internal; it never appears on the value stack or in
	// source-visible positions.
	VAL_UNDEF
)

// Value is the tagged union over every runtime value. Strings carry their
// own tag so equality and concatenation can skip the generic object path.
type Value struct {
	Type     ValueType
	AsBool   bool
	AsNumber float64
	Obj      Object
}

// Canonical singletons.
var (
	Nil   = Value{Type: VAL_NIL}
	Undef = Value{Type: VAL_UNDEF}
	True  = Value{Type: VAL_BOOL, AsBool: true}
	False = Value{Type: VAL_BOOL, AsBool: false}
)

func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

func NewNumber(n float64) Value {
	return Value{Type: VAL_NUMBER, AsNumber: n}
}

func NewString(s *ObjString) Value {
	return Value{Type: VAL_STRING, Obj: s}
}

func NewObj(obj Object) Value {
	return Value{Type: VAL_OBJ, Obj: obj}
}

func (v Value) IsNumber() bool { return v.Type == VAL_NUMBER }
func (v Value) IsString() bool { return v.Type == VAL_STRING }

// AsString returns the string payload. Callers must have checked the tag.
func (v Value) AsString() *ObjString {
	return v.Obj.(*ObjString)
}

// IsFalsey reports whether v is nil or boolean false. Every other value,
// including 0 and "", is truthy.
func IsFalsey(v Value) bool {
	return v.Type == VAL_NIL || (v.Type == VAL_BOOL && !v.AsBool)
}

// ValuesEqual implements the language's == on two values. Objects compare
// by identity, which for strings is content equality because of interning.
func ValuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case VAL_BOOL:
		return a.AsBool == b.AsBool
	case VAL_NIL, VAL_UNDEF:
		return true
	case VAL_NUMBER:
		return a.AsNumber == b.AsNumber
	case VAL_STRING, VAL_OBJ:
		return a.Obj == b.Obj
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Type {
	case VAL_NIL:
		return "nil"
	case VAL_BOOL:
		if v.AsBool {
			return "true"
		}
		return "false"
	case VAL_NUMBER:
		return strconv.FormatFloat(v.AsNumber, 'g', -1, 64)
	case VAL_STRING, VAL_OBJ:
		return v.Obj.String()
	case VAL_UNDEF:
		return "undef"
	default:
		return "unknown"
	}
}

type ObjectType int

const (
	OBJ_STRING ObjectType = iota
	OBJ_MODULE
)

// Object is the common interface of heap-allocated values. Every object
// embeds mem.Header and so participates in the VM's heap list.
type Object interface {
	mem.Managed
	Type() ObjectType
	String() string
}

// ObjString is an immutable interned string. Two live strings with equal
// bytes are always the same *ObjString; construction goes through the pool.
type ObjString struct {
	header mem.Header
	Chars  string
	Hash   uint32
}

func (s *ObjString) Header() *mem.Header { return &s.header }
func (s *ObjString) Type() ObjectType    { return OBJ_STRING }
func (s *ObjString) String() string      { return s.Chars }

// HashString is 32-bit FNV-1a.
func HashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
