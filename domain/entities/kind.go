package entities

import (
	"fmt"
	"strings"
)

// ValueKind is the scalar discriminant carried in the low six bits of a TypeCode.
type ValueKind uint8

const (
	KindVoid ValueKind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt64

	// KindMax is the largest kind the six-bit field can encode.
	KindMax ValueKind = 63
)

// Size returns the element size in bytes. Void pointees are untyped bytes.
func (k ValueKind) Size() uint32 {
	switch k {
	case KindInt16:
		return 2
	case KindInt32:
		return 4
	case KindInt64:
		return 8
	default:
		return 1
	}
}

// Valid reports whether k is a kind the bridge knows how to marshal.
func (k ValueKind) Valid() bool {
	return k <= KindInt64
}

func (k ValueKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Annotation is a set of pointer-marshaling flags.
type Annotation uint8

const (
	AnnotationNone   Annotation = 0x00
	AnnotationIn     Annotation = 0x01
	AnnotationOut    Annotation = 0x02
	AnnotationOpt    Annotation = 0x04
	AnnotationBCount Annotation = 0x08
	AnnotationECount Annotation = 0x10
	AnnotationPart   Annotation = 0x20
	AnnotationInOut             = AnnotationIn | AnnotationOut

	annotationAll = AnnotationIn | AnnotationOut | AnnotationOpt |
		AnnotationBCount | AnnotationECount | AnnotationPart
)

// Has reports whether every flag in f is set.
func (a Annotation) Has(f Annotation) bool {
	return a&f == f
}

func (a Annotation) String() string {
	if a == AnnotationNone {
		return "none"
	}
	var parts []string
	names := []struct {
		flag Annotation
		name string
	}{
		{AnnotationIn, "in"},
		{AnnotationOut, "out"},
		{AnnotationOpt, "opt"},
		{AnnotationBCount, "bcount"},
		{AnnotationECount, "ecount"},
		{AnnotationPart, "part"},
	}
	for _, n := range names {
		if a.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// TypeCode is the 32-bit word a guest uses to declare a return or parameter type.
//
// Layout:
//
//	bits  0-5   ValueKind
//	bits  6-7   pointer mask (non-zero marks a pointer to the kind)
//	bits  8-15  Annotation flags
//	bits 16-23  index of the parameter holding the byte/element count
//	bits 24-31  reserved, must be zero
type TypeCode uint32

const (
	kindMask     TypeCode = 0x3F
	PointerMask  TypeCode = 0xC0
	annotShift            = 8
	countShift            = 16
	reservedMask TypeCode = 0xFF000000
)

// NewTypeCode builds a scalar type code.
func NewTypeCode(kind ValueKind) TypeCode {
	return TypeCode(kind) & kindMask
}

// NewPointerCode builds a pointer type code with the given annotations.
// countIndex is ignored unless a count annotation is present.
func NewPointerCode(pointee ValueKind, annot Annotation, countIndex uint8) TypeCode {
	c := (TypeCode(pointee) & kindMask) | PointerMask | TypeCode(annot)<<annotShift
	if annot&(AnnotationBCount|AnnotationECount) != 0 {
		c |= TypeCode(countIndex) << countShift
	}
	return c
}

// Kind returns the scalar kind, or the pointee kind for pointers.
func (c TypeCode) Kind() ValueKind {
	return ValueKind(c & kindMask)
}

// IsPointer reports whether the pointer mask is set.
func (c TypeCode) IsPointer() bool {
	return c&PointerMask != 0
}

// Annotations returns the marshaling flags.
func (c TypeCode) Annotations() Annotation {
	return Annotation(c >> annotShift)
}

// CountIndex returns the parameter index named by a BCount/ECount annotation.
func (c TypeCode) CountIndex() int {
	return int((c >> countShift) & 0xFF)
}

// IsVoid reports whether c is the non-pointer void kind.
func (c TypeCode) IsVoid() bool {
	return !c.IsPointer() && c.Kind() == KindVoid
}

// Words returns how many 32-bit guest words a value of this type occupies
// in a variadic argument stream.
func (c TypeCode) Words() int {
	if !c.IsPointer() && c.Kind() == KindInt64 {
		return 2
	}
	return 1
}

func (c TypeCode) String() string {
	if !c.IsPointer() {
		return c.Kind().String()
	}
	s := c.Kind().String() + "*"
	if a := c.Annotations(); a != AnnotationNone {
		s += "[" + a.String()
		if a&(AnnotationBCount|AnnotationECount) != 0 {
			s += fmt.Sprintf(":%d", c.CountIndex())
		}
		s += "]"
	}
	return s
}

// validateShape checks the parts of a code that do not depend on sibling parameters.
func (c TypeCode) validateShape() error {
	if c&reservedMask != 0 {
		return fmt.Errorf("type code %#08x: reserved bits set", uint32(c))
	}
	if !c.Kind().Valid() {
		return fmt.Errorf("type code %#08x: unknown kind %d", uint32(c), uint8(c.Kind()))
	}
	annot := c.Annotations()
	if annot&^annotationAll != 0 {
		return fmt.Errorf("type code %#08x: unknown annotation bits", uint32(c))
	}
	if !c.IsPointer() && annot != AnnotationNone {
		return fmt.Errorf("type code %#08x: annotations on a scalar", uint32(c))
	}
	if annot.Has(AnnotationBCount) && annot.Has(AnnotationECount) {
		return fmt.Errorf("type code %#08x: bcount and ecount are exclusive", uint32(c))
	}
	if annot&(AnnotationBCount|AnnotationECount) == 0 && c.CountIndex() != 0 {
		return fmt.Errorf("type code %#08x: count index without count annotation", uint32(c))
	}
	return nil
}
