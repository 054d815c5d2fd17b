package entities

import (
	"fmt"
	"strings"
)

// MaxParameters is the hard capacity of a call signature.
const MaxParameters = 16

// Signature is the call shape declared by a guest at bind time.
type Signature struct {
	Return TypeCode
	Params []TypeCode
}

// ValidateReturn checks a return code. Annotations are meaningless on returns.
func ValidateReturn(c TypeCode) error {
	if err := c.validateShape(); err != nil {
		return err
	}
	if c.Annotations() != AnnotationNone {
		return fmt.Errorf("return type %s: annotations are not allowed", c)
	}
	return nil
}

// Validate checks every code and the cross-parameter count references.
func (s Signature) Validate() error {
	if len(s.Params) > MaxParameters {
		return fmt.Errorf("%d parameters exceed capacity %d", len(s.Params), MaxParameters)
	}
	if err := ValidateReturn(s.Return); err != nil {
		return err
	}
	for i, p := range s.Params {
		if err := p.validateShape(); err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		if p.IsVoid() {
			return fmt.Errorf("parameter %d: void is not a parameter type", i)
		}
		annot := p.Annotations()
		if annot&(AnnotationBCount|AnnotationECount) == 0 {
			continue
		}
		idx := p.CountIndex()
		if idx == i || idx >= len(s.Params) {
			return fmt.Errorf("parameter %d: count index %d out of range", i, idx)
		}
		if s.Params[idx].IsPointer() {
			return fmt.Errorf("parameter %d: count parameter %d is a pointer", i, idx)
		}
	}
	return nil
}

// Words returns the number of guest words an argument stream for s occupies.
func (s Signature) Words() int {
	n := 0
	for _, p := range s.Params {
		n += p.Words()
	}
	return n
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", s.Return, strings.Join(params, ", "))
}
