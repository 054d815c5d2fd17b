// Package oscall is the guest side of the native-call bridge. Go programs
// built with GOOS=wasip1 use it to bind and call functions of host shared
// libraries:
//
//	strlen, err := oscall.Bind("libc.so.6", "strlen",
//	    entities.NewTypeCode(entities.KindInt64),
//	    entities.NewPointerCode(entities.KindInt8, entities.AnnotationIn, 0))
//	if err != nil {
//	    return err
//	}
//	defer strlen.Release()
//
//	s := oscall.CString("hello")
//	n, err := strlen.Call(oscall.Addr(s))
//
// Pointer arguments are guest addresses; the host translates them into its
// own address space after checking them against the declared type codes.
// Buffers passed as pointers must stay referenced until Call returns.
//
// Outside wasip1 every bind fails with ErrNoHost.
package oscall
