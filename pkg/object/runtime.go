package object

// Runtime is the minimal surface a host-implemented (native) method body
// needs from the interpreter, kept here so pkg/gfunction can declare
// callables without importing pkg/interp — native code resolves classes
// and invokes methods through the very same path bytecode does.
type Runtime interface {
	// ResolveClass loads (if necessary) and links the named class.
	ResolveClass(name string) (*Class, error)

	// Invoke runs a method (bytecode or native) to completion, handling
	// re-entrancy into the interpreter from within a native call.
	Invoke(method *Method, this Value, args []Value) (Value, error)

	// Throw constructs and raises a Java exception of the named class
	// with the given detail message.
	Throw(className, message string) error

	// NewString boxes a Go string into a java/lang/String instance,
	// interning it exactly like the ldc opcode would.
	NewString(s string) *Object

	// GoString unboxes a java/lang/String instance back to a Go string;
	// ok is false if obj isn't a String.
	GoString(obj *Object) (s string, ok bool)

	// Println writes a line to the host's standard output stream.
	Println(s string)

	// Print writes s to the host's standard output stream without a
	// trailing newline.
	Print(s string)

	// NewArray allocates a fresh array of the given element type and
	// length, synthesizing the array class on first use.
	NewArray(elemType string, n int) (*Object, error)

	// NowMillis returns the host wall clock in epoch milliseconds, for
	// System.currentTimeMillis.
	NowMillis() int64

	// SleepMillis suspends the calling frame for the given duration, for
	// Thread.sleep.
	SleepMillis(ms int64)

	// Spawn hands task to the cooperative scheduler; it runs to
	// completion before Spawn returns, but through the same single
	// logical executor every other spawned task shares, for
	// Thread.start.
	Spawn(task func() error) error

	// EncodeStr converts s to its platform byte encoding, for
	// String.getBytes().
	EncodeStr(s string) []byte

	// DecodeStr converts platform-encoded bytes back to a string, for
	// the String(byte[]) constructor.
	DecodeStr(b []byte) string

	// LoadResource reads a classpath or jar-relative resource, for
	// Class.getResourceAsBytes.
	LoadResource(name string) ([]byte, error)
}
