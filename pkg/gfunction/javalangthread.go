package gfunction

import (
	"github.com/tinyjvm/tinyjvm/pkg/classfile"
	"github.com/tinyjvm/tinyjvm/pkg/classloader"
	"github.com/tinyjvm/tinyjvm/pkg/object"
)

// java/lang/Runnable is a marker interface: the single run() method is
// abstract here and always overridden, either by a Runnable target
// class or by a Thread subclass.
func init() {
	register(ClassSpec{
		Name:        "java/lang/Runnable",
		SuperName:   "",
		AccessFlags: classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract,
		Methods: []MethodSpec{
			{Name: "run", Descriptor: "()V", AccessFlags: classfile.AccPublic | classfile.AccAbstract},
		},
	})
}

// java/lang/Thread, grounded on jacobin's Load_Lang_Thread
// (javaLangThread.go) for sleep/currentThread/registerNatives, and on
// pkg/scheduler's cooperative queue for start(): start() hands either
// the constructor's Runnable target or (if this class overrides run()
// itself) this to rt.Spawn, which runs it to completion through the
// same single logical executor every spawned task shares.
func init() {
	register(ClassSpec{
		Name:        "java/lang/Thread",
		SuperName:   "java/lang/Object",
		Interfaces:  []string{"java/lang/Runnable"},
		AccessFlags: classfile.AccPublic,
		Fields: []FieldSpec{
			{Name: "target", Descriptor: "Ljava/lang/Runnable;", AccessFlags: classfile.AccPrivate},
		},
		Methods: []MethodSpec{
			{Name: "registerNatives", Descriptor: "()V", AccessFlags: classfile.AccStatic, Fn: justReturn},
			{Name: "sleep", Descriptor: "(J)V", AccessFlags: classfile.AccStatic, Fn: threadSleep},
			{Name: "currentThread", Descriptor: "()Ljava/lang/Thread;", AccessFlags: classfile.AccStatic, Fn: threadCurrentThread},
			{Name: "<init>", Descriptor: "()V", Fn: threadInitDefault},
			{Name: "<init>", Descriptor: "(Ljava/lang/Runnable;)V", Fn: threadInitTarget},
			{Name: "run", Descriptor: "()V", Fn: threadRun},
			{Name: "start", Descriptor: "()V", Fn: threadStart},
		},
	})
}

func threadSleep(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	rt.SleepMillis(args[0].I)
	return object.Void, nil
}

func threadCurrentThread(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	threadClass, err := rt.ResolveClass("java/lang/Thread")
	if err != nil {
		return object.Value{}, err
	}
	return object.RefValue(object.NewInstance(threadClass)), nil
}

func threadInitDefault(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	return object.Void, nil
}

func threadInitTarget(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	if _, fd := this.Ref.Class.FindFieldInChain("target"); fd != nil {
		this.Ref.SetField(fd.LayoutIndex, args[0])
	}
	return object.Void, nil
}

// threadRun is Thread's own run(): it has no body of its own, so it
// delegates to the constructor-supplied Runnable target, if any, the
// way java.lang.Thread.run() does.
func threadRun(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	_, fd := this.Ref.Class.FindFieldInChain("target")
	if fd == nil {
		return object.Void, nil
	}
	target := this.Ref.GetField(fd.LayoutIndex)
	if target.IsNull() {
		return object.Void, nil
	}
	m, err := classloader.ResolveVirtualMethod(target.Ref.Class, "run", "()V")
	if err != nil {
		return object.Value{}, err
	}
	return rt.Invoke(m, target, nil)
}

// threadStart runs whichever of this instance's own run() override or
// its constructor-supplied Runnable target exists, through the host's
// Spawn rather than a direct Invoke. Spawn drains the scheduler before
// returning, so run() has completed by the time Thread.start returns.
func threadStart(rt object.Runtime, this object.Value, args []object.Value) (object.Value, error) {
	runMethod, receiver, err := resolveRunTarget(this)
	if err != nil {
		return object.Value{}, err
	}
	if runMethod == nil {
		return object.Void, nil
	}
	return object.Void, rt.Spawn(func() error {
		_, err := rt.Invoke(runMethod, receiver, nil)
		return err
	})
}

// resolveRunTarget picks the method/receiver a start() should spawn: a
// subclass override of run() if this has one, otherwise the
// constructor-supplied Runnable target's run(), otherwise nil (Thread's
// own run() is a no-op target-delegator, not a real body to spawn).
func resolveRunTarget(this object.Value) (*object.Method, object.Value, error) {
	if m, err := classloader.ResolveVirtualMethod(this.Ref.Class, "run", "()V"); err == nil && m.Class.Name != "java/lang/Thread" {
		return m, this, nil
	}
	_, fd := this.Ref.Class.FindFieldInChain("target")
	if fd == nil {
		return nil, object.Value{}, nil
	}
	target := this.Ref.GetField(fd.LayoutIndex)
	if target.IsNull() {
		return nil, object.Value{}, nil
	}
	m, err := classloader.ResolveVirtualMethod(target.Ref.Class, "run", "()V")
	if err != nil {
		return nil, object.Value{}, err
	}
	return m, target, nil
}
