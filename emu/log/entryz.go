package log

import (
	"fmt"
	"io"
	"sync"

	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint32

// Same ordering as logrus levels.
const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

const maxZFields = 16

// EntryZ is a log entry built field by field. All methods accept a nil
// receiver, which is what disabled modules return, so a disabled log line
// costs no allocation.
type EntryZ struct {
	lvl   Level
	mod   Module
	msg   string
	zfbuf [maxZFields]ZField
	zfidx int
}

var entryPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	e := entryPool.Get().(*EntryZ)
	e.zfidx = 0
	return e
}

func (z *EntryZ) add(f ZField) *EntryZ {
	if z == nil || z.zfidx == maxZFields {
		return z
	}
	z.zfbuf[z.zfidx] = f
	z.zfidx++
	return z
}

func (z *EntryZ) Bool(key string, b bool) *EntryZ {
	f := ZField{Type: FieldTypeBool, Key: key}
	if b {
		f.num = 1
	}
	return z.add(f)
}

func (z *EntryZ) String(key, s string) *EntryZ {
	return z.add(ZField{Type: FieldTypeString, Key: key, str: s})
}

func (z *EntryZ) Hex8(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex8, Key: key, num: uint64(v)})
}

func (z *EntryZ) Hex16(key string, v uint16) *EntryZ {
	return z.add(ZField{Type: FieldTypeHex16, Key: key, num: uint64(v)})
}

// Octal logs v the way HP documents ROM ids and select codes.
func (z *EntryZ) Octal(key string, v uint8) *EntryZ {
	return z.add(ZField{Type: FieldTypeOctal, Key: key, num: uint64(v)})
}

func (z *EntryZ) Int(key string, v int) *EntryZ {
	return z.add(ZField{Type: FieldTypeInt, Key: key, num: uint64(v)})
}

func (z *EntryZ) Uint(key string, v uint64) *EntryZ {
	return z.add(ZField{Type: FieldTypeUint, Key: key, num: v})
}

// Nanos logs a duration in bus nanoseconds.
func (z *EntryZ) Nanos(key string, ns uint64) *EntryZ {
	return z.add(ZField{Type: FieldTypeNanos, Key: key, num: ns})
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	f := ZField{Type: FieldTypeError, Key: key}
	if err != nil {
		f.obj = err
	}
	return z.add(f)
}

func (z *EntryZ) Stringer(key string, s fmt.Stringer) *EntryZ {
	return z.add(ZField{Type: FieldTypeStringer, Key: key, obj: s})
}

// End emits the entry and returns it to the pool.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	addContexts(z)
	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = z.mod.String()
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	e := logrus.StandardLogger().WithFields(fields)
	switch z.lvl {
	case DebugLevel:
		e.Debug(z.msg)
	case InfoLevel:
		e.Info(z.msg)
	case WarnLevel:
		e.Warn(z.msg)
	case ErrorLevel:
		e.Error(z.msg)
	case FatalLevel:
		e.Fatal(z.msg)
	case PanicLevel:
		e.Panic(z.msg)
	}

	z.zfbuf = [maxZFields]ZField{}
	entryPool.Put(z)
}

// A Context adds fields to every emitted entry (current bus cycle,
// scenario step, etc.).
type Context interface {
	AddLogContext(z *EntryZ)
}

var (
	ctxmu    sync.Mutex
	contexts []Context
)

func AddContext(c Context) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	contexts = append(contexts, c)
}

func RemoveContext(c Context) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for i := range contexts {
		if contexts[i] == c {
			contexts = append(contexts[:i], contexts[i+1:]...)
			return
		}
	}
}

func addContexts(z *EntryZ) {
	ctxmu.Lock()
	defer ctxmu.Unlock()
	for _, c := range contexts {
		c.AddLogContext(z)
	}
}

// SetOutputLevel sets the level of the underlying logger. Module masks are
// applied before it.
func SetOutputLevel(lvl Level) {
	logrus.SetLevel(logrus.Level(lvl))
}

// SetOutput redirects every log entry to w.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// Disable discards all log output, warnings included.
func Disable() {
	modDebugMask = 0
	logrus.SetOutput(io.Discard)
}
