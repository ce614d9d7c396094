package pickle

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/value"
)

// TypeResolver binds a qualified type name to its class descriptor.
type TypeResolver interface {
	Resolve(qualifiedName string) (*value.Class, error)
}

// InstanceBuilder materializes object instances. New allocates an empty,
// addressable instance; Restore later populates it from recorded state.
// The split is what allows an instance's own state to refer back to it.
type InstanceBuilder interface {
	New(cls *value.Class) (*value.Object, error)
	Restore(obj *value.Object, state value.Value) error
}

// RecordReader fetches an auxiliary record of the current archive by its
// relative name, e.g. a tensor storage blob.
type RecordReader func(name string) ([]byte, error)

// Config wires an Unpickler to its collaborators for one archive read.
type Config struct {
	Archive    string
	Resolver   TypeResolver
	Builder    InstanceBuilder
	ReadRecord RecordReader
	Device     *tensor.Device // applied to every materialized tensor when set
}

// Unpickler decodes one instruction stream into a value graph. One
// instance is built per archive read and discarded; it is not reusable
// and not safe for concurrent use.
type Unpickler struct {
	cfg Config

	r   io.Reader
	off int64

	stack    []value.Value
	marks    []int
	memo     []value.Value
	storages map[string]*tensor.Storage
}

// NewUnpickler creates an unpickler reading one archive's instruction
// stream from r.
func NewUnpickler(r io.Reader, cfg Config) *Unpickler {
	return &Unpickler{
		cfg:      cfg,
		r:        r,
		storages: make(map[string]*tensor.Storage),
	}
}

// Parse runs the stack machine to completion and returns the root value.
func (u *Unpickler) Parse() (value.Value, error) {
	for {
		opOff := u.off
		op, err := u.readByte()
		if err != nil {
			if err == io.EOF {
				return value.Value{}, u.malformedAt(opOff, "unexpected end of stream")
			}
			return value.Value{}, fmt.Errorf("read opcode: %w", err)
		}

		done, err := u.execute(op, opOff)
		if err != nil {
			return value.Value{}, err
		}
		if done {
			return u.pop(opOff)
		}
	}
}

//nolint:gocyclo // One opcode per case keeps the dispatch flat and auditable.
func (u *Unpickler) execute(op byte, opOff int64) (done bool, err error) {
	switch op {
	case opProto:
		ver, err := u.readByte()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated protocol marker")
		}
		if ver > Protocol {
			return false, u.malformedAt(opOff, fmt.Sprintf("unsupported protocol %d", ver))
		}

	case opStop:
		return true, nil

	case opNone:
		u.push(value.None())
	case opNewTrue:
		u.push(value.Bool(true))
	case opNewFalse:
		u.push(value.Bool(false))

	case opBinInt:
		n, err := u.readUint32()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated int")
		}
		u.push(value.Int(int64(int32(n))))
	case opBinInt1:
		b, err := u.readByte()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated int")
		}
		u.push(value.Int(int64(b)))
	case opBinInt2:
		buf, err := u.readN(2)
		if err != nil {
			return false, u.malformedAt(opOff, "truncated int")
		}
		u.push(value.Int(int64(binary.LittleEndian.Uint16(buf))))
	case opLong1:
		n, err := u.readByte()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated long")
		}
		if n > 8 {
			return false, u.malformedAt(opOff, fmt.Sprintf("long of %d bytes exceeds int64", n))
		}
		buf, err := u.readN(int(n))
		if err != nil {
			return false, u.malformedAt(opOff, "truncated long")
		}
		u.push(value.Int(decodeLong(buf)))

	case opBinFloat:
		buf, err := u.readN(8)
		if err != nil {
			return false, u.malformedAt(opOff, "truncated float")
		}
		u.push(value.Float(math.Float64frombits(binary.BigEndian.Uint64(buf))))

	case opBinUnicode:
		n, err := u.readUint32()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated string length")
		}
		buf, err := u.readN(int(n))
		if err != nil {
			return false, u.malformedAt(opOff, "truncated string")
		}
		if !utf8.Valid(buf) {
			return false, u.malformedAt(opOff, "string is not valid UTF-8")
		}
		u.push(value.Str(string(buf)))

	case opEmptyList:
		u.push(value.FromList(value.NewList()))
	case opEmptyDict:
		u.push(value.FromDict(value.NewDict()))
	case opEmptyTuple:
		u.push(value.Tuple())

	case opMark:
		u.marks = append(u.marks, len(u.stack))

	case opTuple:
		items, err := u.popMark(opOff)
		if err != nil {
			return false, err
		}
		u.push(value.FromTuple(value.NewList(items...)))
	case opTuple1, opTuple2, opTuple3:
		n := int(op-opTuple1) + 1
		items, err := u.popN(n, opOff)
		if err != nil {
			return false, err
		}
		u.push(value.FromTuple(value.NewList(items...)))

	case opAppend:
		v, err := u.pop(opOff)
		if err != nil {
			return false, err
		}
		top, err := u.top(opOff)
		if err != nil {
			return false, err
		}
		if top.Kind() != value.KindList {
			return false, u.malformedAt(opOff, fmt.Sprintf("APPEND onto %s", top.Kind()))
		}
		top.List().Elems = append(top.List().Elems, v)
	case opAppends:
		items, err := u.popMark(opOff)
		if err != nil {
			return false, err
		}
		top, err := u.top(opOff)
		if err != nil {
			return false, err
		}
		if top.Kind() != value.KindList {
			return false, u.malformedAt(opOff, fmt.Sprintf("APPENDS onto %s", top.Kind()))
		}
		top.List().Elems = append(top.List().Elems, items...)

	case opSetItem:
		kv, err := u.popN(2, opOff)
		if err != nil {
			return false, err
		}
		top, err := u.top(opOff)
		if err != nil {
			return false, err
		}
		if top.Kind() != value.KindDict {
			return false, u.malformedAt(opOff, fmt.Sprintf("SETITEM onto %s", top.Kind()))
		}
		top.Dict().Set(kv[0], kv[1])
	case opSetItems:
		items, err := u.popMark(opOff)
		if err != nil {
			return false, err
		}
		if len(items)%2 != 0 {
			return false, u.malformedAt(opOff, "SETITEMS with odd number of stack items")
		}
		top, err := u.top(opOff)
		if err != nil {
			return false, err
		}
		if top.Kind() != value.KindDict {
			return false, u.malformedAt(opOff, fmt.Sprintf("SETITEMS onto %s", top.Kind()))
		}
		for i := 0; i < len(items); i += 2 {
			top.Dict().Set(items[i], items[i+1])
		}

	case opBinPut:
		id, err := u.readByte()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated memo id")
		}
		return false, u.memoize(uint32(id), opOff)
	case opLongBinPut:
		id, err := u.readUint32()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated memo id")
		}
		return false, u.memoize(id, opOff)

	case opBinGet:
		id, err := u.readByte()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated memo id")
		}
		return false, u.pushMemo(uint32(id), opOff)
	case opLongBinGet:
		id, err := u.readUint32()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated memo id")
		}
		return false, u.pushMemo(id, opOff)

	case opGlobal:
		module, err := u.readLine()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated global")
		}
		name, err := u.readLine()
		if err != nil {
			return false, u.malformedAt(opOff, "truncated global")
		}
		return false, u.pushGlobal(module+"."+name)

	case opBinPersID:
		pid, err := u.pop(opOff)
		if err != nil {
			return false, err
		}
		return false, u.resolvePersistentID(pid, opOff)

	case opReduce:
		args, err := u.pop(opOff)
		if err != nil {
			return false, err
		}
		callable, err := u.pop(opOff)
		if err != nil {
			return false, err
		}
		return false, u.reduce(callable, args, opOff)

	case opBuild:
		state, err := u.pop(opOff)
		if err != nil {
			return false, err
		}
		target, err := u.top(opOff)
		if err != nil {
			return false, err
		}
		if target.Kind() != value.KindObject {
			return false, u.malformedAt(opOff, fmt.Sprintf("BUILD on %s", target.Kind()))
		}
		if err := u.cfg.Builder.Restore(target.Object(), state); err != nil {
			return false, err
		}

	default:
		return false, u.malformedAt(opOff, fmt.Sprintf("unknown opcode 0x%02x", op))
	}
	return false, nil
}

func (u *Unpickler) pushGlobal(qualified string) error {
	switch qualified {
	case builtinRebuildTensor, builtinOrderedDict:
		u.push(value.Builtin(qualified))
		return nil
	default:
		cls, err := u.cfg.Resolver.Resolve(qualified)
		if err != nil {
			return err
		}
		u.push(value.FromClass(cls))
		return nil
	}
}

// resolvePersistentID decodes the storage description tuple
// ("storage", <dtype>, <record key>, <location>, <element count>) and
// pushes the storage, fetching and caching its record so tensors sharing
// one storage share one buffer.
func (u *Unpickler) resolvePersistentID(pid value.Value, opOff int64) error {
	if pid.Kind() != value.KindTuple || pid.List().Len() != 5 {
		return u.malformedAt(opOff, "persistent id is not a 5-tuple")
	}
	elems := pid.List().Elems
	for _, i := range []int{0, 1, 2, 3} {
		if elems[i].Kind() != value.KindString {
			return u.malformedAt(opOff, "persistent id field is not a string")
		}
	}
	if elems[0].Str() != "storage" {
		return u.malformedAt(opOff, fmt.Sprintf("unknown persistent id kind %q", elems[0].Str()))
	}
	if elems[4].Kind() != value.KindInt {
		return u.malformedAt(opOff, "persistent id element count is not an int")
	}

	key := elems[2].Str()
	if st, ok := u.storages[key]; ok {
		u.push(value.FromStorage(st))
		return nil
	}

	dtype, ok := tensor.ParseDataType(elems[1].Str())
	if !ok {
		return u.malformedAt(opOff, fmt.Sprintf("unknown storage type %q", elems[1].Str()))
	}
	device, err := tensor.ParseDevice(elems[3].Str())
	if err != nil {
		return u.malformedAt(opOff, err.Error())
	}
	data, err := u.cfg.ReadRecord(key)
	if err != nil {
		return fmt.Errorf("storage %q: %w", key, err)
	}

	st := &tensor.Storage{
		Key:    key,
		DType:  dtype,
		Device: device,
		NumEl:  int(elems[4].Int()),
		Data:   data,
	}
	u.storages[key] = st
	u.push(value.FromStorage(st))
	return nil
}

func (u *Unpickler) reduce(callable, args value.Value, opOff int64) error {
	if args.Kind() != value.KindTuple {
		return u.malformedAt(opOff, fmt.Sprintf("REDUCE arguments are %s, not a tuple", args.Kind()))
	}
	switch callable.Kind() {
	case value.KindClass:
		if args.List().Len() != 0 {
			return u.malformedAt(opOff, "class construction takes no arguments before BUILD")
		}
		obj, err := u.cfg.Builder.New(callable.Class())
		if err != nil {
			return err
		}
		u.push(value.FromObject(obj))
		return nil
	case value.KindBuiltin:
		switch callable.BuiltinName() {
		case builtinOrderedDict:
			u.push(value.FromDict(value.NewDict()))
			return nil
		case builtinRebuildTensor:
			return u.rebuildTensor(args, opOff)
		}
		return u.malformedAt(opOff, fmt.Sprintf("unknown builtin %q", callable.BuiltinName()))
	default:
		return u.malformedAt(opOff, fmt.Sprintf("REDUCE on %s", callable.Kind()))
	}
}

// rebuildTensor views a storage as a shaped tensor. Arguments follow
// _rebuild_tensor_v2: (storage, storage offset, shape, stride); trailing
// arguments such as requires_grad are accepted and ignored.
func (u *Unpickler) rebuildTensor(args value.Value, opOff int64) error {
	elems := args.List().Elems
	if len(elems) < 4 {
		return u.malformedAt(opOff, fmt.Sprintf("tensor rebuild takes 4 arguments, got %d", len(elems)))
	}
	if elems[0].Kind() != value.KindStorage {
		return u.malformedAt(opOff, fmt.Sprintf("tensor rebuild on %s, not a storage", elems[0].Kind()))
	}
	if elems[1].Kind() != value.KindInt {
		return u.malformedAt(opOff, "tensor storage offset is not an int")
	}
	shape, err := u.intSeq(elems[2], opOff)
	if err != nil {
		return err
	}
	stride, err := u.intSeq(elems[3], opOff)
	if err != nil {
		return err
	}

	t, err := tensor.Materialize(elems[0].Storage(), int(elems[1].Int()), shape, stride, u.cfg.Device)
	if err != nil {
		return fmt.Errorf("archive %q: %w", u.cfg.Archive, err)
	}
	u.push(value.FromTensor(t))
	return nil
}

func (u *Unpickler) intSeq(v value.Value, opOff int64) ([]int, error) {
	if v.Kind() != value.KindTuple && v.Kind() != value.KindList {
		return nil, u.malformedAt(opOff, fmt.Sprintf("expected int sequence, got %s", v.Kind()))
	}
	out := make([]int, v.List().Len())
	for i, e := range v.List().Elems {
		if e.Kind() != value.KindInt {
			return nil, u.malformedAt(opOff, fmt.Sprintf("expected int sequence, got %s element", e.Kind()))
		}
		out[i] = int(e.Int())
	}
	return out, nil
}

// Memo table. Ids are assigned densely in stream order; a put out of
// order or a get of an unassigned id is a stream fault.

func (u *Unpickler) memoize(id uint32, opOff int64) error {
	top, err := u.top(opOff)
	if err != nil {
		return err
	}
	if int(id) != len(u.memo) {
		return u.malformedAt(opOff, fmt.Sprintf("backreference id %d out of order, want %d", id, len(u.memo)))
	}
	u.memo = append(u.memo, top)
	return nil
}

func (u *Unpickler) pushMemo(id uint32, opOff int64) error {
	if int(id) >= len(u.memo) {
		return u.malformedAt(opOff, fmt.Sprintf("undefined backreference id %d", id))
	}
	u.push(u.memo[id])
	return nil
}

// Stack primitives.

func (u *Unpickler) push(v value.Value) {
	u.stack = append(u.stack, v)
}

func (u *Unpickler) pop(opOff int64) (value.Value, error) {
	if len(u.stack) == 0 {
		return value.Value{}, u.malformedAt(opOff, "stack underflow")
	}
	v := u.stack[len(u.stack)-1]
	u.stack = u.stack[:len(u.stack)-1]
	return v, nil
}

func (u *Unpickler) popN(n int, opOff int64) ([]value.Value, error) {
	if len(u.stack) < n {
		return nil, u.malformedAt(opOff, "stack underflow")
	}
	items := make([]value.Value, n)
	copy(items, u.stack[len(u.stack)-n:])
	u.stack = u.stack[:len(u.stack)-n]
	return items, nil
}

func (u *Unpickler) popMark(opOff int64) ([]value.Value, error) {
	if len(u.marks) == 0 {
		return nil, u.malformedAt(opOff, "no mark on stack")
	}
	mark := u.marks[len(u.marks)-1]
	u.marks = u.marks[:len(u.marks)-1]
	items := make([]value.Value, len(u.stack)-mark)
	copy(items, u.stack[mark:])
	u.stack = u.stack[:mark]
	return items, nil
}

func (u *Unpickler) top(opOff int64) (value.Value, error) {
	if len(u.stack) == 0 {
		return value.Value{}, u.malformedAt(opOff, "stack underflow")
	}
	return u.stack[len(u.stack)-1], nil
}

// Byte source. Reads are counted so stream faults report their offset.

func (u *Unpickler) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(u.r, b[:]); err != nil {
		return 0, err
	}
	u.off++
	return b[0], nil
}

func (u *Unpickler) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(u.r, buf); err != nil {
		return nil, err
	}
	u.off += int64(n)
	return buf, nil
}

func (u *Unpickler) readUint32() (uint32, error) {
	buf, err := u.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (u *Unpickler) readLine() (string, error) {
	var line []byte
	for {
		b, err := u.readByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			return string(line), nil
		}
		line = append(line, b)
	}
}

func (u *Unpickler) malformedAt(off int64, reason string) error {
	return &MalformedArchiveError{Archive: u.cfg.Archive, Offset: off, Reason: reason}
}

// decodeLong decodes a little-endian two's-complement integer of up to
// eight bytes.
func decodeLong(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var v uint64
	for i, by := range b {
		v |= uint64(by) << (8 * i)
	}
	// Sign-extend from the top recorded byte.
	if b[len(b)-1]&0x80 != 0 {
		for i := len(b); i < 8; i++ {
			v |= 0xff << (8 * i)
		}
	}
	return int64(v)
}
