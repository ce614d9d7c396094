package pickle

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/torchload/internal/tensor"
	"github.com/born-ml/torchload/internal/value"
)

// Pickler encodes one value graph into an instruction stream. Lists,
// dicts, objects and storages are memoized by identity, so shared
// references and cycles in the graph survive a round trip. A Pickler
// produces one stream and is then discarded.
type Pickler struct {
	buf  bytes.Buffer
	memo map[any]uint32

	storages    []*tensor.Storage
	storageKeys map[*tensor.Storage]string
}

// NewPickler creates a pickler for one instruction stream.
func NewPickler() *Pickler {
	return &Pickler{
		memo:        make(map[any]uint32),
		storageKeys: make(map[*tensor.Storage]string),
	}
}

// Dump encodes v and returns the finished stream.
func (p *Pickler) Dump(v value.Value) ([]byte, error) {
	p.buf.WriteByte(opProto)
	p.buf.WriteByte(Protocol)
	if err := p.pushValue(v); err != nil {
		return nil, err
	}
	p.buf.WriteByte(opStop)
	return p.buf.Bytes(), nil
}

// Storages returns every storage the stream references, in first-use
// order. The caller writes each as the record "<archive>/<key>" with the
// key from StorageKey.
func (p *Pickler) Storages() []*tensor.Storage {
	return p.storages
}

// StorageKey returns the record key assigned to a referenced storage.
func (p *Pickler) StorageKey(st *tensor.Storage) string {
	return p.storageKeys[st]
}

func (p *Pickler) pushValue(v value.Value) error {
	switch v.Kind() {
	case value.KindNone:
		p.buf.WriteByte(opNone)
	case value.KindBool:
		if v.Bool() {
			p.buf.WriteByte(opNewTrue)
		} else {
			p.buf.WriteByte(opNewFalse)
		}
	case value.KindInt:
		p.pushInt(v.Int())
	case value.KindFloat:
		p.buf.WriteByte(opBinFloat)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Float()))
		p.buf.Write(b[:])
	case value.KindString:
		p.pushString(v.Str())
	case value.KindList:
		return p.pushList(v.List())
	case value.KindTuple:
		return p.pushTuple(v.List())
	case value.KindDict:
		return p.pushDict(v.Dict())
	case value.KindTensor:
		return p.pushTensor(v.Tensor())
	case value.KindObject:
		return p.pushObject(v.Object())
	case value.KindStorage:
		return p.pushStorage(v.Storage())
	default:
		return fmt.Errorf("cannot encode %s value", v.Kind())
	}
	return nil
}

func (p *Pickler) pushInt(i int64) {
	switch {
	case i >= 0 && i < 1<<8:
		p.buf.WriteByte(opBinInt1)
		p.buf.WriteByte(byte(i))
	case i >= 0 && i < 1<<16:
		p.buf.WriteByte(opBinInt2)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(i))
		p.buf.Write(b[:])
	case i >= math.MinInt32 && i <= math.MaxInt32:
		p.buf.WriteByte(opBinInt)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(int32(i)))
		p.buf.Write(b[:])
	default:
		enc := encodeLong(i)
		p.buf.WriteByte(opLong1)
		p.buf.WriteByte(byte(len(enc)))
		p.buf.Write(enc)
	}
}

func (p *Pickler) pushString(s string) {
	p.buf.WriteByte(opBinUnicode)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	p.buf.Write(b[:])
	p.buf.WriteString(s)
}

func (p *Pickler) pushList(l *value.List) error {
	if p.pushMemoized(l) {
		return nil
	}
	p.buf.WriteByte(opEmptyList)
	p.memoize(l)
	if len(l.Elems) == 0 {
		return nil
	}
	// Memoized before the elements, so a self-referential list encodes as
	// a backreference instead of recursing forever.
	p.buf.WriteByte(opMark)
	for _, e := range l.Elems {
		if err := p.pushValue(e); err != nil {
			return err
		}
	}
	p.buf.WriteByte(opAppends)
	return nil
}

func (p *Pickler) pushTuple(l *value.List) error {
	if p.pushMemoized(l) {
		return nil
	}
	if len(l.Elems) == 0 {
		p.buf.WriteByte(opEmptyTuple)
		return nil
	}
	if len(l.Elems) > 3 {
		p.buf.WriteByte(opMark)
	}
	for _, e := range l.Elems {
		if err := p.pushValue(e); err != nil {
			return err
		}
	}
	switch len(l.Elems) {
	case 1:
		p.buf.WriteByte(opTuple1)
	case 2:
		p.buf.WriteByte(opTuple2)
	case 3:
		p.buf.WriteByte(opTuple3)
	default:
		p.buf.WriteByte(opTuple)
	}
	p.memoize(l)
	return nil
}

func (p *Pickler) pushDict(d *value.Dict) error {
	if p.pushMemoized(d) {
		return nil
	}
	p.buf.WriteByte(opEmptyDict)
	p.memoize(d)
	if d.Len() == 0 {
		return nil
	}
	p.buf.WriteByte(opMark)
	for _, e := range d.Entries {
		if err := p.pushValue(e.Key); err != nil {
			return err
		}
		if err := p.pushValue(e.Val); err != nil {
			return err
		}
	}
	p.buf.WriteByte(opSetItems)
	return nil
}

// pushObject writes the two-phase object encoding: construct an empty
// instance, memoize it, then BUILD it from its state. State is derived by
// the class's __getstate__ when it has one, or the attribute dict.
func (p *Pickler) pushObject(o *value.Object) error {
	if p.pushMemoized(o) {
		return nil
	}
	cls := o.Class()
	if err := p.pushGlobal(cls.Name); err != nil {
		return err
	}
	p.buf.WriteByte(opEmptyTuple)
	p.buf.WriteByte(opReduce)
	p.memoize(o)

	state, err := p.objectState(o)
	if err != nil {
		return err
	}
	if err := p.pushValue(state); err != nil {
		return err
	}
	p.buf.WriteByte(opBuild)
	return nil
}

func (p *Pickler) objectState(o *value.Object) (value.Value, error) {
	cls := o.Class()
	if cls.GetState != nil {
		state, err := cls.GetState(o)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s.__getstate__: %w", cls.Name, err)
		}
		return state, nil
	}
	d := value.NewDict()
	for i, attr := range cls.Attributes {
		d.SetString(attr.Name, o.Slot(i))
	}
	return value.FromDict(d), nil
}

func (p *Pickler) pushTensor(t *tensor.RawTensor) error {
	if p.pushMemoized(t) {
		return nil
	}
	if err := p.pushGlobal(builtinRebuildTensor); err != nil {
		return err
	}
	p.buf.WriteByte(opMark)
	if err := p.pushStorage(t.Storage()); err != nil {
		return err
	}
	p.pushInt(int64(t.Offset()))
	if err := p.pushIntTuple(t.Shape()); err != nil {
		return err
	}
	if err := p.pushIntTuple(t.Strides()); err != nil {
		return err
	}
	p.buf.WriteByte(opTuple)
	p.buf.WriteByte(opReduce)
	p.memoize(t)
	return nil
}

func (p *Pickler) pushIntTuple(dims []int) error {
	elems := make([]value.Value, len(dims))
	for i, d := range dims {
		elems[i] = value.Int(int64(d))
	}
	// Fresh list each call; deliberately not memoized as a shared ref.
	return p.pushTuple(value.NewList(elems...))
}

func (p *Pickler) pushStorage(st *tensor.Storage) error {
	if p.pushMemoized(st) {
		return nil
	}
	key, ok := p.storageKeys[st]
	if !ok {
		key = fmt.Sprintf("%d", len(p.storages))
		p.storages = append(p.storages, st)
		p.storageKeys[st] = key
	}
	pid := value.Tuple(
		value.Str("storage"),
		value.Str(st.DType.String()),
		value.Str(key),
		value.Str(st.Device.String()),
		value.Int(int64(st.NumEl)),
	)
	if err := p.pushValue(pid); err != nil {
		return err
	}
	p.buf.WriteByte(opBinPersID)
	p.memoize(st)
	return nil
}

func (p *Pickler) pushGlobal(qualified string) error {
	i := strings.LastIndexByte(qualified, '.')
	if i < 0 {
		return fmt.Errorf("class name %q is not qualified", qualified)
	}
	module, name := qualified[:i], qualified[i+1:]
	p.buf.WriteByte(opGlobal)
	p.buf.WriteString(module)
	p.buf.WriteByte('\n')
	p.buf.WriteString(name)
	p.buf.WriteByte('\n')
	return nil
}

func (p *Pickler) pushMemoized(key any) bool {
	id, ok := p.memo[key]
	if !ok {
		return false
	}
	if id < 1<<8 {
		p.buf.WriteByte(opBinGet)
		p.buf.WriteByte(byte(id))
	} else {
		p.buf.WriteByte(opLongBinGet)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], id)
		p.buf.Write(b[:])
	}
	return true
}

func (p *Pickler) memoize(key any) {
	id := uint32(len(p.memo))
	p.memo[key] = id
	if id < 1<<8 {
		p.buf.WriteByte(opBinPut)
		p.buf.WriteByte(byte(id))
	} else {
		p.buf.WriteByte(opLongBinPut)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], id)
		p.buf.Write(b[:])
	}
}

// encodeLong encodes an integer as minimal little-endian two's
// complement, the LONG1 payload format.
func encodeLong(v int64) []byte {
	if v == 0 {
		return nil
	}
	var b []byte
	for {
		b = append(b, byte(v))
		v >>= 8
		if (v == 0 && b[len(b)-1]&0x80 == 0) || (v == -1 && b[len(b)-1]&0x80 != 0) {
			break
		}
	}
	return b
}
