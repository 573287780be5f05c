package zval

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/host"
)

// Handles are payload addresses inside the host's byte region.
type (
	ArrayHandle     uint64
	ObjectHandle    uint64
	ResourceHandle  uint64
	ReferenceHandle uint64
)

// Raw is the bit image of a zval.
type Raw struct {
	Value    uint64
	TypeInfo uint32
	U2       uint32
}

// Zval is a tagged value bound to the host that owns its payload.
// The zero Zval is Undef and has no host.
type Zval struct {
	h   host.Host
	raw Raw
}

// New returns a Null value.
func New(h host.Host) Zval {
	return Zval{h: h, raw: Raw{TypeInfo: uint32(abi.TypeNull)}}
}

// FromRaw wraps a bit image.
func FromRaw(h host.Host, raw Raw) Zval {
	return Zval{h: h, raw: raw}
}

func FromLong(h host.Host, v int64) Zval {
	z := New(h)
	z.SetLong(v)
	return z
}

func FromBool(h host.Host, b bool) Zval {
	z := New(h)
	z.SetBool(b)
	return z
}

func FromDouble(h host.Host, f float64) Zval {
	z := New(h)
	z.SetDouble(f)
	return z
}

// FromString creates a request-lifetime string value.
func FromString(h host.Host, s string) (Zval, error) {
	z := New(h)
	if err := z.SetString(s); err != nil {
		return Zval{}, err
	}
	return z, nil
}

// Load reads the zval stored at addr.
func Load(h host.Host, addr uint32) (Zval, error) {
	if h == nil {
		return Zval{}, errors.NilPointer(errors.PhaseMemory, "host")
	}
	p := h.Profile()
	mem := h.Memory()
	if uint64(addr)+uint64(p.Zval.Size) > math.MaxUint32 {
		return Zval{}, errors.OutOfBounds(errors.PhaseMemory, addr, p.Zval.Size, math.MaxUint32)
	}

	value, err := mem.ReadU64(addr + p.Zval.Value)
	if err != nil {
		return Zval{}, err
	}
	typeInfo, err := mem.ReadU32(addr + p.Zval.TypeInfo)
	if err != nil {
		return Zval{}, err
	}
	u2, err := mem.ReadU32(addr + p.Zval.U2)
	if err != nil {
		return Zval{}, err
	}
	return Zval{h: h, raw: Raw{Value: value, TypeInfo: typeInfo, U2: u2}}, nil
}

// Store writes the value to addr.
func (z Zval) Store(addr uint32) error {
	if z.h == nil {
		return errors.NilPointer(errors.PhaseMemory, "host")
	}
	p := z.h.Profile()
	mem := z.h.Memory()
	if uint64(addr)+uint64(p.Zval.Size) > math.MaxUint32 {
		return errors.OutOfBounds(errors.PhaseMemory, addr, p.Zval.Size, math.MaxUint32)
	}

	if err := mem.WriteU64(addr+p.Zval.Value, z.raw.Value); err != nil {
		return err
	}
	if err := mem.WriteU32(addr+p.Zval.TypeInfo, z.raw.TypeInfo); err != nil {
		return err
	}
	return mem.WriteU32(addr+p.Zval.U2, z.raw.U2)
}

// Host returns the host the value is bound to.
func (z Zval) Host() host.Host { return z.h }

// Raw returns the bit image.
func (z Zval) Raw() Raw { return z.raw }

// Type returns the discriminant.
func (z Zval) Type() abi.Type { return abi.Type(z.raw.TypeInfo) }

// TypeInfo returns the full u1.type_info word.
func (z Zval) TypeInfo() uint32 { return z.raw.TypeInfo }

func (z Zval) IsUndef() bool        { return z.Type() == abi.TypeUndef }
func (z Zval) IsNull() bool         { return z.Type() == abi.TypeNull }
func (z Zval) IsTrue() bool         { return z.Type() == abi.TypeTrue }
func (z Zval) IsFalse() bool        { return z.Type() == abi.TypeFalse }
func (z Zval) IsBool() bool         { return z.IsTrue() || z.IsFalse() }
func (z Zval) IsLong() bool         { return z.Type() == abi.TypeLong }
func (z Zval) IsDouble() bool       { return z.Type() == abi.TypeDouble }
func (z Zval) IsString() bool       { return z.Type() == abi.TypeString }
func (z Zval) IsArray() bool        { return z.Type() == abi.TypeArray }
func (z Zval) IsObject() bool       { return z.Type() == abi.TypeObject }
func (z Zval) IsResource() bool     { return z.Type() == abi.TypeResource }
func (z Zval) IsReference() bool    { return z.Type() == abi.TypeReference }
func (z Zval) IsCallableType() bool { return z.Type() == abi.TypeCallable }

// IsCallable asks the host whether the value can be invoked.
func (z Zval) IsCallable() bool {
	if z.h == nil {
		return false
	}
	alloc := z.h.Allocator()
	p := z.h.Profile()

	scratch := host.NewAllocationList()
	defer scratch.FreeAndRelease(alloc)

	addr, err := scratch.Alloc(alloc, p.Zval.Size, p.Alignment)
	if err != nil {
		Logger().Debug("callability slot allocation failed")
		return false
	}
	if err := z.Store(addr); err != nil {
		return false
	}
	return z.h.IsCallable(addr)
}

// ptr decodes the value word as a payload pointer.
func (z Zval) ptr() uint64 {
	if z.h == nil {
		return z.raw.Value
	}
	return z.h.Profile().PtrFromBits(z.raw.Value)
}

func (z Zval) long() int64 {
	if z.h == nil {
		return int64(z.raw.Value)
	}
	return z.h.Profile().LongFromBits(z.raw.Value)
}

func (z *Zval) setPtr(typeInfo uint32, ptr uint64) {
	z.raw.Value = ptr
	z.raw.TypeInfo = typeInfo
}

func (z *Zval) SetNull() {
	z.raw.Value = 0
	z.raw.TypeInfo = uint32(abi.TypeNull)
}

func (z *Zval) SetBool(b bool) {
	z.raw.Value = 0
	if b {
		z.raw.TypeInfo = uint32(abi.TypeTrue)
	} else {
		z.raw.TypeInfo = uint32(abi.TypeFalse)
	}
}

// SetLong stores v. On builds with a 32-bit zend_long the value is truncated.
func (z *Zval) SetLong(v int64) {
	if z.h != nil {
		z.raw.Value = z.h.Profile().LongBits(v)
	} else {
		z.raw.Value = uint64(v)
	}
	z.raw.TypeInfo = uint32(abi.TypeLong)
}

func (z *Zval) SetDouble(f float64) {
	z.raw.Value = doubleBits(f)
	z.raw.TypeInfo = uint32(abi.TypeDouble)
}

// SetString stores a new request-lifetime string.
func (z *Zval) SetString(s string) error {
	return z.setString(s, false)
}

// SetPersistentString stores a new string that outlives the request.
func (z *Zval) SetPersistentString(s string) error {
	return z.setString(s, true)
}

// SetInternedString stores an interned string.
func (z *Zval) SetInternedString(s string) error {
	if z.h == nil {
		return errNoHost()
	}
	ptr, err := z.h.NewInternedString(s)
	if err != nil {
		return err
	}
	z.setPtr(abi.TypeInfoInternedString, ptr)
	return nil
}

func (z *Zval) setString(s string, persistent bool) error {
	if z.h == nil {
		return errNoHost()
	}
	ptr, err := z.h.NewString(s, persistent)
	if err != nil {
		return err
	}
	z.setPtr(abi.TypeInfoStringEx, ptr)
	return nil
}

func (z *Zval) SetResource(r ResourceHandle)   { z.setPtr(abi.TypeInfoResourceEx, uint64(r)) }
func (z *Zval) SetObject(o ObjectHandle)       { z.setPtr(abi.TypeInfoObjectEx, uint64(o)) }
func (z *Zval) SetArray(a ArrayHandle)         { z.setPtr(abi.TypeInfoArrayEx, uint64(a)) }
func (z *Zval) SetReference(r ReferenceHandle) { z.setPtr(abi.TypeInfoReferenceEx, uint64(r)) }

func errNoHost() error {
	return errors.New(errors.PhaseEngine, errors.KindNotInitialized).
		Detail("value is not bound to a host").
		Build()
}

// String renders the value for logs.
func (z Zval) String() string {
	switch z.Type() {
	case abi.TypeUndef, abi.TypeNull, abi.TypeTrue, abi.TypeFalse:
		return z.Type().String()
	case abi.TypeLong:
		return "long(" + strconv.FormatInt(z.long(), 10) + ")"
	case abi.TypeDouble:
		d, _ := z.Double()
		return "double(" + formatDouble(d, z.precision()) + ")"
	case abi.TypeString:
		if s, ok := z.Str(); ok {
			return "string(" + strconv.Quote(s) + ")"
		}
		return fmt.Sprintf("string(%#x)", z.ptr())
	case abi.TypeReference:
		if inner, ok := z.Reference(); ok {
			return "reference(" + inner.String() + ")"
		}
	}
	return fmt.Sprintf("%s(%#x)", z.Type(), z.ptr())
}
