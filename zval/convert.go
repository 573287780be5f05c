package zval

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/zend-abi/abi"
)

func doubleBits(f float64) uint64     { return math.Float64bits(f) }
func doubleFromBits(b uint64) float64 { return math.Float64frombits(b) }

// Long returns the integer payload.
func (z Zval) Long() (int64, bool) {
	if !z.IsLong() {
		return 0, false
	}
	return z.long(), true
}

// Bool returns the boolean payload.
func (z Zval) Bool() (bool, bool) {
	switch z.Type() {
	case abi.TypeTrue:
		return true, true
	case abi.TypeFalse:
		return false, true
	}
	return false, false
}

// Double returns the floating payload. Long values are widened.
func (z Zval) Double() (float64, bool) {
	switch z.Type() {
	case abi.TypeDouble:
		return doubleFromBits(z.raw.Value), true
	case abi.TypeLong:
		return float64(z.long()), true
	}
	return 0, false
}

// Str returns the string payload. Long and Double values are rendered the
// way the engine converts them to strings.
func (z Zval) Str() (string, bool) {
	switch z.Type() {
	case abi.TypeString:
		return z.readString()
	case abi.TypeLong:
		return strconv.FormatInt(z.long(), 10), true
	case abi.TypeDouble:
		return formatDouble(doubleFromBits(z.raw.Value), z.precision()), true
	}
	return "", false
}

func (z Zval) readString() (string, bool) {
	ptr := z.ptr()
	if z.h == nil || ptr == 0 || ptr > math.MaxUint32 {
		return "", false
	}
	p := z.h.Profile()
	mem := z.h.Memory()
	base := uint32(ptr)

	n, err := p.ReadPtr(mem, base+p.String.Len)
	if err != nil || n > math.MaxUint32 {
		return "", false
	}
	data, err := mem.Read(base+p.String.Val, uint32(n))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (z Zval) Resource() (ResourceHandle, bool) {
	if !z.IsResource() {
		return 0, false
	}
	return ResourceHandle(z.ptr()), true
}

func (z Zval) Array() (ArrayHandle, bool) {
	if !z.IsArray() {
		return 0, false
	}
	return ArrayHandle(z.ptr()), true
}

func (z Zval) Object() (ObjectHandle, bool) {
	if !z.IsObject() {
		return 0, false
	}
	return ObjectHandle(z.ptr()), true
}

// ReferenceHandle returns the zend_reference address of a Reference value.
func (z Zval) ReferenceHandle() (ReferenceHandle, bool) {
	if !z.IsReference() {
		return 0, false
	}
	return ReferenceHandle(z.ptr()), true
}

// Reference returns the value held by a zend_reference.
func (z Zval) Reference() (Zval, bool) {
	ref, ok := z.ReferenceHandle()
	if !ok || z.h == nil || ref == 0 || ref > math.MaxUint32 {
		return Zval{}, false
	}
	inner, err := Load(z.h, uint32(ref)+z.h.Profile().Reference.Val)
	if err != nil {
		return Zval{}, false
	}
	return inner, true
}

func (z Zval) precision() int {
	if z.h == nil || z.h.Profile().Precision <= 0 {
		return abi.DefaultPrecision
	}
	return z.h.Profile().Precision
}

// formatDouble renders f as the engine's "%.*G" conversion does.
func formatDouble(f float64, precision int) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}
	if precision < 1 {
		precision = 1
	}

	s := strconv.FormatFloat(f, 'e', precision-1, 64)
	mant, expStr, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expStr)

	var b strings.Builder
	if mant[0] == '-' {
		b.WriteByte('-')
		mant = mant[1:]
	}
	digits := strings.TrimRight(strings.Replace(mant, ".", "", 1), "0")
	if digits == "" {
		digits = "0"
	}

	switch {
	case exp < -4 || exp >= precision:
		b.WriteByte(digits[0])
		b.WriteByte('.')
		if len(digits) > 1 {
			b.WriteString(digits[1:])
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('E')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		b.WriteString(strconv.Itoa(exp))
	case exp < 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -exp-1))
		b.WriteString(digits)
	case len(digits) <= exp+1:
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", exp+1-len(digits)))
	default:
		b.WriteString(digits[:exp+1])
		b.WriteByte('.')
		b.WriteString(digits[exp+1:])
	}
	return b.String()
}
