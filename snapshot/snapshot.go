package snapshot

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/abi"
	"github.com/wippyai/zend-abi/engine"
	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/frame"
	"github.com/wippyai/zend-abi/host"
	"github.com/wippyai/zend-abi/zval"
)

// Version of the snapshot encoding.
const Version = 1

// Value is the image of one argument slot.
type Value struct {
	Text     string `cbor:"4,keyasint,omitempty"`
	Bits     uint64 `cbor:"3,keyasint"`
	TypeInfo uint32 `cbor:"2,keyasint"`
	Type     uint8  `cbor:"1,keyasint"`
}

// Snapshot is a captured call frame.
type Snapshot struct {
	Profile     string  `cbor:"2,keyasint"`
	Function    string  `cbor:"4,keyasint,omitempty"`
	Header      []byte  `cbor:"5,keyasint"`
	Args        []Value `cbor:"6,keyasint"`
	HeaderSlots uint32  `cbor:"3,keyasint"`
	Version     uint8   `cbor:"1,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Capture records the frame ex with argc arguments.
func Capture(h host.Host, ex *frame.ExecuteData, argc uint32) (*Snapshot, error) {
	p := h.Profile()
	r := ex.Resolver()

	header, err := h.Memory().Read(ex.Base(), r.HeaderSlotCount()*p.Zval.Size)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindOutOfBounds, err, "read frame header")
	}

	s := &Snapshot{
		Version:     Version,
		Profile:     p.Name,
		HeaderSlots: r.HeaderSlotCount(),
		Function:    functionName(h, ex),
		Header:      append([]byte(nil), header...),
		Args:        make([]Value, 0, argc),
	}
	for i := uint32(0); i < argc; i++ {
		v, ok := ex.Argument(i)
		if !ok {
			return nil, errors.New(errors.PhaseSnapshot, errors.KindOutOfBounds).
				Detail("argument %d outside the region", i).
				Build()
		}
		raw := v.Raw()
		img := Value{Type: uint8(v.Type()), TypeInfo: raw.TypeInfo, Bits: raw.Value}
		if v.IsString() {
			img.Text, _ = v.Str()
			img.Bits = 0
		}
		s.Args = append(s.Args, img)
	}
	return s, nil
}

// functionName reads zend_function.common.function_name of the frame.
func functionName(h host.Host, ex *frame.ExecuteData) string {
	fn := ex.Function()
	if fn == 0 {
		return ""
	}
	p := h.Profile()
	ptr, err := p.ReadPtr(h.Memory(), fn+p.Function.Name)
	if err != nil || ptr == 0 {
		return ""
	}
	name := zval.FromRaw(h, zval.Raw{Value: ptr, TypeInfo: abi.TypeInfoInternedString})
	s, _ := name.Str()
	return s
}

// Restore enters the captured function in e with the captured arguments.
// The frame stays live until e.Leave.
func Restore(e *engine.Engine, s *Snapshot) (*frame.ExecuteData, error) {
	p := e.Profile()
	if s.Profile != p.Name {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindProfileMismatch).
			Detail("snapshot taken with %s, engine runs %s", s.Profile, p.Name).
			Build()
	}
	if got := frame.ResolverFor(p).HeaderSlotCount(); got != s.HeaderSlots {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindProfileMismatch).
			Detail("header slot count %d, engine has %d", s.HeaderSlots, got).
			Build()
	}

	args := make([]zval.Zval, 0, len(s.Args))
	defer func() {
		for _, a := range args {
			if a.IsString() {
				e.ReleaseString(p.PtrFromBits(a.Raw().Value))
			}
		}
	}()

	for i, img := range s.Args {
		v, err := restoreValue(e, img)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err,
				fmt.Sprintf("argument %d", i))
		}
		args = append(args, v)
	}
	return e.EnterFunction(s.Function, zval.Zval{}, args)
}

func restoreValue(e *engine.Engine, img Value) (zval.Zval, error) {
	switch abi.Type(img.Type) {
	case abi.TypeString:
		return zval.FromString(e, img.Text)
	case abi.TypeUndef, abi.TypeNull, abi.TypeFalse, abi.TypeTrue, abi.TypeLong, abi.TypeDouble:
		return zval.FromRaw(e, zval.Raw{Value: img.Bits, TypeInfo: img.TypeInfo}), nil
	}
	Logger().Debug("payload argument restored as null",
		zap.Stringer("type", abi.Type(img.Type)), zap.Uint64("ptr", img.Bits))
	return zval.New(e), nil
}

// Marshal encodes s as canonical CBOR.
func Marshal(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// Unmarshal decodes a snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseSnapshot, errors.KindInvalidData, err, "decode")
	}
	if s.Version != Version {
		return nil, errors.New(errors.PhaseSnapshot, errors.KindUnsupported).
			Value(s.Version).
			Detail("snapshot version %d", s.Version).
			Build()
	}
	return &s, nil
}

// WriteFile encodes s to path.
func WriteFile(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
