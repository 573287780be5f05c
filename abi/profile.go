package abi

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/zend-abi/errors"
	"github.com/wippyai/zend-abi/layout"
)

//go:embed profiles/*.toml
var builtinFS embed.FS

// DefaultPrecision is the engine's default precision ini value.
const DefaultPrecision = 14

// ZvalLayout locates the parts of a zval.
type ZvalLayout struct {
	Size     uint32
	Value    uint32
	LongSize uint32
	TypeInfo uint32
	U2       uint32
}

// ExecuteDataLayout locates the zend_execute_data fields the core reads.
type ExecuteDataLayout struct {
	Size uint32
	Func uint32
	This uint32
}

// StringLayout locates zend_string fields.
type StringLayout struct {
	Size     uint32
	Refcount uint32
	TypeInfo uint32
	Hash     uint32
	Len      uint32
	Val      uint32
}

// FunctionLayout locates zend_function common fields.
type FunctionLayout struct {
	Size    uint32
	Type    uint32
	Name    uint32
	Scope   uint32
	NumArgs uint32
}

// ClassLayout locates the leading zend_class_entry fields.
type ClassLayout struct {
	Size     uint32
	Type     uint32
	Name     uint32
	Refcount uint32
}

// ObjectLayout locates zend_object fields.
type ObjectLayout struct {
	Size     uint32
	Refcount uint32
	TypeInfo uint32
	Handle   uint32
	Class    uint32
}

// ResourceLayout locates zend_resource fields.
type ResourceLayout struct {
	Size     uint32
	Refcount uint32
	TypeInfo uint32
	Handle   uint32
	Type     uint32
	Ptr      uint32
}

// ReferenceLayout locates zend_reference fields.
type ReferenceLayout struct {
	Size     uint32
	Refcount uint32
	TypeInfo uint32
	Val      uint32
}

// ArrayLayout locates zend_array fields.
type ArrayLayout struct {
	Size        uint32
	Refcount    uint32
	TypeInfo    uint32
	NumElements uint32
}

// Profile is the resolved memory layout of one engine build.
// A Profile is immutable after loading and safe to share.
type Profile struct {
	structs map[string]layout.Info

	Name          string
	Description   string
	Reference     ReferenceLayout
	String        StringLayout
	Resource      ResourceLayout
	Object        ObjectLayout
	Array         ArrayLayout
	Function      FunctionLayout
	Class         ClassLayout
	Zval          ZvalLayout
	ExecuteData   ExecuteDataLayout
	AlignmentMask int64
	Precision     int
	PointerSize   uint32
	Alignment     uint32
}

type profileFile struct {
	Name        string             `toml:"name"`
	Description string             `toml:"description"`
	Structs     []layout.StructDef `toml:"structs"`
	Allocator   struct {
		Alignment     uint32 `toml:"alignment"`
		AlignmentMask int64  `toml:"alignment_mask"`
	} `toml:"allocator"`
	Conversion struct {
		Precision int `toml:"precision"`
	} `toml:"conversion"`
	PointerSize uint32 `toml:"pointer_size"`
}

// Parse decodes and validates a profile from TOML.
func Parse(data []byte) (*Profile, error) {
	var f profileFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseProfile, errors.KindInvalidData, err, "decode profile")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseProfile, errors.KindInvalidData).
			Value(keys).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	return build(&f)
}

// Load reads a profile file from disk.
func Load(filename string) (*Profile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filename, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filename, err)
	}
	Logger().Debug("profile loaded", zap.String("name", p.Name), zap.String("file", filename))
	return p, nil
}

var (
	builtinMu    sync.Mutex
	builtinCache = make(map[string]*Profile)
)

// Builtin returns the embedded profile with the given name. The result is
// parsed once and shared.
func Builtin(name string) (*Profile, error) {
	builtinMu.Lock()
	defer builtinMu.Unlock()

	if p, ok := builtinCache[name]; ok {
		return p, nil
	}
	data, err := builtinFS.ReadFile(path.Join("profiles", name+".toml"))
	if err != nil {
		return nil, errors.NotFound(errors.PhaseProfile, "builtin profile", name)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("builtin profile %s: %w", name, err)
	}
	builtinCache[name] = p
	Logger().Debug("builtin profile loaded", zap.String("name", name))
	return p, nil
}

// MustBuiltin is Builtin for names known to exist; it panics otherwise.
func MustBuiltin(name string) *Profile {
	p, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Builtins lists the embedded profile names in sorted order.
func Builtins() []string {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}

// Struct returns the computed layout of a described struct.
func (p *Profile) Struct(name string) (layout.Info, bool) {
	info, ok := p.structs[name]
	return info, ok
}

// StructNames returns the described struct names in sorted order.
func (p *Profile) StructNames() []string {
	names := make([]string, 0, len(p.structs))
	for name := range p.structs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Offset returns the offset of a dotted field path inside a struct.
func (p *Profile) Offset(structName, field string) (uint32, bool) {
	info, ok := p.structs[structName]
	if !ok {
		return 0, false
	}
	off, ok := info.FieldOffs[field]
	return off, ok
}

// AlignedSize is ZEND_MM_ALIGNED_SIZE for this build.
func (p *Profile) AlignedSize(raw uint32) uint32 {
	return layout.AlignedSizeMask(raw, p.Alignment, p.AlignmentMask)
}

// StringAllocSize is _ZSTR_STRUCT_SIZE: header, n bytes and a terminating NUL.
func (p *Profile) StringAllocSize(n uint32) uint32 {
	return p.AlignedSize(p.String.Val + n + 1)
}

func build(f *profileFile) (*Profile, error) {
	if f.Name == "" {
		return nil, errors.InvalidInput(errors.PhaseProfile, "profile has no name")
	}
	if !layout.IsPowerOfTwo(f.Allocator.Alignment) {
		return nil, errors.New(errors.PhaseProfile, errors.KindAlignment).
			Path("allocator", "alignment").
			Value(f.Allocator.Alignment).
			Detail("alignment %d is not a power of two", f.Allocator.Alignment).
			Build()
	}
	if want := layout.MaskFor(f.Allocator.Alignment); f.Allocator.AlignmentMask != want {
		return nil, errors.New(errors.PhaseProfile, errors.KindAlignment).
			Path("allocator", "alignment_mask").
			Value(f.Allocator.AlignmentMask).
			Detail("mask %d does not match alignment %d (want %d)", f.Allocator.AlignmentMask, f.Allocator.Alignment, want).
			Build()
	}

	calc, err := layout.NewCalculator(f.PointerSize, f.Structs)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		structs:       make(map[string]layout.Info, len(f.Structs)),
		Name:          f.Name,
		Description:   f.Description,
		PointerSize:   f.PointerSize,
		Alignment:     f.Allocator.Alignment,
		AlignmentMask: f.Allocator.AlignmentMask,
		Precision:     f.Conversion.Precision,
	}
	if p.Precision <= 0 {
		p.Precision = DefaultPrecision
	}
	for _, def := range f.Structs {
		info, err := calc.Struct(def.Name)
		if err != nil {
			return nil, err
		}
		p.structs[def.Name] = info
	}

	r := resolver{p: p}
	p.Zval = ZvalLayout{
		Size:     r.size("zval"),
		Value:    r.off("zval", "value"),
		LongSize: r.fieldSize("zval", "value.lval"),
		TypeInfo: r.off("zval", "type_info"),
		U2:       r.off("zval", "u2"),
	}
	p.ExecuteData = ExecuteDataLayout{
		Size: r.size("zend_execute_data"),
		Func: r.off("zend_execute_data", "func"),
		This: r.off("zend_execute_data", "This"),
	}
	p.String = StringLayout{
		Size:     r.size("zend_string"),
		Refcount: r.off("zend_string", "gc.refcount"),
		TypeInfo: r.off("zend_string", "gc.type_info"),
		Hash:     r.off("zend_string", "h"),
		Len:      r.off("zend_string", "len"),
		Val:      r.off("zend_string", "val"),
	}
	p.Function = FunctionLayout{
		Size:    r.size("zend_function"),
		Type:    r.off("zend_function", "type"),
		Name:    r.off("zend_function", "function_name"),
		Scope:   r.off("zend_function", "scope"),
		NumArgs: r.off("zend_function", "num_args"),
	}
	p.Class = ClassLayout{
		Size:     r.size("zend_class_entry"),
		Type:     r.off("zend_class_entry", "type"),
		Name:     r.off("zend_class_entry", "name"),
		Refcount: r.off("zend_class_entry", "refcount"),
	}
	p.Object = ObjectLayout{
		Size:     r.size("zend_object"),
		Refcount: r.off("zend_object", "gc.refcount"),
		TypeInfo: r.off("zend_object", "gc.type_info"),
		Handle:   r.off("zend_object", "handle"),
		Class:    r.off("zend_object", "ce"),
	}
	p.Resource = ResourceLayout{
		Size:     r.size("zend_resource"),
		Refcount: r.off("zend_resource", "gc.refcount"),
		TypeInfo: r.off("zend_resource", "gc.type_info"),
		Handle:   r.off("zend_resource", "handle"),
		Type:     r.off("zend_resource", "type"),
		Ptr:      r.off("zend_resource", "ptr"),
	}
	p.Reference = ReferenceLayout{
		Size:     r.size("zend_reference"),
		Refcount: r.off("zend_reference", "gc.refcount"),
		TypeInfo: r.off("zend_reference", "gc.type_info"),
		Val:      r.off("zend_reference", "val"),
	}
	p.Array = ArrayLayout{
		Size:        r.size("zend_array"),
		Refcount:    r.off("zend_array", "gc.refcount"),
		TypeInfo:    r.off("zend_array", "gc.type_info"),
		NumElements: r.off("zend_array", "nNumOfElements"),
	}
	if r.err != nil {
		return nil, r.err
	}

	if p.Zval.LongSize != 4 && p.Zval.LongSize != 8 {
		return nil, errors.New(errors.PhaseProfile, errors.KindUnsupported).
			Struct("zval").
			Path("value", "lval").
			Value(p.Zval.LongSize).
			Detail("zend_long of %d bytes", p.Zval.LongSize).
			Build()
	}
	if p.Zval.Size == 0 {
		return nil, errors.New(errors.PhaseProfile, errors.KindInvalidData).
			Struct("zval").
			Detail("zval has no size").
			Build()
	}
	return p, nil
}

// resolver collects the first missing struct or field.
type resolver struct {
	err error
	p   *Profile
}

func (r *resolver) size(structName string) uint32 {
	info, ok := r.p.structs[structName]
	if !ok {
		r.fail(errors.NotFound(errors.PhaseProfile, "struct", structName))
		return 0
	}
	return info.Size
}

func (r *resolver) off(structName, field string) uint32 {
	if _, ok := r.p.structs[structName]; !ok {
		r.fail(errors.NotFound(errors.PhaseProfile, "struct", structName))
		return 0
	}
	off, ok := r.p.Offset(structName, field)
	if !ok {
		r.fail(errors.FieldMissing(errors.PhaseProfile, structName, field))
	}
	return off
}

func (r *resolver) fieldSize(structName, field string) uint32 {
	info, ok := r.p.structs[structName]
	if !ok {
		r.fail(errors.NotFound(errors.PhaseProfile, "struct", structName))
		return 0
	}
	sz, ok := info.FieldSizes[field]
	if !ok {
		r.fail(errors.FieldMissing(errors.PhaseProfile, structName, field))
	}
	return sz
}

func (r *resolver) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
