package layout

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/zend-abi/errors"
)

// Field is one member of a described struct. Exactly one of Type or Union
// is set. Count > 1 declares a fixed array.
type Field struct {
	Name  string  `toml:"name"`
	Type  string  `toml:"type"`
	Union []Field `toml:"union"`
	Count uint32  `toml:"count"`
}

// StructDef describes one engine struct.
type StructDef struct {
	Name   string  `toml:"name"`
	Fields []Field `toml:"fields"`
}

// Info is the computed layout of a type.
type Info struct {
	FieldOffs  map[string]uint32
	FieldSizes map[string]uint32
	Size       uint32
	Align      uint32
}

// Calculator computes layouts for a set of struct descriptions on a target
// with the given pointer width.
type Calculator struct {
	defs        map[string]StructDef
	cache       map[string]Info
	active      map[string]bool
	pointerSize uint32
}

// NewCalculator indexes defs by name. pointerSize must be 4 or 8.
func NewCalculator(pointerSize uint32, defs []StructDef) (*Calculator, error) {
	if pointerSize != 4 && pointerSize != 8 {
		return nil, errors.New(errors.PhaseLayout, errors.KindUnsupported).
			Value(pointerSize).
			Detail("pointer size %d", pointerSize).
			Build()
	}
	c := &Calculator{
		defs:        make(map[string]StructDef, len(defs)),
		cache:       make(map[string]Info),
		active:      make(map[string]bool),
		pointerSize: pointerSize,
	}
	for _, d := range defs {
		if _, dup := c.defs[d.Name]; dup {
			return nil, errors.Duplicate(errors.PhaseLayout, "struct", d.Name)
		}
		c.defs[d.Name] = d
	}
	return c, nil
}

// Primitive maps a C type name onto the WIT primitive with the same size
// and alignment.
func (c *Calculator) Primitive(name string) (wit.Type, bool) {
	switch name {
	case "bool", "zend_bool":
		return wit.Bool{}, true
	case "char", "uint8", "zend_uchar":
		return wit.U8{}, true
	case "int8":
		return wit.S8{}, true
	case "uint16":
		return wit.U16{}, true
	case "int16":
		return wit.S16{}, true
	case "uint32":
		return wit.U32{}, true
	case "int32", "int":
		return wit.S32{}, true
	case "uint64":
		return wit.U64{}, true
	case "int64":
		return wit.S64{}, true
	case "float":
		return wit.F32{}, true
	case "double":
		return wit.F64{}, true
	case "ptr", "size_t", "zend_ulong", "uintptr":
		if c.pointerSize == 4 {
			return wit.U32{}, true
		}
		return wit.U64{}, true
	case "zend_long", "ssize_t", "intptr":
		if c.pointerSize == 4 {
			return wit.S32{}, true
		}
		return wit.S64{}, true
	}
	return nil, false
}

// Calculate returns size and alignment of a WIT primitive.
func (c *Calculator) Calculate(t wit.Type) Info {
	switch t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return Info{Size: 1, Align: 1}
	case wit.U16, wit.S16:
		return Info{Size: 2, Align: 2}
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return Info{Size: 4, Align: 4}
	case wit.U64, wit.S64, wit.F64:
		return Info{Size: 8, Align: 8}
	default:
		return Info{Size: 0, Align: 1}
	}
}

// Struct returns the layout of the named struct.
func (c *Calculator) Struct(name string) (Info, error) {
	if cached, ok := c.cache[name]; ok {
		return cached, nil
	}
	def, ok := c.defs[name]
	if !ok {
		return Info{}, errors.NotFound(errors.PhaseLayout, "struct", name)
	}
	if c.active[name] {
		return Info{}, errors.New(errors.PhaseLayout, errors.KindInvalidData).
			Struct(name).
			Detail("struct contains itself by value").
			Build()
	}
	c.active[name] = true
	defer delete(c.active, name)

	info, err := c.record(name, def.Fields)
	if err != nil {
		return Info{}, err
	}
	c.cache[name] = info
	return info, nil
}

func (c *Calculator) record(owner string, fields []Field) (Info, error) {
	info := Info{
		FieldOffs:  make(map[string]uint32),
		FieldSizes: make(map[string]uint32),
		Align:      1,
	}
	if len(fields) == 0 {
		return info, nil
	}

	offset := uint32(0)
	for _, f := range fields {
		fl, err := c.field(owner, f)
		if err != nil {
			return Info{}, err
		}

		offset = AlignTo(offset, fl.Align)
		info.place(f.Name, offset, fl)

		if fl.Align > info.Align {
			info.Align = fl.Align
		}
		offset += fl.Size
	}

	info.Size = AlignTo(offset, info.Align)
	return info, nil
}

func (c *Calculator) union(owner string, members []Field) (Info, error) {
	info := Info{
		FieldOffs:  make(map[string]uint32),
		FieldSizes: make(map[string]uint32),
		Align:      1,
	}
	maxSize := uint32(0)
	for _, m := range members {
		ml, err := c.field(owner, m)
		if err != nil {
			return Info{}, err
		}
		info.place(m.Name, 0, ml)
		if ml.Align > info.Align {
			info.Align = ml.Align
		}
		if ml.Size > maxSize {
			maxSize = ml.Size
		}
	}
	info.Size = AlignTo(maxSize, info.Align)
	return info, nil
}

func (c *Calculator) field(owner string, f Field) (Info, error) {
	var (
		elem Info
		err  error
	)
	switch {
	case len(f.Union) > 0:
		elem, err = c.union(owner, f.Union)
	default:
		if t, ok := c.Primitive(f.Type); ok {
			elem = c.Calculate(t)
		} else if _, ok := c.defs[f.Type]; ok {
			elem, err = c.Struct(f.Type)
		} else {
			return Info{}, errors.UnknownType(errors.PhaseLayout, owner, f.Name, f.Type)
		}
	}
	if err != nil {
		return Info{}, err
	}
	if f.Count > 1 {
		elem.Size *= f.Count
	}
	return elem, nil
}

// place records a member and its flattened children at offset.
func (info *Info) place(name string, offset uint32, member Info) {
	info.FieldOffs[name] = offset
	info.FieldSizes[name] = member.Size
	for k, v := range member.FieldOffs {
		info.FieldOffs[name+"."+k] = offset + v
		info.FieldSizes[name+"."+k] = member.FieldSizes[k]
	}
}
