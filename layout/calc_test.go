package layout

import (
	"testing"

	"go.bytecodealliance.org/wit"
)

func zendDefs() []StructDef {
	return []StructDef{
		{Name: "zval", Fields: []Field{
			{Name: "value", Union: []Field{
				{Name: "lval", Type: "zend_long"},
				{Name: "dval", Type: "double"},
				{Name: "ptr", Type: "ptr"},
			}},
			{Name: "type_info", Type: "uint32"},
			{Name: "u2", Type: "uint32"},
		}},
		{Name: "zend_execute_data", Fields: []Field{
			{Name: "opline", Type: "ptr"},
			{Name: "call", Type: "ptr"},
			{Name: "return_value", Type: "ptr"},
			{Name: "func", Type: "ptr"},
			{Name: "This", Type: "zval"},
			{Name: "prev_execute_data", Type: "ptr"},
			{Name: "symbol_table", Type: "ptr"},
			{Name: "run_time_cache", Type: "ptr"},
			{Name: "extra_named_params", Type: "ptr"},
		}},
		{Name: "zend_function", Fields: []Field{
			{Name: "type", Type: "zend_uchar"},
			{Name: "arg_flags", Type: "zend_uchar", Count: 3},
			{Name: "fn_flags", Type: "uint32"},
			{Name: "function_name", Type: "ptr"},
			{Name: "scope", Type: "ptr"},
		}},
	}
}

func TestCalculatePrimitives(t *testing.T) {
	c, err := NewCalculator(8, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		typ   wit.Type
		name  string
		size  uint32
		align uint32
	}{
		{wit.Bool{}, "bool", 1, 1},
		{wit.U8{}, "u8", 1, 1},
		{wit.S16{}, "s16", 2, 2},
		{wit.U32{}, "u32", 4, 4},
		{wit.F32{}, "f32", 4, 4},
		{wit.S64{}, "s64", 8, 8},
		{wit.F64{}, "f64", 8, 8},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := c.Calculate(tc.typ)
			if info.Size != tc.size {
				t.Errorf("size: got %d, want %d", info.Size, tc.size)
			}
			if info.Align != tc.align {
				t.Errorf("align: got %d, want %d", info.Align, tc.align)
			}
		})
	}
}

func TestPointerWidth(t *testing.T) {
	for _, tc := range []struct {
		ptr  uint32
		want uint32
	}{{8, 8}, {4, 4}} {
		c, err := NewCalculator(tc.ptr, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, name := range []string{"ptr", "size_t", "zend_long", "zend_ulong"} {
			typ, ok := c.Primitive(name)
			if !ok {
				t.Fatalf("%s not a primitive", name)
			}
			if got := c.Calculate(typ).Size; got != tc.want {
				t.Errorf("pointer size %d: %s size = %d, want %d", tc.ptr, name, got, tc.want)
			}
		}
	}
}

func TestCalculateZval(t *testing.T) {
	c, err := NewCalculator(8, zendDefs())
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.Struct("zval")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 16 || info.Align != 8 {
		t.Errorf("zval size/align = %d/%d, want 16/8", info.Size, info.Align)
	}

	wantOffs := map[string]uint32{
		"value":      0,
		"value.lval": 0,
		"value.dval": 0,
		"type_info":  8,
		"u2":         12,
	}
	for name, want := range wantOffs {
		if got, ok := info.FieldOffs[name]; !ok || got != want {
			t.Errorf("offset of %s = %d (present %v), want %d", name, got, ok, want)
		}
	}
	if info.FieldSizes["value"] != 8 {
		t.Errorf("value size = %d, want 8", info.FieldSizes["value"])
	}
}

func TestCalculateExecuteData(t *testing.T) {
	c, err := NewCalculator(8, zendDefs())
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.Struct("zend_execute_data")
	if err != nil {
		t.Fatal(err)
	}
	if info.Size != 80 {
		t.Errorf("size = %d, want 80", info.Size)
	}
	if info.FieldOffs["func"] != 24 {
		t.Errorf("func offset = %d, want 24", info.FieldOffs["func"])
	}
	if info.FieldOffs["This"] != 32 {
		t.Errorf("This offset = %d, want 32", info.FieldOffs["This"])
	}
	if info.FieldOffs["This.u2"] != 44 {
		t.Errorf("This.u2 offset = %d, want 44", info.FieldOffs["This.u2"])
	}
	if info.FieldOffs["prev_execute_data"] != 48 {
		t.Errorf("prev_execute_data offset = %d, want 48", info.FieldOffs["prev_execute_data"])
	}
}

func TestCalculateExecuteData32(t *testing.T) {
	c, err := NewCalculator(4, zendDefs())
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.Struct("zend_execute_data")
	if err != nil {
		t.Fatal(err)
	}
	if info.FieldOffs["This"] != 16 {
		t.Errorf("This offset = %d, want 16", info.FieldOffs["This"])
	}
	if info.Size != 48 {
		t.Errorf("size = %d, want 48", info.Size)
	}
}

func TestCalculateArrayField(t *testing.T) {
	c, err := NewCalculator(8, zendDefs())
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.Struct("zend_function")
	if err != nil {
		t.Fatal(err)
	}
	if info.FieldSizes["arg_flags"] != 3 {
		t.Errorf("arg_flags size = %d, want 3", info.FieldSizes["arg_flags"])
	}
	if info.FieldOffs["fn_flags"] != 4 {
		t.Errorf("fn_flags offset = %d, want 4", info.FieldOffs["fn_flags"])
	}
	if info.FieldOffs["scope"] != 16 {
		t.Errorf("scope offset = %d, want 16", info.FieldOffs["scope"])
	}
}

func TestCalculatorErrors(t *testing.T) {
	t.Run("bad_pointer_size", func(t *testing.T) {
		if _, err := NewCalculator(2, nil); err == nil {
			t.Error("expected error for pointer size 2")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		defs := []StructDef{{Name: "a"}, {Name: "a"}}
		if _, err := NewCalculator(8, defs); err == nil {
			t.Error("expected duplicate error")
		}
	})

	t.Run("unknown_type", func(t *testing.T) {
		c, _ := NewCalculator(8, []StructDef{{Name: "a", Fields: []Field{{Name: "x", Type: "int128"}}}})
		if _, err := c.Struct("a"); err == nil {
			t.Error("expected unknown type error")
		}
	})

	t.Run("self_reference", func(t *testing.T) {
		c, _ := NewCalculator(8, []StructDef{{Name: "a", Fields: []Field{{Name: "x", Type: "a"}}}})
		if _, err := c.Struct("a"); err == nil {
			t.Error("expected recursion error")
		}
	})

	t.Run("missing_struct", func(t *testing.T) {
		c, _ := NewCalculator(8, nil)
		if _, err := c.Struct("zval"); err == nil {
			t.Error("expected not found error")
		}
	})
}

func TestCaching(t *testing.T) {
	c, _ := NewCalculator(8, zendDefs())

	a, _ := c.Struct("zval")
	b, _ := c.Struct("zval")
	if a.Size != b.Size || a.FieldOffs["u2"] != b.FieldOffs["u2"] {
		t.Error("cached results should be identical")
	}
}
