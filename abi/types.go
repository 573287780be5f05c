package abi

// Type is the zval discriminant stored in the low byte of u1.type_info.
type Type uint8

const (
	TypeUndef       Type = 0
	TypeNull        Type = 1
	TypeFalse       Type = 2
	TypeTrue        Type = 3
	TypeLong        Type = 4
	TypeDouble      Type = 5
	TypeString      Type = 6
	TypeArray       Type = 7
	TypeObject      Type = 8
	TypeResource    Type = 9
	TypeReference   Type = 10
	TypeConstantAST Type = 11
	TypeCallable    Type = 12
)

var typeNames = [...]string{
	TypeUndef:       "undef",
	TypeNull:        "null",
	TypeFalse:       "false",
	TypeTrue:        "true",
	TypeLong:        "long",
	TypeDouble:      "double",
	TypeString:      "string",
	TypeArray:       "array",
	TypeObject:      "object",
	TypeResource:    "resource",
	TypeReference:   "reference",
	TypeConstantAST: "constant-ast",
	TypeCallable:    "callable",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "unknown"
}

// zval type flags, stored in the second byte of u1.type_info.
const (
	TypeFlagsShift  = 8
	TypeRefcounted  = 1 << 0
	TypeCollectable = 1 << 1
)

// Full u1.type_info words written by the engine's ZVAL_* macros.
const (
	TypeInfoInternedString = uint32(TypeString)
	TypeInfoStringEx       = uint32(TypeString) | TypeRefcounted<<TypeFlagsShift
	TypeInfoArrayEx        = uint32(TypeArray) | (TypeRefcounted|TypeCollectable)<<TypeFlagsShift
	TypeInfoObjectEx       = uint32(TypeObject) | (TypeRefcounted|TypeCollectable)<<TypeFlagsShift
	TypeInfoResourceEx     = uint32(TypeResource) | TypeRefcounted<<TypeFlagsShift
	TypeInfoReferenceEx    = uint32(TypeReference) | TypeRefcounted<<TypeFlagsShift
)

// zend_refcounted_h.type_info bits.
const (
	GCTypeMask       = 0x0000000f
	GCNotCollectable = 1 << 4
	GCImmutable      = 1 << 6
	GCPersistent     = 1 << 7

	GCString    = uint32(TypeString) | GCNotCollectable
	GCArray     = uint32(TypeArray)
	GCObject    = uint32(TypeObject)
	GCResource  = uint32(TypeResource) | GCNotCollectable
	GCReference = uint32(TypeReference) | GCNotCollectable

	StrInterned   = GCImmutable
	StrPersistent = GCPersistent
)

// zend_function.type and zend_class_entry.type values.
const (
	InternalFunction = 1
	UserFunction     = 2
	InternalClass    = 1
)

// Status codes returned by engine primitives.
const (
	Success int32 = 0
	Failure int32 = -1
)
