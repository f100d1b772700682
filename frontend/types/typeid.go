package types

// TypeID is a stable handle to an interned type in a Database.
// Two structurally identical types always have the same TypeID within one Database.
type TypeID uint32

// DefID identifies a named type definition (type alias or interface) in a Database
type DefID uint32

// Intrinsic types are pre-registered at fixed ids in every Database
const (
	// NoType is the absence of a type, for optional slots such as a missing constraint
	NoType TypeID = iota
	// Error is the sentinel the binder and checker substitute for types they could not resolve.
	// It relates to every type in both directions so that one error does not cascade.
	Error
	Never
	Unknown
	Any
	Void
	Undefined
	Null
	Boolean
	Number
	String
	BigInt
	Symbol
	// NonPrimitive is the `object` keyword type: any non-primitive value
	NonPrimitive
	True
	False
	// Function is the global `Function` type
	Function

	firstUserType
)

// IsIntrinsic reports whether t is one of the pre-registered types
func (t TypeID) IsIntrinsic() bool {
	return t < firstUserType
}

// IsAnyOrUnknown reports whether t is one of the top types
func (t TypeID) IsAnyOrUnknown() bool {
	return t == Any || t == Unknown
}

// IsPrimitive reports whether t is a primitive keyword type (not a literal)
func (t TypeID) IsPrimitive() bool {
	switch t {
	case String, Number, Boolean, BigInt, Symbol, Null, Undefined, Void:
		return true
	}
	return false
}
