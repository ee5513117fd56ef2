package template

import "errors"

var (
	ErrParameterNotFound    = errors.New("template: parameter not found")
	ErrPropertyAccess       = errors.New("template: no accessor for property")
	ErrInvalidArraySyntax   = errors.New("template: invalid array syntax")
	ErrInvalidArrayType     = errors.New("template: parameter is not an array or collection")
	ErrArrayIndexOutOfRange = errors.New("template: array index out of range")
	ErrUnregisteredRecord   = errors.New("template: record type not registered")
)
