package domain

import "errors"

var ErrNotFound = errors.New("not found")

// Códigos estables que viajan en el campo "code" de las respuestas 400/500.
const (
	CodeFileMissing     = "file_missing"
	CodeFileEmpty       = "file_empty"
	CodeFileWrongFormat = "file_wrong_format"
	CodeFileCorruptData = "file_corrupt_data"
	CodeInternal        = "internal_error"
)

// InputError es un error corregible por el cliente: siempre 400, nunca se reintenta.
type InputError struct {
	Code   string
	Detail string
}

func (e *InputError) Error() string { return e.Detail }

func NewInputError(code, detail string) *InputError {
	return &InputError{Code: code, Detail: detail}
}
