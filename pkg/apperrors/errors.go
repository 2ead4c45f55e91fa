package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnsupportedType = errors.New("unsupported datasource type")
	ErrEmptySnapshot   = errors.New("snapshot has no tables")
)
