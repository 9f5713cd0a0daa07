package quill

import "errors"

var (
	ErrBodyExists  = errors.New("quill: body already in the world")
	ErrUnknownBody = errors.New("quill: body not in the world")
	// ErrForeignBody is returned for a constraint whose bodies are not in the world
	ErrForeignBody = errors.New("quill: constraint references a body outside the world")
)
