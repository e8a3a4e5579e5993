package quadtree

import "errors"

var (
	// ErrInvalidInput reports a malformed pixel buffer or tree handed to the package.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig reports invalid build options such as a minimum leaf size below 1.
	ErrConfig = errors.New("invalid configuration")

	// ErrCorruptData reports encoded bytes that do not describe a valid tree.
	ErrCorruptData = errors.New("corrupt quadtree data")
)
