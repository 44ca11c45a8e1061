package errors

import "errors"

var (
	// ErrInvalidConfiguration covers bad chunking/index parameters; fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidArgument is a generic sentinel for caller errors.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIndexOutOfRange is returned for step indexes outside a work order's step list.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingUnavailable marks embedding-service network/timeout/non-2xx failures.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	// ErrGenerationService marks generation-service failures.
	ErrGenerationService = errors.New("generation service error")
	// ErrGenerationFormat means model output did not match the work-order shape after one retry.
	ErrGenerationFormat = errors.New("generation format error")
	// ErrInvalidTransition marks work-order lifecycle violations.
	ErrInvalidTransition = errors.New("invalid transition")
)
