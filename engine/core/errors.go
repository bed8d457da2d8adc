package core

import (
	"errors"
)

var (
	// asset graph
	ErrUnresolvedReference = errors.New("unresolved asset reference")
	ErrConversionFailed    = errors.New("mesh could not be converted")
	ErrNoLODs              = errors.New("mesh has no levels of detail")
	ErrMaterialCycle       = errors.New("material parent chain contains a cycle")
	ErrMaterialDepth       = errors.New("material parent chain exceeds maximum depth")
	ErrUnsupportedFormat   = errors.New("unsupported output format")
	ErrUnknownAssetType    = errors.New("unknown asset type")

	// transport
	ErrReceiverUnreachable  = errors.New("receiver unreachable")
	ErrChunkRetriesExceeded = errors.New("chunk retries exceeded, data will not continue")
	ErrUnknownTarget        = errors.New("unknown export target")

	// job system
	ErrNoWorkers           = errors.New("attempting to create worker pool with less than 1 worker")
	ErrNegativeChannelSize = errors.New("attempting to create worker pool with a negative channel size")
	ErrJobSystemClosed     = errors.New("job system is shut down")

	// containers
	ErrQueueFull  = errors.New("queue is full")
	ErrQueueEmpty = errors.New("queue is empty")
)
