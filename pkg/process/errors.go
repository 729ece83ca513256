package process

import "errors"

// Process management errors
var (
	// ErrBuildFailed is the one failure the harness treats as fatal: without
	// a worker binary there is no cluster to bootstrap.
	ErrBuildFailed = errors.New("worker binary build failed")

	ErrAlreadySpawned = errors.New("node already spawned")
	ErrSpawnFailed    = errors.New("failed to start node process")
)
