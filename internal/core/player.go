package core

import (
	"context"
	"time"
)

// Controller defines the playback operations exposed to user interfaces.
type Controller interface {
	// Playback control
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Skip(ctx context.Context) error
	Previous(ctx context.Context) error

	// Queue manipulation
	AddToQueue(ctx context.Context, track Track) error
	ReorderQueue(ctx context.Context, from, to int) error
	RemoveFromQueue(ctx context.Context, index int) error

	// On-device transport
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(percent int)

	// Mode and state
	SetOnDeviceMode(on bool)
	State() PlayerState
}
