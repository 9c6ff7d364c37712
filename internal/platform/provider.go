package platform

import (
	"context"
	"time"
)

// PermissionStatus is the result of a foreground permission request.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// AccuracyMode hints the provider how hard to work for a fix.
type AccuracyMode string

const (
	AccuracyBestForNavigation AccuracyMode = "best-for-navigation"
	AccuracyBalanced          AccuracyMode = "balanced"
)

// Fix is a raw position report from the platform.
type Fix struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, nil when the platform does not report it
	Speed     *float64 // m/s
	Heading   *float64 // degrees
}

// WatchOptions parameterise a subscription.
type WatchOptions struct {
	Mode        AccuracyMode
	MinTime     time.Duration
	MinDistance float64 // meters
}

// Subscription is a handle to an active watch. Remove is idempotent.
type Subscription interface {
	Remove()
}

// Provider is the platform location source.
type Provider interface {
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	GetOnce(ctx context.Context, mode AccuracyMode) (Fix, error)
	Watch(ctx context.Context, opts WatchOptions, onFix func(Fix)) (Subscription, error)
}
