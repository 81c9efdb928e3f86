package domain

import (
	"context"
	"time"
)

// InvalidationReason explains why handles left a registry.
type InvalidationReason string

const (
	// InvalidatedRemoved: the node was structurally removed.
	InvalidatedRemoved InvalidationReason = "removed"
	// InvalidatedCascade: an ancestor was found dangling during path resolution.
	InvalidatedCascade InvalidationReason = "cascade"
	// InvalidatedReplaced: a bulk replace no longer contained the node's ref id.
	InvalidatedReplaced InvalidationReason = "replaced"
	// InvalidatedEvicted: a fresh handle took over the slot of a stale one.
	InvalidatedEvicted InvalidationReason = "evicted"
)

// ReconcileEvent describes one reconciliation pass.
type ReconcileEvent struct {
	Timestamp   time.Time     `json:"timestamp"`
	Provider    ProviderID    `json:"provider"`
	Dispatcher  Dispatcher    `json:"dispatcher"`
	Duration    time.Duration `json:"duration"`
	Collections int           `json:"collections"`
	Requests    int           `json:"requests"`
}

// InvalidationEvent describes handles dropped from a registry.
type InvalidationEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Provider  ProviderID         `json:"provider"`
	Kind      HandleKind         `json:"kind"`
	Reason    InvalidationReason `json:"reason"`
	Count     int                `json:"count"`
}

// LifecycleHooks defines callbacks for workspace observability.
type LifecycleHooks struct {
	OnReconcile  func(context.Context, *ReconcileEvent)
	OnInvalidate func(context.Context, *InvalidationEvent)
}
