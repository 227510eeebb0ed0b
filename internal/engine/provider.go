package engine

import (
	"context"
	"fmt"
)

// Request asks a provider to create or update one resource.
type Request struct {
	Name string
	Type string
	// Properties are fully resolved, secrets included.
	Properties map[string]any
	// Prior is the existing resource for an update, nil for a create.
	Prior *ResourceState
}

// Response carries what the provider assigned.
type Response struct {
	ID         string
	Attributes map[string]any
}

// Provider performs the cloud calls for each resource.
type Provider interface {
	Create(ctx context.Context, req Request) (Response, error)
	Update(ctx context.Context, req Request) (Response, error)
	Delete(ctx context.Context, res ResourceState) error
}

// ResourceError reports the resource and operation a run halted on.
type ResourceError struct {
	Resource string
	Op       Op
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
