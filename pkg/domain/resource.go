package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ResourceKind is the tag of a Resource.
type ResourceKind string

const (
	ResourceLoading     ResourceKind = "loading"
	ResourceAvailable   ResourceKind = "available"
	ResourceUnavailable ResourceKind = "unavailable"
	ResourceError       ResourceKind = "error"
)

// Resource is the result of a reactive getter. It is always exactly one of
// loading, available(data), unavailable or error(humanError, err).
// The zero value is loading.
type Resource[T any] struct {
	kind       ResourceKind
	data       T
	humanError string
	err        error
}

// Loading returns a loading resource.
func Loading[T any]() Resource[T] {
	return Resource[T]{kind: ResourceLoading}
}

// Available wraps data.
func Available[T any](data T) Resource[T] {
	return Resource[T]{kind: ResourceAvailable, data: data}
}

// Unavailable reports that the referenced node no longer exists.
func Unavailable[T any]() Resource[T] {
	return Resource[T]{kind: ResourceUnavailable}
}

// Failed reports an error. humanError may be empty.
func Failed[T any](humanError string, err error) Resource[T] {
	return Resource[T]{kind: ResourceError, humanError: humanError, err: err}
}

// Kind returns the tag.
func (r Resource[T]) Kind() ResourceKind {
	if r.kind == "" {
		return ResourceLoading
	}
	return r.kind
}

// Data returns the payload and whether the resource is available.
func (r Resource[T]) Data() (T, bool) {
	return r.data, r.Kind() == ResourceAvailable
}

// Err returns the error of an error resource.
func (r Resource[T]) Err() error {
	return r.err
}

// HumanError returns the optional human readable message of an error resource.
func (r Resource[T]) HumanError() string {
	return r.humanError
}

// IsAvailable is shorthand for Kind() == ResourceAvailable.
func (r Resource[T]) IsAvailable() bool {
	return r.Kind() == ResourceAvailable
}

// String implements fmt.Stringer for logs.
func (r Resource[T]) String() string {
	switch r.Kind() {
	case ResourceAvailable:
		return fmt.Sprintf("available(%v)", r.data)
	case ResourceError:
		return fmt.Sprintf("error(%v)", r.err)
	default:
		return string(r.Kind())
	}
}

// Match folds a resource into R, with one positional arm per variant.
func Match[T, R any](
	r Resource[T],
	loading func() R,
	available func(T) R,
	unavailable func() R,
	failed func(humanError string, err error) R,
) R {
	switch r.Kind() {
	case ResourceAvailable:
		return available(r.data)
	case ResourceUnavailable:
		return unavailable()
	case ResourceError:
		return failed(r.humanError, r.err)
	default:
		return loading()
	}
}

type resourceJSON[T any] struct {
	Type       ResourceKind `json:"type"`
	Data       *T           `json:"data,omitempty"`
	HumanError string       `json:"humanError,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// MarshalJSON renders the tagged form {"type": ..., "data": ...}.
func (r Resource[T]) MarshalJSON() ([]byte, error) {
	out := resourceJSON[T]{Type: r.Kind()}
	switch r.Kind() {
	case ResourceAvailable:
		data := r.data
		out.Data = &data
	case ResourceError:
		out.HumanError = r.humanError
		if r.err != nil {
			out.Error = r.err.Error()
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the tagged form. The error cause is restored as an
// opaque error carrying the original message.
func (r *Resource[T]) UnmarshalJSON(b []byte) error {
	var in resourceJSON[T]
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	switch in.Type {
	case ResourceAvailable:
		if in.Data == nil {
			return fmt.Errorf("available resource without data")
		}
		*r = Available(*in.Data)
	case ResourceUnavailable:
		*r = Unavailable[T]()
	case ResourceError:
		var cause error
		if in.Error != "" {
			cause = errors.New(in.Error)
		}
		*r = Failed[T](in.HumanError, cause)
	case ResourceLoading, "":
		*r = Loading[T]()
	default:
		return fmt.Errorf("unknown resource type %q", in.Type)
	}
	return nil
}
