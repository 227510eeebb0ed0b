// Package pending models values that are only known after a resource has been
// created, such as a cluster endpoint or a role ARN.
//
// A Pending value is either known at declaration time (Known) or refers to an
// attribute of another resource in the graph (Of). Renderers turn references into
// their engine's reference syntax; the local engine resolves them once the
// producing resource has been created.
package pending

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnresolved is returned when a deferred value is read before the resource
// that produces it exists.
var ErrUnresolved = errors.New("unresolved deferred value")

// Ref points to an output attribute of a named resource.
type Ref struct {
	Resource  string
	Attribute string
}

func (r Ref) String() string {
	return r.Resource + "." + r.Attribute
}

// Resolver returns the output attributes of created resources.
type Resolver interface {
	Attribute(resource, attribute string) (any, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(resource, attribute string) (any, bool)

// Attribute implements Resolver.
func (f ResolverFunc) Attribute(resource, attribute string) (any, bool) {
	return f(resource, attribute)
}

// Deferred is implemented by every Pending instantiation. Reflection walkers use
// it to find references without knowing T.
type Deferred interface {
	Reference() (Ref, bool)
	Literal() (any, bool)
	ResolveAny(r Resolver) (any, error)
}

// Pending is a value of type T that may not be known until apply time.
type Pending[T any] struct {
	ref     *Ref
	value   T
	set     bool
	convert func(any) (T, error)
}

// String is the common case of a deferred string.
type String = Pending[string]

// Known wraps a value that is available at declaration time.
func Known[T any](v T) Pending[T] {
	return Pending[T]{value: v, set: true}
}

// Of refers to attribute attr of the named resource.
func Of[T any](resource, attr string) Pending[T] {
	return Pending[T]{ref: &Ref{Resource: resource, Attribute: attr}}
}

// Strings wraps known strings, for subnet and security group id lists.
func Strings(values ...string) []String {
	out := make([]String, len(values))
	for i, v := range values {
		out[i] = Known(v)
	}
	return out
}

// Apply derives a new deferred value. The reference is kept so the dependency
// on the producing resource survives the transformation.
func Apply[T, U any](p Pending[T], fn func(T) (U, error)) Pending[U] {
	if p.ref == nil {
		if !p.set {
			return Pending[U]{}
		}
		u, err := fn(p.value)
		if err != nil {
			return failed[U](err)
		}
		return Known(u)
	}
	inner := p.convertFunc()
	return Pending[U]{
		ref: p.ref,
		convert: func(raw any) (U, error) {
			var zero U
			t, err := inner(raw)
			if err != nil {
				return zero, err
			}
			return fn(t)
		},
	}
}

// IsZero reports whether the value was never set.
func (p Pending[T]) IsZero() bool {
	return p.ref == nil && !p.set && p.convert == nil
}

// Reference returns the producing resource attribute, if any.
func (p Pending[T]) Reference() (Ref, bool) {
	if p.ref == nil {
		return Ref{}, false
	}
	return *p.ref, true
}

// Literal returns the known value, if any.
func (p Pending[T]) Literal() (any, bool) {
	if p.ref != nil || !p.set {
		return nil, false
	}
	return p.value, true
}

// Value returns the known value without resolving.
func (p Pending[T]) Value() (T, bool) {
	if p.ref != nil || !p.set {
		var zero T
		return zero, false
	}
	return p.value, true
}

// Resolve returns the concrete value, looking references up in r.
func (p Pending[T]) Resolve(r Resolver) (T, error) {
	var zero T
	if p.ref == nil {
		if p.convert != nil && !p.set {
			return p.convert(nil)
		}
		return p.value, nil
	}
	if r == nil {
		return zero, fmt.Errorf("%s: %w", p.ref, ErrUnresolved)
	}
	raw, ok := r.Attribute(p.ref.Resource, p.ref.Attribute)
	if !ok {
		return zero, fmt.Errorf("%s: %w", p.ref, ErrUnresolved)
	}
	v, err := p.convertFunc()(raw)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", p.ref, err)
	}
	return v, nil
}

// ResolveAny implements Deferred.
func (p Pending[T]) ResolveAny(r Resolver) (any, error) {
	return p.Resolve(r)
}

// MarshalJSON writes the known value, or a placeholder for unresolved references.
func (p Pending[T]) MarshalJSON() ([]byte, error) {
	if p.ref != nil {
		return json.Marshal(map[string]string{"pending": p.ref.String()})
	}
	return json.Marshal(p.value)
}

// failed carries an error from Apply on a known value to Resolve time.
func failed[T any](err error) Pending[T] {
	return Pending[T]{convert: func(any) (T, error) {
		var zero T
		return zero, err
	}}
}

func (p Pending[T]) convertFunc() func(any) (T, error) {
	if p.convert != nil {
		return p.convert
	}
	return convert[T]
}

// convert coerces a raw attribute into T. Attributes read back from JSON state
// arrive as float64 or map[string]any, so a JSON round trip is the fallback.
func convert[T any](raw any) (T, error) {
	var out T
	if v, ok := raw.(T); ok {
		return v, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("converting %T to %T: %w", raw, out, err)
	}
	return out, nil
}
