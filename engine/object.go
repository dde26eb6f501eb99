package engine

import (
	"context"
	"sort"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
	"github.com/hostware/comhost/object"
)

// Object is a live instance produced by a class factory. It fronts a
// backend Product with reference-counted lifetime in the session's
// object table and late-bound method dispatch.
type Object struct {
	table   *object.Table
	handle  object.Handle
	class   comhost.CLSID
	product *Product
}

func newObject(table *object.Table, class comhost.CLSID, p *Product) *Object {
	o := &Object{
		table:   table,
		class:   class,
		product: p,
	}
	o.handle = table.Insert(class, o)
	return o
}

// Class returns the CLSID the object was activated under.
func (o *Object) Class() comhost.CLSID { return o.class }

// Handle returns the object's table handle.
func (o *Object) Handle() object.Handle { return o.handle }

// QueryInterface returns the object when it supports iid, adding a
// reference the caller must release.
func (o *Object) QueryInterface(iid comhost.IID) (any, error) {
	v, err := comhost.Query(o, iid)
	if err != nil {
		return nil, err
	}
	o.table.AddRef(o.handle)
	return v, nil
}

// AddRef increments the reference count.
func (o *Object) AddRef() uint32 {
	return o.table.AddRef(o.handle)
}

// Release decrements the reference count. The final release finalizes
// the backend product; the object must not be used afterwards.
func (o *Object) Release() uint32 {
	return o.table.Release(o.handle)
}

// Invoke calls a named method on the backend product.
func (o *Object) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	if _, ok := o.table.Get(o.handle); !ok {
		return nil, errors.InvalidState(errors.OpObject, "invoke on released object")
	}
	m, ok := o.product.Methods[method]
	if !ok {
		return nil, errors.Unsupported(errors.OpObject, "method "+method)
	}
	return m(ctx, args...)
}

// Methods returns the sorted method names the object dispatches.
func (o *Object) Methods() []string {
	names := make([]string, 0, len(o.product.Methods))
	for name := range o.product.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Finalize runs the product's cleanup hook. The object table calls
// this on the final release.
func (o *Object) Finalize() {
	if o.product.Finalize != nil {
		o.product.Finalize()
	}
}
