package engine

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	comhost "github.com/hostware/comhost"
	"github.com/hostware/comhost/errors"
)

// classFactory produces objects of one class from a backend
// constructor. It is the concrete IClassFactory handed back through
// the activation delegate.
type classFactory struct {
	session *Session
	class   comhost.CLSID
	ctor    Constructor
	refs    int32
}

func newClassFactory(session *Session, class comhost.CLSID, ctor Constructor) *classFactory {
	return &classFactory{
		session: session,
		class:   class,
		ctor:    ctor,
		refs:    1,
	}
}

// QueryInterface returns the factory for IUnknown and IClassFactory,
// adding a reference the caller must release.
func (f *classFactory) QueryInterface(iid comhost.IID) (any, error) {
	v, err := comhost.Query(f, iid)
	if err != nil {
		return nil, err
	}
	f.AddRef()
	return v, nil
}

// AddRef increments the factory's reference count.
func (f *classFactory) AddRef() uint32 {
	return uint32(atomic.AddInt32(&f.refs, 1))
}

// Release decrements the factory's reference count. Factories own no
// backend state, so the final release frees nothing.
func (f *classFactory) Release() uint32 {
	for {
		old := atomic.LoadInt32(&f.refs)
		if old == 0 {
			return 0
		}
		if atomic.CompareAndSwapInt32(&f.refs, old, old-1) {
			return uint32(old - 1)
		}
	}
}

// CreateInstance activates one object of the factory's class and
// returns it holding the single creation reference. Aggregation is not
// supported; a non-nil outer unknown is rejected.
func (f *classFactory) CreateInstance(ctx context.Context, outer any, iid comhost.IID) (any, error) {
	if outer != nil {
		return nil, errors.NoAggregation(f.class.String())
	}

	p, err := f.ctor(ctx)
	if err != nil {
		return nil, err
	}

	o := newObject(f.session.Objects(), f.class, p)
	if _, err := comhost.Query(o, iid); err != nil {
		o.Release()
		return nil, err
	}

	Logger().Debug("object activated",
		zap.String("class", f.class.String()),
		zap.String("iid", iid.String()),
		zap.Uint32("handle", uint32(o.Handle())))
	return o, nil
}

// LockServer pins or unpins the hosting process on behalf of a client.
func (f *classFactory) LockServer(lock bool) error {
	_, err := f.session.LockServer(lock)
	return err
}
