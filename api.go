package cfddns

import (
	"context"
)

// Resolver looks up the address that should be published.
//
// Addresses are dotted-quad strings validated with ValidIPv4.
// The check is syntactic only, so a resolver may return something like "999.999.999.999".
type Resolver interface {
	Resolve(context.Context) (string, error)
}

// Provider replaces the content of a single DNS record.
type Provider interface {
	SetRecord(ctx context.Context, ip string) error
}

// Cache remembers the last address confirmed by the Provider.
//
// Previous returns an empty string and a nil error when nothing has been saved yet.
type Cache interface {
	Previous() (string, error)
	Save(ip string) error
}

// Locker is implemented by caches that can be locked for the duration of a run.
// The returned function releases the lock.
// A nil error with ok == false means another run is holding the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, ok bool, err error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(context.Context) (string, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) (string, error) {
	return f(ctx)
}
