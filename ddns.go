package cfddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
)

// DefaultResolver queries the "wan" interface through ubus.
var DefaultResolver Resolver = UbusResolver(DefaultInterface)

var discard = log.New(io.Discard, "", log.LstdFlags)

// Outcome is the terminal state of a single run.
type Outcome int

const (
	NoAddress Outcome = iota // the current address could not be determined
	Unchanged                // the address matches the cached one; nothing was sent
	Updated                  // the record was updated and the new address saved
	Failed                   // the update was rejected or never reached the provider
	Busy                     // another run holds the state lock
)

func (o Outcome) String() string {
	switch o {
	case NoAddress:
		return "no address"
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	case Busy:
		return "busy"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// New creates a DDNSClient.
//
// A Provider is required, usually registered with UsingCloudflare.
// The resolver defaults to DefaultResolver and the cache to a FileCache at DefaultStateFile.
func New(options ...clientOption) (DDNSClient, error) {
	c := &client{
		Resolver: DefaultResolver,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("cfddns.New: option %d returned an error: %s", i, err)
		}
	}

	if c.Provider == nil {
		return nil, errors.New("cfddns.New: no DNS provider was registered and there is no default option - use cfddns.UsingCloudflare or similar")
	}
	if c.Cache == nil {
		c.Cache = NewFileCache(DefaultStateFile)
	}

	// this lets us propagate the logger to dependencies that use one if WithLogger was called before all of the dependencies were registered
	withLogger(c.logger)(c)
	if c.logger == nil {
		c.logger = discard
	}
	return c, nil
}

type clientOption func(*client) error

// UsingCloudflare registers Cloudflare as the DNS provider for rec.
// opts are passed to cloudflare-go, e.g. cloudflare.BaseURL to point at another API root.
//
// The record update does not go through cloudflare-go,
// so use UsingHTTPClient rather than cloudflare.HTTPClient to change the client for both lookups and updates.
func UsingCloudflare(token string, rec Record, opts ...cloudflare.Option) clientOption {
	return func(c *client) (err error) {
		if c.Provider, err = newCloudflareProvider(token, rec, opts...); err != nil {
			return fmt.Errorf("cfddns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider registers a custom Provider.
func UsingProvider(p Provider) clientOption {
	return func(c *client) error {
		if p == nil {
			return errors.New("provider cannot be nil")
		}
		c.Provider = p
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *client) error {
		if resolver == nil {
			resolver = DefaultResolver
		}
		c.Resolver = resolver
		return nil
	}
}

func UsingWebResolver(serviceURL ...string) clientOption {
	return func(c *client) (err error) {
		c.Resolver, err = WebResolver(serviceURL...)
		return err
	}
}

// UsingCache sets where the last published address is kept.
// Caches that also implement Locker are locked for the duration of each run.
func UsingCache(cache Cache) clientOption {
	return func(c *client) error {
		if cache == nil {
			return errors.New("cache cannot be nil")
		}
		c.Cache = cache
		return nil
	}
}

func withLogger(logger *log.Logger) clientOption {
	return func(c *client) error {
		if logger == nil {
			logger = discard
		}
		type setLogger interface {
			SetLogger(*log.Logger)
		}
		if p, ok := c.Provider.(setLogger); ok {
			p.SetLogger(logger)
		}
		if r, ok := c.Resolver.(setLogger); ok {
			r.SetLogger(logger)
		}
		return nil
	}
}

func WithLogger(logger *log.Logger) clientOption {
	return func(c *client) error {
		c.logger = logger
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		if r, ok := c.Resolver.(setHTTPClient); ok {
			r.SetHTTPClient(httpclient)
		}
		if p, ok := c.Provider.(setHTTPClient); ok {
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

type DDNSClient interface {
	RunDDNS(ctx context.Context) (Outcome, error)
}

type client struct {
	Resolver
	Provider
	Cache
	logger *log.Logger
}

// RunDDNS performs one check and, if the address changed, one update.
//
// The returned error is non-nil for NoAddress and Failed.
// Every failure has already been logged by the time RunDDNS returns.
//
// A lock that cannot be taken because of an I/O error is logged and the run continues unlocked.
// Busy is returned only when another run holds the lock.
func (c *client) RunDDNS(ctx context.Context) (Outcome, error) {
	if l, ok := c.Cache.(Locker); ok {
		unlock, ok, err := l.Lock(ctx)
		switch {
		case err != nil:
			c.logger.Printf("failed to lock state file: %s", err)
		case !ok:
			c.logger.Printf("another run is in progress; skipping")
			return Busy, nil
		default:
			defer func() {
				if err := unlock(); err != nil {
					c.logger.Printf("failed to unlock state file: %s", err)
				}
			}()
		}
	}

	current, err := c.Resolve(ctx)
	if err != nil {
		c.logger.Printf("failed to get public IP: %s", err)
		return NoAddress, fmt.Errorf("error getting IP: %w", err)
	}

	previous, err := c.Previous()
	if err != nil {
		// treated as absent, which forces an update attempt
		c.logger.Printf("failed to read IP file: %s", err)
		previous = ""
	}

	if previous == current {
		return Unchanged, nil
	}

	if err := c.SetRecord(ctx, current); err != nil {
		c.logger.Printf("update failed, keeping IP: %s", orNone(previous))
		return Failed, fmt.Errorf("error updating record with %s: %w", current, err)
	}

	if err := c.Save(current); err != nil {
		c.logger.Printf("failed to save IP file: %s", err)
	}
	c.logger.Printf("IP updated: %s -> %s", orNone(previous), current)
	return Updated, nil
}

func orNone(ip string) string {
	if ip == "" {
		return "none"
	}
	return ip
}
