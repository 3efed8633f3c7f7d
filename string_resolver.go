package cfddns

import (
	"context"
	"fmt"
)

// FromString constructs a resolver that always returns addr.
func FromString(addr string) (Resolver, error) {
	if !ValidIPv4(addr) {
		return nil, &Error{Kind: KindParse, Op: "resolve", Err: fmt.Errorf("invalid IP address: %q", addr)}
	}
	return stringResolver(addr), nil
}

type stringResolver string

func (s stringResolver) Resolve(context.Context) (string, error) {
	return string(s), nil
}
