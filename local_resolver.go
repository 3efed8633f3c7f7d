package cfddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the first IPv4 address reported by the given interfaces.
// If no interfaces are provided then all interfaces will be used, but loopback addresses will be skipped.
//
// This is useful on hosts without ubus where the WAN address is assigned directly to a local interface.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (string, error) {
	var errs []error
	if len(r.ifaces) == 0 {
		adds, err := net.InterfaceAddrs()
		if err != nil {
			return "", &Error{Kind: KindExec, Op: "resolve", Err: fmt.Errorf("error getting addresses for interface: %w", err)}
		}
		if ip, ok := firstIPv4(adds, &errs); ok {
			return ip, nil
		}
	}
	for _, ifs := range r.ifaces {
		iface, err := net.InterfaceByName(ifs)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", ifs, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", ifs, err))
			continue
		}
		if ip, ok := firstIPv4(a, &errs); ok {
			return ip, nil
		}
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no IPv4 address found"))
	}
	return "", &Error{Kind: KindExec, Op: "resolve", Err: errors.Join(errs...)}
}

// firstIPv4 returns the first non-loopback IPv4 address in addrs.
// addr: ip+net:192.168.86.253/24
// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
func firstIPv4(addrs []net.Addr, errs *[]error) (string, bool) {
	for _, addr := range addrs {
		ip, err := netip.ParsePrefix(addr.String())
		if err != nil {
			*errs = append(*errs, fmt.Errorf("error parsing local ip %s: %s", addr.String(), err))
			continue
		}
		if ip.Addr().IsLoopback() || !ip.Addr().Is4() {
			continue
		}
		return ip.Addr().String(), true
	}
	return "", false
}
