package cfddns

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultInterface is the OpenWrt logical interface queried by UbusResolver.
const DefaultInterface = "wan"

// CommandRunner runs name with args and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// UbusResolver constructs a resolver that asks OpenWrt's ubus for the status of a logical interface
// and returns the address reported for it.
// An empty iface means DefaultInterface.
func UbusResolver(iface string) *CommandResolver {
	if iface == "" {
		iface = DefaultInterface
	}
	return &CommandResolver{
		Name: "ubus",
		Args: []string{"call", "network.interface." + iface, "status"},
	}
}

// CommandResolver runs a status command and scans its output for an IPv4 address.
//
// Only the first output line containing an "address" key is considered.
// Every dotted-quad token on that line is extracted,
// and the result must be exactly one address.
type CommandResolver struct {
	Name string
	Args []string

	// Run executes the command. It defaults to os/exec when nil.
	Run CommandRunner
}

// Resolve implements Resolver.
func (r *CommandResolver) Resolve(ctx context.Context) (string, error) {
	run := r.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, r.Name, r.Args...)
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(ee.Stderr) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(ee.Stderr)))
		}
		return "", &Error{Kind: KindExec, Op: "resolve", Err: fmt.Errorf("%s failed: %w", r.Name, err)}
	}
	return parseStatus(string(out))
}

func parseStatus(out string) (string, error) {
	line, ok := addressLine(out)
	if !ok {
		return "", &Error{Kind: KindExec, Op: "resolve", Err: errors.New(`no "address" entry in command output`)}
	}
	tokens := ScanIPv4(line)
	if len(tokens) == 0 {
		return "", &Error{Kind: KindExec, Op: "resolve", Err: fmt.Errorf("no IPv4 address on line %q", strings.TrimSpace(line))}
	}
	ip := strings.Join(tokens, "\n")
	if !ValidIPv4(ip) {
		return "", &Error{Kind: KindParse, Op: "resolve", Err: fmt.Errorf("invalid IP address: %q", ip)}
	}
	return ip, nil
}
