// Command cfddns updates a Cloudflare "A" record when the host's public IPv4 address changes.
//
// It performs a single check per invocation and is meant to be run from cron:
//
//	*/5 * * * * /usr/bin/cfddns -d ddns.example.com
//
// Status lines go to syslog under the tag "cloudflare-ddns".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Travis-Britz/cfddns"
	"github.com/cloudflare/cloudflare-go"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}
	logger := newLogger(cfg.LogTag, cfg.Verbose)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Print(err)
		os.Exit(1)
	}
}

// run returns an error only when the client could not be set up.
// The outcome of the update itself is reported through the log.
func run(ctx context.Context, cfg *Config, logger *log.Logger) error {
	if err := resolveToken(cfg, logger); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if cfg.Lookup {
		return lookup(ctx, cfg)
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	client, err := cfddns.New(
		cfddns.UsingCloudflare(cfg.Token, cfg.record(), cloudflare.BaseURL(cfg.APIRoot)),
		cfddns.UsingResolver(resolver),
		cfddns.UsingCache(cfddns.NewFileCache(cfg.StateFile)),
		cfddns.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("error creating cfddns client: %w", err)
	}
	// failures are already logged and the next scheduled run retries them
	_, _ = client.RunDDNS(ctx)
	return nil
}

func newResolver(cfg *Config) (cfddns.Resolver, error) {
	if cfg.IP != "" {
		return cfddns.FromString(cfg.IP)
	}
	switch cfg.Resolver {
	case "iface":
		if cfg.Interface == "" {
			return cfddns.InterfaceResolver(), nil
		}
		return cfddns.InterfaceResolver(cfg.Interface), nil
	case "web":
		return cfddns.WebResolver(cfg.Services...)
	}
	return cfddns.UbusResolver(cfg.Interface), nil
}

func lookup(ctx context.Context, cfg *Config) error {
	api, err := cloudflare.NewWithAPIToken(cfg.Token, cloudflare.BaseURL(cfg.APIRoot))
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	zid, rid, err := cfddns.LookupRecord(ctx, api, cfg.Name)
	if err != nil {
		return err
	}
	fmt.Printf("CLOUDFLARE_ZONE_ID=%s\nCLOUDFLARE_RECORD_ID=%s\n", zid, rid)
	return nil
}

func stderrLogger(tag string) *log.Logger {
	return log.New(os.Stderr, tag+": ", log.LstdFlags)
}
