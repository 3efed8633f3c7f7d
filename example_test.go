package cfddns_test

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Travis-Britz/cfddns"
)

func ExampleNew() {
	rec := cfddns.Record{
		ZoneID:   os.Getenv("CLOUDFLARE_ZONE_ID"),
		RecordID: os.Getenv("CLOUDFLARE_RECORD_ID"),
		Name:     "ddns.example.com",
	}
	c, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN"), rec),
		cfddns.UsingResolver(cfddns.UbusResolver("wan")),
		cfddns.UsingCache(cfddns.NewFileCache("/tmp/ip.txt")),
		cfddns.WithLogger(log.Default()),
		cfddns.UsingHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	// run once:
	if _, err := c.RunDDNS(context.Background()); err != nil {
		log.Printf("ddns update failed: %s", err)
	}
}

func ExampleWebResolver() {
	// I'm not vouching for these services, but they do return the IP of the client connection.
	// If possible, run your own and provide the URL here instead.
	r, err := cfddns.WebResolver(
		"https://checkip.amazonaws.com/",
		"https://ipv4.icanhazip.com/", // operated by Cloudflare since ~2021
		"https://api.ipify.org/",
	)
	if err != nil {
		log.Fatalf("error creating resolver: %s", err)
	}
	ddnsClient, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN"), cfddns.Record{Name: "ddns.example.com"}),
		cfddns.UsingResolver(r),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	outcome, err := ddnsClient.RunDDNS(context.Background())
	log.Printf("outcome: %s, err: %v", outcome, err)
}

func ExampleInterfaceResolver() {
	ddnsClient, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN"), cfddns.Record{Name: "ddns.example.com"}),
		cfddns.UsingResolver(cfddns.InterfaceResolver("eth0")),
		cfddns.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	ddnsClient.RunDDNS(context.Background())
}

func ExampleResolverFunc() {
	fn := func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(100 * time.Millisecond): // simulating some lookup method
			return "10.0.0.10", nil
		}
	}
	ddnsClient, err := cfddns.New(
		cfddns.UsingCloudflare(os.Getenv("CLOUDFLARE_API_TOKEN"), cfddns.Record{Name: "ddns.example.com"}),
		cfddns.UsingResolver(cfddns.ResolverFunc(fn)),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	ddnsClient.RunDDNS(context.Background())
}
