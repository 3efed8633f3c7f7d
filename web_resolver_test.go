package cfddns_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Travis-Britz/cfddns"
)

func webServers(t *testing.T, delay time.Duration, ips ...string) []string {
	t.Helper()
	var srvs []string
	for _, ip := range ips {
		ip := ip
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(delay)
			io.WriteString(w, ip)
		}))
		t.Cleanup(srv.Close)
		srvs = append(srvs, srv.URL)
	}
	return srvs
}

func TestLookup(t *testing.T) {
	wr, err := cfddns.WebResolver(webServers(t, 0, "192.168.2.1\n")...)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}

	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestMismatch(t *testing.T) {
	wr, _ := cfddns.WebResolver(webServers(t, 0, "192.168.2.1", "10.0.0.10", "127.0.0.1")...)
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if res != "" {
		t.Fatalf("Expected empty result; got %q", res)
	}
}

func TestOneFailure(t *testing.T) {
	wr, _ := cfddns.WebResolver(webServers(t, 0, "192.168.2.1", "invalid ip", "192.168.2.1")...)
	res, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestTwoFailures(t *testing.T) {
	wr, _ := cfddns.WebResolver(webServers(t, 0, "192.168.2.1", "a", "a")...)
	res, err := wr.Resolve(context.Background())
	if err == nil {
		t.Fatalf("Expected error response; got err == nil")
	}
	if !cfddns.IsKind(err, cfddns.KindTransport) {
		t.Fatalf("Expected a transport error; got %v", err)
	}
	if res != "" {
		t.Fatalf("Expected empty result; got %q", res)
	}
}

func TestIPv6Rejected(t *testing.T) {
	wr, _ := cfddns.WebResolver(webServers(t, 0, "2001:db8::1")...)
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatalf("Expected error for an IPv6 answer; got err == nil")
	}
}

func TestConcurrency(t *testing.T) {
	wr, _ := cfddns.WebResolver(webServers(t, 50*time.Millisecond, "192.168.2.1", "192.168.2.1", "192.168.2.1")...)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	res, err := wr.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := "192.168.2.1", res; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestHitCount(t *testing.T) {
	// Every request fails, so no early return can hide in-flight requests.
	var mu sync.Mutex
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		io.WriteString(w, "invalid ip")
	}))
	defer srv.Close()

	for n := 1; n <= 5; n++ {
		urls := make([]string, n)
		for i := range urls {
			urls[i] = srv.URL
		}
		wr, _ := cfddns.WebResolver(urls...)

		mu.Lock()
		hits = 0
		mu.Unlock()
		if _, err := wr.Resolve(context.Background()); err == nil {
			t.Fatalf("Expected an error; got err == nil")
		}
		mu.Lock()
		h := hits
		mu.Unlock()
		if expected := min(n, 3); h != expected {
			t.Fatalf("Expected %d hits for %d services; got %d", expected, n, h)
		}
	}
}

func TestNoServices(t *testing.T) {
	if _, err := cfddns.WebResolver(); err == nil {
		t.Fatalf("Expected an error; got err == nil")
	}
}
