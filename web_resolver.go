package cfddns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// WebResolver constructs a resolver which uses external web services to look up the public IPv4 address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a valid IPv4 address as the first line of the response body.
// All other responses are considered an error.
//
// If only one serviceURL is given,
// then the resolver will simply return the response.
// If multiple are given,
// then the resolver will request from up to three of them and only return successfully if the first two non-error responses agreed on the IP.
// This approach is taken due to the sensitive nature of having control over DNS records.
//
// Services that may answer over IPv6 should be given as an IPv4-only endpoint, e.g. https://ipv4.icanhazip.com/.
func WebResolver(serviceURL ...string) (Resolver, error) {
	var URLs []*url.URL
	for _, u := range serviceURL {
		pu, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("error parsing URL: %w", err)
		}
		URLs = append(URLs, pu)
	}
	if len(URLs) == 0 {
		return nil, errors.New("no external IP lookup services were provided")
	}
	return &webResolver{serviceURLs: URLs}, nil
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []*url.URL
}

// SetHTTPClient is used by UsingHTTPClient.
func (wr *webResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }

// Resolve implements Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (string, error) {
	// todo: round-robin or randomize resolver selection. right now it's just using the first three.
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr string
		err  error
	}

	useCount := min(3, len(wr.serviceURLs))
	results := make(chan result, useCount)

	var wg sync.WaitGroup
	wg.Add(useCount)
	for _, u := range wr.serviceURLs[:useCount] {
		u := u
		go func() {
			defer wg.Done()
			r := result{}
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	resultCount := 0
	var errs []error
	var ip string
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		resultCount++ // don't increase the result count for errors
		if ip == "" {
			ip = r.addr
			continue
		}
		if ip == r.addr {
			return ip, nil
		}
		return "", &Error{Kind: KindParse, Op: "resolve", Err: errors.New("IP resolvers did not agree on our IP")}
	}
	return "", &Error{Kind: KindTransport, Op: "resolve", Err: fmt.Errorf("not enough resolvers responded without errors: %w", errors.Join(errs...))}
}

func (wr *webResolver) lookup(ctx context.Context, url *url.URL) (string, error) {
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that all calls to resolve will eventually complete even if the user supplied context.Background
	// using http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: "resolve", Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: "resolve", Err: fmt.Errorf("http request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: KindTransport, Op: "resolve", Err: fmt.Errorf("http request returned %s", resp.Status)}
	}

	ipstring, _ := bufio.NewReader(resp.Body).ReadString('\n')
	ip := strings.TrimSpace(ipstring)
	if !ValidIPv4(ip) {
		return "", &Error{Kind: KindParse, Op: "resolve", Err: fmt.Errorf("invalid IP address in response body: %q", ip)}
	}
	return ip, nil
}
