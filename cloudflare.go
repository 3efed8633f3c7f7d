package cfddns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudflare/cloudflare-go"
)

// DefaultAPIRoot is the Cloudflare v4 API root used unless cloudflare.BaseURL says otherwise.
const DefaultAPIRoot = "https://api.cloudflare.com/client/v4"

// RecordTTL is the TTL sent with every update. 60 seconds is the lowest Cloudflare allows.
const RecordTTL = 60

// Record identifies the Cloudflare DNS record kept up to date.
//
// ZoneID and RecordID may be left empty,
// in which case they are looked up by Name the first time the record is updated.
type Record struct {
	ZoneID   string
	RecordID string
	Name     string // fully qualified, e.g. ddns.example.com
	Proxied  bool
}

func newCloudflareProvider(token string, rec Record, opts ...cloudflare.Option) (cf *cloudflareProvider, err error) {
	if rec.Name == "" {
		return nil, errors.New("record name cannot be empty")
	}
	cf = new(cloudflareProvider)
	cf.api, err = cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = discard
	cf.record = rec
	return cf, nil
}

// cloudflareProvider implements Provider.
//
// The update itself is a raw PUT so the caller can tell a non-2xx status apart from a
// well-formed response reporting "success": false.
// cloudflare-go is used for the response types and for looking up missing IDs.
type cloudflareProvider struct {
	api        *cloudflare.API
	httpClient *http.Client
	logger     *log.Logger
	record     Record
}

// recordUpdate is the body of a PUT to the dns_records endpoint.
type recordUpdate struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

func (cf *cloudflareProvider) SetLogger(l *log.Logger) { cf.logger = l }

func (cf *cloudflareProvider) SetHTTPClient(c *http.Client) {
	cf.httpClient = c
	cloudflare.HTTPClient(c)(cf.api)
}

// SetRecord implements Provider.
func (cf *cloudflareProvider) SetRecord(ctx context.Context, ip string) error {
	if cf.api == nil {
		return errors.New("cfddns: cloudflare provider should be constructed with UsingCloudflare")
	}

	if cf.record.ZoneID == "" || cf.record.RecordID == "" {
		cf.logger.Printf("looking up zone and record IDs for %s...", cf.record.Name)
		zid, rid, err := lookupRecord(ctx, cf.api, cf.record.Name, cf.record.ZoneID)
		if err != nil {
			cf.logger.Printf("record lookup failed: %s", err)
			return &Error{Kind: KindTransport, Op: "update record", Err: err}
		}
		cf.record.ZoneID, cf.record.RecordID = zid, rid
		cf.logger.Printf("found zone %s record %s", zid, rid)
	}

	body, err := json.Marshal(recordUpdate{
		Type:    "A",
		Name:    cf.record.Name,
		Content: ip,
		TTL:     RecordTTL,
		Proxied: cf.record.Proxied,
	})
	if err != nil {
		return &Error{Kind: KindParse, Op: "update record", Err: err}
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s",
		strings.TrimRight(cf.api.BaseURL, "/"),
		url.PathEscape(cf.record.ZoneID),
		url.PathEscape(cf.record.RecordID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		cf.logger.Printf("request error: %s", err)
		return &Error{Kind: KindTransport, Op: "update record", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cf.api.APIToken)
	req.Header.Set("Content-Type", "application/json")

	httpclient := cf.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}
	resp, err := httpclient.Do(req)
	if err != nil {
		cf.logger.Printf("request error: %s", err)
		return &Error{Kind: KindTransport, Op: "update record", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Reason: reasonPhrase(resp)}
		cf.logger.Print(se)
		return &Error{Kind: KindTransport, Op: "update record", Err: se}
	}

	// message is a pointer so a missing message can be told apart from an empty one
	var result struct {
		cloudflare.Response
		Errors []struct {
			Code    int     `json:"code"`
			Message *string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&result); err != nil {
		err = fmt.Errorf("error decoding response: %w", err)
		cf.logger.Printf("request error: %s", err)
		return &Error{Kind: KindParse, Op: "update record", Err: err}
	}

	if !result.Success {
		apiErr := &APIError{}
		for _, e := range result.Errors {
			msg := "unknown error"
			if e.Message != nil {
				msg = *e.Message
			}
			apiErr.Messages = append(apiErr.Messages, msg)
		}
		cf.logger.Printf("DNS update failed: %s", apiErr)
		return &Error{Kind: KindAPI, Op: "update record", Err: apiErr}
	}

	cf.logger.Printf("DNS record updated: %s -> %s", cf.record.Name, ip)
	return nil
}

// reasonPhrase returns the text after the status code in resp.Status.
func reasonPhrase(resp *http.Response) string {
	if r := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); r != "" && r != resp.Status {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

// LookupRecord finds the zone ID and the ID of the first "A" record for name.
// The zone is the longest zone name that name falls under.
func LookupRecord(ctx context.Context, api *cloudflare.API, name string) (zoneID, recordID string, err error) {
	return lookupRecord(ctx, api, name, "")
}

func lookupRecord(ctx context.Context, api *cloudflare.API, name, zid string) (zoneID, recordID string, err error) {
	if zid == "" {
		zid, err = getZoneIDFromDomain(ctx, api, name)
		if err != nil {
			return "", "", fmt.Errorf("unable to get zone ID for %s: %w", name, err)
		}
	}
	records, _, err := api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zid), cloudflare.ListDNSRecordsParams{
		Type: "A",
		Name: name,
	})
	if err != nil {
		return "", "", fmt.Errorf("error listing A records in zone %s: %w", zid, err)
	}
	if len(records) == 0 {
		return "", "", fmt.Errorf("no A record named %q in zone %s - create one first", name, zid)
	}
	return zid, records[0].ID, nil
}

func getZoneIDFromDomain(ctx context.Context, api *cloudflare.API, domain string) (zid string, err error) {
	zones, err := api.ListZones(ctx)
	if err != nil {
		return "", fmt.Errorf("error listing zones: %w", err)
	}

	max := 0
	for _, z := range zones {
		if domain != z.Name && !strings.HasSuffix(domain, "."+z.Name) {
			continue
		}
		if len(z.Name) > max {
			max, zid = len(z.Name), z.ID
		}
	}
	if max == 0 {
		return "", fmt.Errorf("unable to find a zone matching \"%s\"", domain)
	}
	return zid, nil
}

// VerifyToken checks that token is known to Cloudflare and active.
func VerifyToken(ctx context.Context, token string, opts ...cloudflare.Option) error {
	api, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return fmt.Errorf("error creating api client: %w", err)
	}
	result, err := api.VerifyAPIToken(ctx)
	if err != nil {
		return fmt.Errorf("unable to verify api token: %w", err)
	}
	if result.Status != "active" {
		return fmt.Errorf("expected api token status to be \"active\"; got \"%s\"", result.Status)
	}
	return nil
}
