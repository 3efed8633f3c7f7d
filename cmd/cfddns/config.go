package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Travis-Britz/cfddns"
	"github.com/joho/godotenv"
)

const (
	defaultEnvFile = "/etc/cfddns.env"
	defaultLogTag  = "cloudflare-ddns"
)

// usageOutput receives flag errors and usage text.
var usageOutput io.Writer = os.Stderr

var defaultWebServices = []string{
	"https://ipv4.icanhazip.com/",
	"https://checkip.amazonaws.com/",
	"https://api.ipify.org/",
}

// Config holds everything a run needs. It is built once at start-up by loadConfig.
type Config struct {
	Token     string
	ZoneID    string
	RecordID  string
	Name      string
	Proxied   bool
	StateFile string
	LogTag    string

	Resolver  string // ubus, iface or web
	Interface string
	IP        string
	Services  []string
	APIRoot   string
	KeyFile   string
	EnvFile   string
	Lookup    bool
	Verbose   bool
}

// loadConfig merges, in increasing precedence: defaults, the env file, the environment, and args.
// getenv is os.Getenv outside of tests.
func loadConfig(args []string, getenv func(string) string) (*Config, error) {
	var f Config
	var services, proxied string
	flags := flag.NewFlagSet("cfddns", flag.ContinueOnError)
	flags.SetOutput(usageOutput)
	flags.StringVar(&f.Name, "d", "", "DNS entry to update, e.g. ddns.example.com")
	flags.StringVar(&f.ZoneID, "zone", "", "Cloudflare zone ID (looked up from -d when empty)")
	flags.StringVar(&f.RecordID, "record", "", "Cloudflare DNS record ID (looked up from -d when empty)")
	flags.StringVar(&proxied, "proxied", "", "Route traffic through Cloudflare's proxy (true/false)")
	flags.StringVar(&f.StateFile, "state", "", "File holding the last published IP")
	flags.StringVar(&f.LogTag, "tag", "", "Syslog tag")
	flags.StringVar(&f.Resolver, "resolver", "", "How to find the public IP: ubus, iface or web")
	flags.StringVar(&f.Interface, "iface", "", "Interface to query (ubus logical name or OS interface name)")
	flags.StringVar(&f.IP, "ip", "", "IP address to set instead of discovering one")
	flags.StringVar(&services, "web", "", "Comma separated IP lookup services used by -resolver=web")
	flags.StringVar(&f.APIRoot, "api", "", "Cloudflare API root")
	flags.StringVar(&f.KeyFile, "k", "", "Path to cloudflare API token file")
	flags.StringVar(&f.EnvFile, "env", "", "Path to an env file with CLOUDFLARE_* and CFDDNS_* settings")
	flags.BoolVar(&f.Lookup, "lookup", false, "Print the zone and record IDs for -d and exit")
	flags.BoolVar(&f.Verbose, "v", false, "Also write log lines to stderr")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	flags.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	envFile := first(f.EnvFile, getenv("CFDDNS_ENV_FILE"))
	fileEnv, err := readEnvFile(envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	}
	pick := func(flagName, envKey, def string) string {
		if set[flagName] {
			return flagValue(flags, flagName)
		}
		return first(lookup(envKey), def)
	}

	cfg := &Config{
		Token:     lookup("CLOUDFLARE_API_TOKEN"),
		ZoneID:    pick("zone", "CLOUDFLARE_ZONE_ID", ""),
		RecordID:  pick("record", "CLOUDFLARE_RECORD_ID", ""),
		Name:      pick("d", "CFDDNS_NAME", ""),
		StateFile: pick("state", "CFDDNS_STATE_FILE", cfddns.DefaultStateFile),
		LogTag:    pick("tag", "CFDDNS_LOG_TAG", defaultLogTag),
		Resolver:  pick("resolver", "CFDDNS_RESOLVER", "ubus"),
		Interface: pick("iface", "CFDDNS_INTERFACE", ""),
		IP:        pick("ip", "CFDDNS_IP", ""),
		APIRoot:   pick("api", "CLOUDFLARE_API_ROOT", cfddns.DefaultAPIRoot),
		KeyFile:   pick("k", "CFDDNS_KEY_FILE", filepath.Join(getenv("HOME"), ".cloudflare")),
		EnvFile:   envFile,
		Lookup:    f.Lookup,
		Verbose:   f.Verbose,
	}

	p := pick("proxied", "CFDDNS_PROXIED", "false")
	if cfg.Proxied, err = strconv.ParseBool(p); err != nil {
		return nil, fmt.Errorf("invalid proxied value %q: %w", p, err)
	}

	for _, s := range strings.Split(pick("web", "CFDDNS_WEB_SERVICES", ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Services = append(cfg.Services, s)
		}
	}
	if len(cfg.Services) == 0 {
		cfg.Services = defaultWebServices
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Name == "" {
		return errors.New("domain cannot be empty")
	}
	if !strings.Contains(c.Name, ".") {
		return errors.New("domain must have at least one dot")
	}
	switch c.Resolver {
	case "ubus", "iface", "web":
	default:
		return fmt.Errorf("unknown resolver %q; expected ubus, iface or web", c.Resolver)
	}
	if c.IP != "" && !cfddns.ValidIPv4(c.IP) {
		return fmt.Errorf("invalid IP address %q", c.IP)
	}
	return nil
}

// readEnvFile reads path with godotenv.
// The default path may be missing; an explicitly named one may not.
func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	m, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return m, nil
}

func flagValue(flags *flag.FlagSet, name string) string {
	return flags.Lookup(name).Value.String()
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// record returns the Cloudflare record described by c.
func (c *Config) record() cfddns.Record {
	return cfddns.Record{
		ZoneID:   c.ZoneID,
		RecordID: c.RecordID,
		Name:     c.Name,
		Proxied:  c.Proxied,
	}
}
