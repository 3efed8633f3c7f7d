package cfddns

import (
	"regexp"
	"strings"
)

var (
	ipv4Exact = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	ipv4Scan  = regexp.MustCompile(`([0-9]{1,3}\.){3}[0-9]{1,3}`)
)

// ValidIPv4 reports whether s looks like a dotted-quad address.
//
// Octet ranges are not checked: "999.999.999.999" is accepted.
func ValidIPv4(s string) bool {
	return ipv4Exact.MatchString(s)
}

// ScanIPv4 returns every dotted-quad token found in text, in order.
func ScanIPv4(text string) []string {
	return ipv4Scan.FindAllString(text, -1)
}

// addressLine returns the first line of out containing a JSON "address" key.
func addressLine(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, `"address":`) {
			return line, true
		}
	}
	return "", false
}
