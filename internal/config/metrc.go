package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Metrc modes.
const (
	MetrcProduction = "production"
	MetrcSandbox    = "sandbox"
)

// MetrcConfig holds regulator connection settings.
type MetrcConfig struct {
	Mode             string
	VendorKey        string
	SandboxVendorKey string

	// Endpoints maps a licensing state to its production base URL.
	Endpoints map[string]string
	// SandboxEndpoints maps a licensing state to its sandbox base URL.
	SandboxEndpoints map[string]string
	// Timezones maps a licensing state to an IANA zone name.
	Timezones map[string]string

	PageSize   int
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration

	LastModifiedStart string
	LastModifiedEnd   string
}

// DefaultMetrcConfig returns the built-in endpoint and timezone tables.
func DefaultMetrcConfig() MetrcConfig {
	return MetrcConfig{
		Mode: MetrcProduction,
		Endpoints: map[string]string{
			"OK": "https://api-ok.metrc.com/",
		},
		SandboxEndpoints: map[string]string{
			"OK": "https://sandbox-api-ok.metrc.com/",
		},
		Timezones:         defaultTimezones(),
		PageSize:          20,
		MaxRetries:        10,
		RetryBase:         2 * time.Second,
		LastModifiedStart: "1990-01-17T06:30:00Z",
		LastModifiedEnd:   "2099-01-17T06:30:00Z",
	}
}

// IsSandbox reports whether the sandbox environment is selected.
func (c MetrcConfig) IsSandbox() bool { return c.Mode == MetrcSandbox }

// ActiveVendorKey returns the vendor key for the selected mode.
func (c MetrcConfig) ActiveVendorKey() string {
	if c.IsSandbox() {
		return c.SandboxVendorKey
	}
	return c.VendorKey
}

// BaseURL resolves the regulator base URL for a licensing state.
// The returned URL always ends with a slash.
func (c MetrcConfig) BaseURL(state string) (string, error) {
	table := c.Endpoints
	if c.IsSandbox() {
		table = c.SandboxEndpoints
	}
	url, ok := table[strings.ToUpper(state)]
	if !ok || url == "" {
		return "", fmt.Errorf("no metrc endpoint for state %q", state)
	}
	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url, nil
}

// Location resolves the timezone of a licensing state.
func (c MetrcConfig) Location(state string) (*time.Location, error) {
	name, ok := c.Timezones[strings.ToUpper(state)]
	if !ok {
		return nil, fmt.Errorf("unknown timezone for state: %s", state)
	}
	return time.LoadLocation(name)
}

func defaultTimezones() map[string]string {
	const (
		eastern  = "America/New_York"
		central  = "America/Chicago"
		mountain = "America/Denver"
		pacific  = "America/Los_Angeles"
	)
	return map[string]string{
		"AL": central, "AK": "America/Anchorage", "AZ": "America/Phoenix", "AR": central,
		"CA": pacific, "CO": mountain, "CT": eastern, "DE": eastern,
		"FL": eastern, "GA": eastern, "HI": "Pacific/Honolulu", "ID": mountain,
		"IL": central, "IN": eastern, "IA": central, "KS": central,
		"KY": eastern, "LA": central, "ME": eastern, "MD": eastern,
		"MA": eastern, "MI": eastern, "MN": central, "MS": central,
		"MO": central, "MT": mountain, "NE": central, "NV": pacific,
		"NH": eastern, "NJ": eastern, "NM": mountain, "NY": eastern,
		"NC": eastern, "ND": central, "OH": eastern, "OK": central,
		"OR": pacific, "PA": eastern, "RI": eastern, "SC": eastern,
		"SD": central, "TN": central, "TX": central, "UT": mountain,
		"VT": eastern, "VA": eastern, "WA": pacific, "WV": eastern,
		"WI": central, "WY": mountain,
	}
}

// parseEndpoints reads "OK=https://api-ok.metrc.com/,CO=..." into table.
func parseEndpoints(raw string, table map[string]string) error {
	if raw == "" {
		return nil
	}
	for _, entry := range strings.Split(raw, ",") {
		state, url, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || state == "" || url == "" {
			return fmt.Errorf("invalid metrc endpoint entry %q", entry)
		}
		table[strings.ToUpper(state)] = url
	}
	return nil
}
