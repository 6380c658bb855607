package calendar

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider classifies the scheduling system behind a calendar link.
type Provider string

const (
	ProviderCalCom   Provider = "cal_com"
	ProviderCalendly Provider = "calendly"
	ProviderICal     Provider = "ical"
	ProviderUnknown  Provider = "unknown"
)

// UnsupportedProviderError marks a provider that is detected but has
// no fetcher. Callers surface it to the client as an explicit manual
// fallback rather than an empty slot list.
type UnsupportedProviderError struct {
	Provider Provider
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("calendar provider %q is not supported", e.Provider)
}

// Detect classifies a calendar URL by string pattern. No network call.
func Detect(link string) Provider {
	link = strings.TrimSpace(strings.ToLower(link))
	if link == "" {
		return ProviderUnknown
	}
	if strings.HasSuffix(strings.TrimSuffix(link, "/"), ".ics") {
		return ProviderICal
	}
	host := hostOf(link)
	switch {
	case host == "cal.com" || strings.HasSuffix(host, ".cal.com") || strings.Contains(link, "cal.com/"):
		return ProviderCalCom
	case host == "calendly.com" || strings.HasSuffix(host, ".calendly.com") || strings.Contains(link, "calendly.com/"):
		return ProviderCalendly
	default:
		return ProviderUnknown
	}
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}
