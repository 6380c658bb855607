package calendar

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		link string
		want Provider
	}{
		{"https://cal.com/alice", ProviderCalCom},
		{"https://cal.com/alice/30min", ProviderCalCom},
		{"https://app.cal.com/bob", ProviderCalCom},
		{"https://calendly.com/carol", ProviderCalendly},
		{"https://calendly.com/carol/intro-call", ProviderCalendly},
		{"https://example.com/feeds/x.ics", ProviderICal},
		{"webcal://example.com/busy.ics", ProviderICal},
		{"https://example.com", ProviderUnknown},
		{"", ProviderUnknown},
		{"not a url", ProviderUnknown},
	}
	for _, tc := range cases {
		if got := Detect(tc.link); got != tc.want {
			t.Fatalf("Detect(%q) = %q, want %q", tc.link, got, tc.want)
		}
	}
}
