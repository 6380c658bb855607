package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/availability"
)

// Cal.com exposes a public availability endpoint; slot entries carry a
// start time only, so each is treated as a fixed one-hour window.
const calComSlotDuration = time.Hour

type Fetcher interface {
	// FetchBusy returns the busy intervals implied by a calendar link:
	// everything within [from, to) that is NOT an available slot.
	FetchBusy(ctx context.Context, link string, from, to time.Time) ([]availability.Interval, error)
	// FetchSlots returns the available slots advertised by the link.
	FetchSlots(ctx context.Context, link string, from, to time.Time) ([]availability.Slot, error)
}

// Client dispatches to a provider-specific fetcher. Only the Cal.com
// path is implemented; Calendly and raw iCal feeds return
// UnsupportedProviderError so the caller can fall back to manual
// proposals.
type Client struct {
	calcom *CalComClient
	logger *slog.Logger
}

var _ Fetcher = (*Client)(nil)

func NewClient(calcom *CalComClient, logger *slog.Logger) *Client {
	return &Client{calcom: calcom, logger: logger}
}

func (c *Client) FetchSlots(ctx context.Context, link string, from, to time.Time) ([]availability.Slot, error) {
	switch Detect(link) {
	case ProviderCalCom:
		return c.calcom.Availability(ctx, link, from, to)
	case ProviderCalendly:
		c.logger.Warn("calendly calendar links are not supported yet", "link", link)
		return nil, &UnsupportedProviderError{Provider: ProviderCalendly}
	case ProviderICal:
		c.logger.Warn("ical calendar links are not supported yet", "link", link)
		return nil, &UnsupportedProviderError{Provider: ProviderICal}
	default:
		return nil, &UnsupportedProviderError{Provider: ProviderUnknown}
	}
}

func (c *Client) FetchBusy(ctx context.Context, link string, from, to time.Time) ([]availability.Interval, error) {
	slots, err := c.FetchSlots(ctx, link, from, to)
	if err != nil {
		return nil, err
	}
	return BusyFromSlots(slots, from, to), nil
}

// BusyFromSlots inverts a free-slot list over [from, to): any gap
// between advertised slots is a busy interval. Providers do not
// guarantee slot order, so the walk runs over a sorted copy.
func BusyFromSlots(slots []availability.Slot, from, to time.Time) []availability.Interval {
	sorted := make([]availability.Slot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var busy []availability.Interval
	cursor := from
	for _, s := range sorted {
		if s.Start.After(cursor) {
			busy = append(busy, availability.Interval{Start: cursor, End: s.Start})
		}
		if s.End.After(cursor) {
			cursor = s.End
		}
	}
	if cursor.Before(to) {
		busy = append(busy, availability.Interval{Start: cursor, End: to})
	}
	return busy
}

// CalComClient calls the public Cal.com availability REST endpoint.
type CalComClient struct {
	baseURL string
	http    *http.Client
	cache   *Cache
	logger  *slog.Logger
}

func NewCalComClient(baseURL string, cache *Cache, logger *slog.Logger) *CalComClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.cal.com"
	}
	return &CalComClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
		logger:  logger,
	}
}

type calComResponse struct {
	Slots []calComSlot `json:"slots"`
}

type calComSlot struct {
	Time string `json:"time"`
}

// Availability fetches the advertised slots for the user behind a
// cal.com link. Responses are cached briefly; cache failures never
// fail the fetch.
func (c *CalComClient) Availability(ctx context.Context, link string, from, to time.Time) ([]availability.Slot, error) {
	username := usernameFromLink(link)
	if username == "" {
		return nil, fmt.Errorf("cannot extract cal.com username from link %q", link)
	}

	cacheKey := fmt.Sprintf("calcom:%s:%s:%s", username, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if c.cache != nil {
		if slots, ok := c.cache.Get(ctx, cacheKey); ok {
			return slots, nil
		}
	}

	q := url.Values{}
	q.Set("username", username)
	q.Set("dateFrom", from.UTC().Format(time.RFC3339))
	q.Set("dateTo", to.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/availability?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cal.com availability returned status %d", resp.StatusCode)
	}

	var body calComResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cal.com availability: invalid response: %w", err)
	}

	slots := make([]availability.Slot, 0, len(body.Slots))
	for _, s := range body.Slots {
		start, err := time.Parse(time.RFC3339, s.Time)
		if err != nil {
			c.logger.Warn("cal.com slot with unparseable time skipped", "time", s.Time)
			continue
		}
		slots = append(slots, availability.Slot{Start: start, End: start.Add(calComSlotDuration)})
	}

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, slots)
	}
	return slots, nil
}

// usernameFromLink pulls the username out of links like
// https://cal.com/alice or https://cal.com/alice/30min.
func usernameFromLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
