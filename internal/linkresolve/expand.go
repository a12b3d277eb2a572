package linkresolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const maxRedirectHops = 5

// ErrExpand is returned when a short link cannot be followed.
var ErrExpand = errors.New("short link expansion failed")

// expander follows short links with HEAD requests. Requests are throttled
// and results cached by the short URL.
type expander struct {
	client  *http.Client
	hosts   []string
	limiter *rate.Limiter
	cache   *lru.Cache
}

func newExpander(client *http.Client, hosts []string, limiter *rate.Limiter, cacheSize int) (*expander, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	// redirects are read from Location, never followed by the client
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			normalized = append(normalized, h)
		}
	}
	return &expander{client: &c, hosts: normalized, limiter: limiter, cache: cache}, nil
}

// isShort reports whether u points at a known link shortener. Entries with
// a port match host and port exactly.
func (e *expander) isShort(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, h := range e.hosts {
		if strings.Contains(h, ":") {
			if strings.ToLower(u.Host) == h {
				return true
			}
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// expand resolves u to the URL its redirects lead to, stopping at the
// first hop that is no longer a short link or is not a redirect.
func (e *expander) expand(ctx context.Context, u *url.URL) (*url.URL, error) {
	key := u.String()
	if v, ok := e.cache.Get(key); ok {
		return v.(*url.URL), nil
	}

	current := u
	for hop := 0; hop < maxRedirectHops; hop++ {
		next, redirected, err := e.head(ctx, current)
		if err != nil {
			return nil, err
		}
		current = next
		if !redirected || !e.isShort(current) {
			break
		}
	}

	e.cache.Add(key, current)
	return current, nil
}

func (e *expander) head(ctx context.Context, u *url.URL) (*url.URL, bool, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrExpand, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExpand, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrExpand, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if loc == "" {
			return nil, false, fmt.Errorf("%w: %s without location", ErrExpand, resp.Status)
		}
		next, err := u.Parse(loc)
		if err != nil {
			return nil, false, fmt.Errorf("%w: bad location %q", ErrExpand, loc)
		}
		return next, true, nil
	}
	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("%w: %s", ErrExpand, resp.Status)
	}
	return resp.Request.URL, false, nil
}
