// Package archive speaks the legacy broadcast archive's wire protocol:
// the stateful login handshake, listing-page navigation, and segment
// fetches. Every request goes through the site's single entry script and
// is driven by query parameters; there are no stable resource IDs.
package archive

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"aircheck/internal/models"
)

// userAgent mimics a desktop browser. The archive serves different (and
// sometimes empty) responses to non-browser agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/605.1.15 (KHTML, like Gecko) " +
	"Chrome/117.0.5938.150 Safari/605.1.15"

// Client holds the authenticated session against one archive instance.
// After Login succeeds the client is effectively read-only; only the
// cookie jar mutates as the server rotates session cookies.
type Client struct {
	baseURL     string
	origin      string
	stationCode string
	http        *http.Client
	logger      *log.Logger
}

// New creates an unauthenticated client for the given normalized base URL.
func New(baseURL string, logger *log.Logger) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		baseURL: baseURL,
		origin:  parsed.Scheme + "://" + parsed.Host,
		http:    &http.Client{Jar: jar},
		logger:  logger,
	}, nil
}

// StationCode returns the configured or discovered station code.
func (c *Client) StationCode() string { return c.stationCode }

// SetStationCode fixes the station code used in segment filenames. It must
// be called before SegmentRequests.
func (c *Client) SetStationCode(code string) { c.stationCode = strings.TrimSpace(code) }

// AuthError reports a failed step of the login handshake. Any AuthError is
// fatal for the run; there is no partial-session fallback.
type AuthError struct {
	Step   string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("login %s: unexpected status %d", e.Step, e.Status)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Login performs the archive's three-step handshake: load the login form
// to establish session cookies, POST the credentials with the browser
// headers the server checks, then visit the landing page to finalize the
// server-side session. All three steps share one cookie jar; failing any
// step fails the login.
func (c *Client) Login(ctx context.Context, username, password string) error {
	formURL := c.baseURL + "?pp=1"

	formResp, err := c.get(ctx, formURL, "")
	if err := expectOK("form", formResp, err); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("pp", "1")
	form.Set("pn", username)
	form.Set("ps", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return &AuthError{Step: "credentials", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", formURL)
	req.Header.Set("Origin", c.origin)

	postResp, err := c.http.Do(req)
	if err := expectOK("credentials", postResp, err); err != nil {
		return err
	}

	landResp, err := c.get(ctx, c.baseURL+"?pc=3", "")
	if err := expectOK("finalize", landResp, err); err != nil {
		return err
	}

	return nil
}

// expectOK consumes a response and converts transport errors or non-2xx
// statuses into an AuthError for the named step.
func expectOK(step string, resp *http.Response, err error) error {
	if err != nil {
		return &AuthError{Step: step, Err: err}
	}
	defer drain(resp)
	if resp.StatusCode/100 != 2 {
		return &AuthError{Step: step, Status: resp.StatusCode}
	}
	return nil
}

// PrimeListing loads the listing page for the given date. The server only
// authorizes segment fetches after the matching listing page was visited
// in the same session.
func (c *Client) PrimeListing(ctx context.Context, date time.Time) error {
	resp, err := c.get(ctx, ListingURL(c.baseURL, date), "")
	if err != nil {
		return fmt.Errorf("prime listing for %s: %w", date.Format("2006-01-02"), err)
	}
	defer drain(resp)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("prime listing for %s: unexpected status %d",
			date.Format("2006-01-02"), resp.StatusCode)
	}
	return nil
}

// FetchResult is the raw server answer for one segment request. The caller
// owns Body and must close it.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
}

// FetchSegment requests one segment's bytes with the navigation Referer
// attached. Classification of the result (audio vs. error page) is the
// caller's concern; only transport failures return an error.
func (c *Client) FetchSegment(ctx context.Context, seg models.SegmentRequest) (FetchResult, error) {
	resp, err := c.get(ctx, seg.URL, seg.Referer)
	if err != nil {
		return FetchResult{}, err
	}
	return FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL, referer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
