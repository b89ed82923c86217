// Package browser provides the authenticated page session the scrape tasks
// read from. Each task owns one session for its lifetime and quits it on exit.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Session is a stateful view onto the wagering site: it remembers the page it
// is on and serves parsed snapshots of it.
type Session interface {
	// Navigate loads the given URL and makes it the current page.
	Navigate(ctx context.Context, pageURL string) error
	// CurrentURL reports the page the session is on, empty before the first
	// Navigate.
	CurrentURL() string
	// Refresh reloads the current page.
	Refresh(ctx context.Context) error
	// PageContent parses the current page.
	PageContent() (*goquery.Document, error)
	// Cookies returns the session cookies for the site, for handing to a new
	// session.
	Cookies() []*http.Cookie
	// AddCookie installs a cookie on the session.
	AddCookie(cookie *http.Cookie)
	// Quit releases the session. The session is unusable afterwards.
	Quit()
}

type session struct {
	client  *resty.Client
	baseURL *url.URL

	mu      sync.Mutex
	current string
	body    string
	closed  bool
}

// New opens a session against the site at baseURL, carrying the given
// authentication cookies.
func New(baseURL string, cookies []*http.Cookie) (Session, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("bad base url %q: %w", baseURL, err)
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsed.Hostname()))
	client.SetTimeout(30 * time.Second)

	s := &session{client: client, baseURL: parsed}
	for _, cookie := range cookies {
		s.AddCookie(cookie)
	}
	return s, nil
}

func (s *session) Navigate(ctx context.Context, pageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	return s.load(ctx, pageURL)
}

// load fetches pageURL and stores the body. Callers hold s.mu. Fragment-only
// differences route through the same document, so the fragment is dropped for
// the request but kept in the recorded URL.
func (s *session) load(ctx context.Context, pageURL string) error {
	fetchURL := pageURL
	if i := strings.IndexByte(fetchURL, '#'); i >= 0 {
		fetchURL = fetchURL[:i]
	}
	resp, err := s.client.R().SetContext(ctx).Get(fetchURL)
	if err != nil {
		return fmt.Errorf("loading %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("loading %s: status %s", pageURL, resp.Status())
	}
	s.current = pageURL
	s.body = resp.String()
	return nil
}

func (s *session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("session is closed")
	}
	if s.current == "" {
		return fmt.Errorf("nothing to refresh, no page loaded")
	}
	return s.load(ctx, s.current)
}

func (s *session) PageContent() (*goquery.Document, error) {
	s.mu.Lock()
	body := s.body
	s.mu.Unlock()
	if body == "" {
		return nil, fmt.Errorf("no page loaded")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return doc, nil
}

func (s *session) Cookies() []*http.Cookie {
	return s.client.GetClient().Jar.Cookies(s.baseURL)
}

func (s *session) AddCookie(cookie *http.Cookie) {
	s.client.GetClient().Jar.SetCookies(s.baseURL, []*http.Cookie{cookie})
}

// ParseCookies turns a Cookie header string ("a=1; b=2") into cookies.
func ParseCookies(header string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value})
	}
	return cookies
}

func (s *session) Quit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.body = ""
	s.client.GetClient().CloseIdleConnections()
}
