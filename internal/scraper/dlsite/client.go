package dlsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"gamesort/internal/config"
	"gamesort/internal/logging"
	"gamesort/internal/scraper"
)

const (
	defaultBaseURL   = "https://www.dlsite.com/maniax/work/=/product_id"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
	defaultTimeout   = 10 * time.Second
	defaultMaxTags   = 5
	maxBodyBytes     = 8 << 20
)

// Options configure a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	// Cookies holds extra "name=value; name=value" pairs sent with every request.
	Cookies  string
	ProxyURL string
	Timeout  time.Duration
	MaxTags  int
}

// Client fetches one product page per call.
type Client struct {
	baseURL    string
	userAgent  string
	cookies    []*http.Cookie
	maxTags    int
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a client. An invalid proxy URL is an error.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		userAgent: strings.TrimSpace(opts.UserAgent),
		maxTags:   opts.MaxTags,
		logger:    logging.NewComponentLogger(logger, "dlsite"),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	if c.maxTags <= 0 {
		c.maxTags = defaultMaxTags
	}
	c.cookies = append([]*http.Cookie{{Name: "adultconfirmed", Value: "1"}}, ParseCookies(opts.Cookies)...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("dlsite: invalid proxy url %q", proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	c.httpClient = &http.Client{Timeout: timeout, Transport: transport}
	return c, nil
}

// NewFromConfig builds a client from the [scraper] section.
func NewFromConfig(cfg config.Scraper, logger *slog.Logger) (*Client, error) {
	return New(Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Cookies:   cfg.Cookies,
		ProxyURL:  cfg.ProxyURL,
		Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxTags:   cfg.MaxTags,
	}, logger)
}

// RetryPolicy converts the [scraper] retry settings.
func RetryPolicy(cfg config.Scraper) scraper.RetryPolicy {
	return scraper.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseSeconds) * time.Second,
		MaxDelay:    time.Duration(cfg.RetryMaxSeconds) * time.Second,
	}
}

// ProductURL returns the page URL for code.
func (c *Client) ProductURL(code string) string {
	return c.baseURL + "/" + url.PathEscape(code) + ".html"
}

// Fetch downloads and parses the product page for code.
func (c *Client) Fetch(ctx context.Context, code string) (scraper.Metadata, error) {
	link := c.ProductURL(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return scraper.Metadata{}, fmt.Errorf("build request for %s: %w", code, err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scraper.Metadata{}, fmt.Errorf("fetch %s: %w: %w", code, scraper.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return scraper.Metadata{}, fmt.Errorf("fetch %s: http %d: %w", code, resp.StatusCode, scraper.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return scraper.Metadata{}, fmt.Errorf("fetch %s: http %d: %w", code, resp.StatusCode, scraper.ErrTransient)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return scraper.Metadata{}, fmt.Errorf("read %s: %w: %w", code, scraper.ErrTransient, err)
	}
	finalURL := resp.Request.URL
	if finalURL != nil && strings.Contains(finalURL.Path, "age-verification") {
		return scraper.Metadata{}, fmt.Errorf("fetch %s: redirected to age verification: %w", code, scraper.ErrTransient)
	}

	reader, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return scraper.Metadata{}, fmt.Errorf("decode %s: %w: %w", code, scraper.ErrTransient, err)
	}
	doc, err := html.Parse(reader)
	if err != nil {
		return scraper.Metadata{}, fmt.Errorf("parse %s: %w: %w", code, scraper.ErrTransient, err)
	}

	meta, ok := parseProduct(doc, finalURL, c.maxTags)
	if !ok {
		if isAgeGate(finalURL, body) {
			return scraper.Metadata{}, fmt.Errorf("fetch %s: age verification page: %w", code, scraper.ErrTransient)
		}
		if isMissingProduct(doc) {
			return scraper.Metadata{}, fmt.Errorf("fetch %s: product page reports no such work: %w", code, scraper.ErrNotFound)
		}
		return scraper.Metadata{}, fmt.Errorf("fetch %s: page has no product title: %w", code, scraper.ErrTransient)
	}
	meta.Code = code
	meta.Link = link

	logging.WithContext(ctx, c.logger).Debug("product page parsed",
		logging.String("code", code),
		logging.Int("tag_count", len(meta.Tags)),
		logging.Bool("has_thumbnail", meta.ThumbnailURL != ""))
	return meta, nil
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if referer, err := url.Parse(c.baseURL); err == nil && referer.Host != "" {
		req.Header.Set("Referer", referer.Scheme+"://"+referer.Host+"/maniax/")
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
}

// Ping checks that the catalog origin answers at all.
func (c *Client) Ping(ctx context.Context) error {
	origin, err := url.Parse(c.baseURL)
	if err != nil || origin.Host == "" {
		return errors.New("dlsite: base url has no host")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, origin.Scheme+"://"+origin.Host+"/", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach %s: %w", origin.Host, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("reach %s: http %d", origin.Host, resp.StatusCode)
	}
	return nil
}

// ParseCookies splits "name=value; name=value" into cookies, skipping
// malformed pairs.
func ParseCookies(raw string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, pair := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return cookies
}
