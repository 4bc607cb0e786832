// Package portal fetches auxiliary products from the SDC team web site,
// which sits behind a cookie-based login form.
package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"golang.org/x/net/html"

	"github.com/sdejongh/versync/pkg/logging"
)

// ErrLoginFailed is returned when the portal still shows a login form
// after credentials were submitted
var ErrLoginFailed = errors.New("portal login failed")

// Link is an anchor found on a portal page
type Link struct {
	Text string
	URL  string
}

// Client is a logged-in browser session against the portal
type Client struct {
	http   *req.Client
	logger logging.Logger
}

// NewClient creates a client with an empty cookie jar
func NewClient(userAgent string, timeout time.Duration, logger logging.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("portal: cookie jar: %w", err)
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	c := req.C().
		SetCookieJar(jar).
		SetUserAgent(userAgent).
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(time.Second)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}

	return &Client{http: c, logger: logger}, nil
}

// Login submits user and pass through the first form on pageURL, keeping
// its hidden inputs, then reloads the page to confirm the session. A page
// without a password form is taken as already authenticated.
func (c *Client) Login(ctx context.Context, pageURL, user, pass string) error {
	doc, base, err := c.page(ctx, pageURL)
	if err != nil {
		return err
	}

	f := firstForm(doc)
	if f == nil || f.password == "" {
		c.logger.Debug(ctx, "no login form", logging.Fields{"url": pageURL})
		return nil
	}

	action := base
	if f.action != "" {
		if action, err = base.Parse(f.action); err != nil {
			return fmt.Errorf("portal: form action %q: %w", f.action, err)
		}
	}

	data := f.fields
	if f.username != "" {
		data[f.username] = user
	}
	data[f.password] = pass

	var resp *req.Response
	if strings.EqualFold(f.method, "get") {
		resp, err = c.http.R().SetContext(ctx).SetQueryParams(data).Get(action.String())
	} else {
		resp, err = c.http.R().SetContext(ctx).SetFormData(data).Post(action.String())
	}
	if err := check(resp, err, "login"); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	doc, _, err = c.page(ctx, pageURL)
	if err != nil {
		return err
	}
	if f := firstForm(doc); f != nil && f.password != "" {
		return ErrLoginFailed
	}

	c.logger.Debug(ctx, "logged in", logging.Fields{"url": pageURL, "user": user})
	return nil
}

// Links returns every anchor on the page with its href resolved against
// the page URL
func (c *Client) Links(ctx context.Context, pageURL string) ([]Link, error) {
	doc, base, err := c.page(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	var links []Link
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}
		href, ok := attr(n, "href")
		if !ok {
			return false
		}
		u, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return false
		}
		links = append(links, Link{Text: strings.TrimSpace(text(n)), URL: u.String()})
		return false
	})
	return links, nil
}

// Download returns the body at rawURL
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	if err := check(resp, err, "download "+rawURL); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

// Open streams the body at rawURL. The size is -1 when the server does
// not announce it.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	resp, err := c.http.R().SetContext(ctx).DisableAutoReadResponse().Get(rawURL)
	if err := check(resp, err, "open "+rawURL); err != nil {
		if resp != nil && resp.Response != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// page fetches and parses an HTML page, returning its final URL
func (c *Client) page(ctx context.Context, pageURL string) (*html.Node, *url.URL, error) {
	resp, err := c.http.R().SetContext(ctx).Get(pageURL)
	if err := check(resp, err, "get "+pageURL); err != nil {
		return nil, nil, err
	}

	doc, err := html.Parse(bytes.NewReader(resp.Bytes()))
	if err != nil {
		return nil, nil, fmt.Errorf("portal: parse %s: %w", pageURL, err)
	}

	base := resp.Response.Request.URL
	return doc, base, nil
}

func check(resp *req.Response, err error, operation string) error {
	if err != nil {
		return fmt.Errorf("portal: %s: %w", operation, err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("portal: %s: %s", operation, resp.GetStatus())
	}
	return nil
}
