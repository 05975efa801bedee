package preview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

// Typed failure causes. Callers distinguish them with errors.Is and must
// surface each as a distinct, human-readable error.
var (
	ErrTimeout = errors.New("preview fetch timed out")
	ErrBlocked = errors.New("preview fetch blocked")
	ErrParse   = errors.New("preview parse error")
)

// Preview is best-effort metadata scraped from a product page.
type Preview struct {
	URL   string
	Title string
	Image string
	Price string
}

// Fetcher retrieves preview metadata for an arbitrary URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Preview, error)
}

// HTTPFetcher fetches and parses pages over plain HTTP with a bounded
// per-request timeout.
type HTTPFetcher struct {
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration, logger *zerolog.Logger) *HTTPFetcher {
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log,
	}
}

// Fetch retrieves the page and extracts title, image, and price from its
// Open Graph metadata, falling back to the document title.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, rawURL)
	}
	req.Header.Set("User-Agent", "shopchat-preview/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("%w: %v", ErrBlocked, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrBlocked, resp.StatusCode, rawURL)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	p := &Preview{URL: rawURL}
	extract(doc, p)
	if p.Title == "" {
		return nil, fmt.Errorf("%w: no usable metadata at %s", ErrParse, rawURL)
	}

	f.log.Debug().Str("url", rawURL).Str("title", p.Title).Msg("preview fetched")
	return p, nil
}

func extract(n *html.Node, p *Preview) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "meta":
			prop := attr(n, "property")
			if prop == "" {
				prop = attr(n, "name")
			}
			content := attr(n, "content")
			switch prop {
			case "og:title":
				p.Title = content
			case "og:image":
				p.Image = content
			case "og:price:amount", "product:price:amount":
				p.Price = content
			}
		case "title":
			if p.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				p.Title = strings.TrimSpace(n.FirstChild.Data)
			}
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		extract(child, p)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
