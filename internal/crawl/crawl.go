// Package crawl fetches readable text from a brand's own site.
package crawl

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
)

const (
	// MaxTextLength caps the stored text per page, in runes.
	MaxTextLength = 3000

	defaultMaxPages  = 20
	defaultTimeout   = 8 * time.Second
	defaultUserAgent = "GEOMonitor-Bot/1.0"
	maxBodyBytes     = 4 << 20
)

var (
	locPattern    = regexp.MustCompile(`<loc>\s*(.*?)\s*</loc>`)
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
)

// feedPaths are tried in order when the site has no usable sitemap.
var feedPaths = []string{"/feed", "/rss.xml", "/atom.xml"}

// Page is the readable text of one crawled URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Options tunes a Crawler.
type Options struct {
	MaxPages  int
	Timeout   time.Duration
	UserAgent string
}

// Crawler discovers and fetches pages of a single site.
type Crawler struct {
	client *http.Client
	opts   Options
}

// New creates a Crawler. Zero options fall back to 20 pages, an 8s
// per-request timeout and the GEOMonitor bot user agent.
func New(opts Options) *Crawler {
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Crawler{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// BaseURL turns a bare domain into an https origin.
func BaseURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

// Crawl discovers up to MaxPages URLs on the domain (sitemap, then feed,
// then the home page) and returns the pages that yielded text. Individual
// fetch failures are skipped.
func (c *Crawler) Crawl(ctx context.Context, domain string) ([]Page, error) {
	if strings.TrimSpace(domain) == "" {
		return nil, fmt.Errorf("crawl: domain is required")
	}
	base := BaseURL(domain)
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("crawl: invalid domain %q: %w", domain, err)
	}

	urls := c.discover(ctx, base)
	log.Printf("Crawling %d pages from %s", len(urls), base)

	var pages []Page
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		page, ok := c.fetchPage(ctx, u)
		if !ok {
			continue
		}
		pages = append(pages, page)
	}

	log.Printf("Crawl complete: %d of %d pages had text", len(pages), len(urls))
	return pages, nil
}

func (c *Crawler) discover(ctx context.Context, base string) []string {
	if urls := c.fromSitemap(ctx, base); len(urls) > 0 {
		return urls
	}
	if urls := c.fromFeed(ctx, base); len(urls) > 0 {
		return urls
	}
	return []string{base}
}

func (c *Crawler) fromSitemap(ctx context.Context, base string) []string {
	body, err := c.get(ctx, base+"/sitemap.xml")
	if err != nil {
		return nil
	}
	var candidates []string
	for _, m := range locPattern.FindAllSubmatch(body, -1) {
		candidates = append(candidates, html.UnescapeString(string(m[1])))
	}
	return c.sameOrigin(base, candidates)
}

func (c *Crawler) fromFeed(ctx context.Context, base string) []string {
	parser := gofeed.NewParser()
	for _, path := range feedPaths {
		body, err := c.get(ctx, base+path)
		if err != nil {
			continue
		}
		feed, err := parser.Parse(bytes.NewReader(body))
		if err != nil {
			continue
		}
		var candidates []string
		for _, item := range feed.Items {
			if item.Link != "" {
				candidates = append(candidates, item.Link)
			}
		}
		if urls := c.sameOrigin(base, candidates); len(urls) > 0 {
			return urls
		}
	}
	return nil
}

// sameOrigin keeps the first MaxPages distinct candidates under base.
func (c *Crawler) sameOrigin(base string, candidates []string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, u := range candidates {
		if !strings.HasPrefix(u, base) || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
		if len(urls) >= c.opts.MaxPages {
			break
		}
	}
	return urls
}

func (c *Crawler) fetchPage(ctx context.Context, pageURL string) (Page, bool) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		log.Printf("Skipping %s: %v", pageURL, err)
		return Page{}, false
	}

	text := ExtractText(pageURL, body)
	if text == "" {
		return Page{}, false
	}
	page := Page{URL: pageURL, Text: text}
	if m := titlePattern.FindSubmatch(body); m != nil {
		page.Title = collapse(html.UnescapeString(string(m[1])))
	}
	return page, true
}

func (c *Crawler) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &httpError{code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// ExtractText returns the readable text of an HTML document, truncated to
// MaxTextLength runes. Readability extraction is preferred; documents it
// cannot handle fall back to tag stripping.
func ExtractText(pageURL string, body []byte) string {
	var text string
	if parsed, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(bytes.NewReader(body), parsed); err == nil {
			text = collapse(article.TextContent)
		}
	}
	if text == "" {
		text = stripTags(string(body))
	}
	return truncateRunes(text, MaxTextLength)
}

func stripTags(doc string) string {
	doc = scriptPattern.ReplaceAllString(doc, "")
	doc = stylePattern.ReplaceAllString(doc, "")
	doc = tagPattern.ReplaceAllString(doc, " ")
	return collapse(html.UnescapeString(doc))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}
