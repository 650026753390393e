package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<html><head><title>About Dior</title><style>body{color:red}</style></head>
<body><script>var tracking = true;</script><article><h1>About Dior</h1>
<p>Dior is a French luxury house founded in 1946. It designs haute couture, ready-to-wear, leather goods and fragrances for women and men.</p>
<p>The house is headquartered on Avenue Montaigne in Paris and operates boutiques around the world.</p>
</article></body></html>`

func newSite(t *testing.T, routes map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var agents []string
	mux := http.NewServeMux()
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != path {
				http.NotFound(w, r)
				return
			}
			agents = append(agents, r.Header.Get("User-Agent"))
			fmt.Fprint(w, body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &agents
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		"dior.com":              "https://dior.com",
		"https://dior.com/":     "https://dior.com",
		"http://localhost:8080": "http://localhost:8080",
		"  dior.com  ":          "https://dior.com",
	}
	for in, want := range tests {
		if got := BaseURL(in); got != want {
			t.Errorf("BaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCrawlFromSitemap(t *testing.T) {
	var srv *httptest.Server
	srv, agents := newSite(t, map[string]string{
		"/about": articleHTML,
		"/legal": articleHTML,
	})
	// The sitemap needs the server URL, so register it after start.
	srv.Config.Handler.(*http.ServeMux).HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%[1]s/about</loc></url><url><loc>https://elsewhere.com/x</loc></url>
<url><loc>%[1]s/legal</loc></url><url><loc>%[1]s/about</loc></url></urlset>`, srv.URL)
	})

	pages, err := New(Options{UserAgent: "TestBot/1.0"}).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 same-origin pages, got %d", len(pages))
	}
	if pages[0].URL != srv.URL+"/about" {
		t.Errorf("expected sitemap order, got %s", pages[0].URL)
	}
	if pages[0].Title != "About Dior" {
		t.Errorf("expected title 'About Dior', got %q", pages[0].Title)
	}
	if !strings.Contains(pages[0].Text, "French luxury house") {
		t.Errorf("expected article text, got %q", pages[0].Text)
	}
	if strings.Contains(pages[0].Text, "tracking") {
		t.Error("expected script content to be removed")
	}
	for _, ua := range *agents {
		if ua != "TestBot/1.0" {
			t.Errorf("expected configured user agent, got %q", ua)
		}
	}
}

func TestCrawlMaxPages(t *testing.T) {
	var srv *httptest.Server
	srv, _ = newSite(t, map[string]string{"/": articleHTML})
	srv.Config.Handler.(*http.ServeMux).HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<urlset>")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&b, "<url><loc>%s/p%d</loc></url>", srv.URL, i)
		}
		b.WriteString("</urlset>")
		fmt.Fprint(w, b.String())
	})

	c := New(Options{MaxPages: 3})
	urls := c.discover(context.Background(), srv.URL)
	if len(urls) != 3 {
		t.Errorf("expected 3 urls, got %d", len(urls))
	}
}

func TestCrawlFeedFallback(t *testing.T) {
	var srv *httptest.Server
	srv, _ = newSite(t, map[string]string{"/news/launch": articleHTML})
	srv.Config.Handler.(*http.ServeMux).HandleFunc("/rss.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>News</title>
<item><title>Launch</title><link>%s/news/launch</link></item>
<item><title>Elsewhere</title><link>https://elsewhere.com/post</link></item>
</channel></rss>`, srv.URL)
	})

	pages, err := New(Options{}).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || pages[0].URL != srv.URL+"/news/launch" {
		t.Fatalf("expected the feed item page, got %+v", pages)
	}
}

func TestCrawlHomePageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	pages, err := New(Options{}).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || pages[0].URL != srv.URL {
		t.Fatalf("expected only the base url, got %+v", pages)
	}
}

func TestCrawlSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pages, err := New(Options{}).Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch failures should not error, got %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages, got %d", len(pages))
	}
}

func TestCrawlRequiresDomain(t *testing.T) {
	if _, err := New(Options{}).Crawl(context.Background(), " "); err == nil {
		t.Error("expected error for empty domain")
	}
}

func TestExtractTextTruncates(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("é", MaxTextLength+500) + "</p></body></html>"
	text := ExtractText("https://dior.com", []byte(long))
	if got := len([]rune(text)); got != MaxTextLength {
		t.Errorf("expected %d runes, got %d", MaxTextLength, got)
	}
}

func TestStripTags(t *testing.T) {
	got := stripTags(`<style>x{}</style><p>Hello&nbsp;<b>world</b></p><script>alert(1)</script>`)
	if got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

type memoryStore struct {
	pages map[string]string
	fail  bool
}

func (m *memoryStore) UpsertBrandPage(projectID, url string, title *string, content string) error {
	if m.fail {
		return errors.New("read-only")
	}
	m.pages[url] = content
	return nil
}

func TestSave(t *testing.T) {
	store := &memoryStore{pages: map[string]string{}}
	n, err := Save(store, "p1", []Page{{URL: "https://a", Text: "a"}, {URL: "https://b", Title: "B", Text: "b"}})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 saved, got %d (%v)", n, err)
	}

	store.fail = true
	if _, err := Save(store, "p1", []Page{{URL: "https://c"}}); err == nil {
		t.Error("expected store error")
	}
}
