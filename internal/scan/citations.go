package scan

import (
	"regexp"
	"strings"
)

// Citation is a URL found in a response, with its host component.
type Citation struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

var (
	urlPattern      = regexp.MustCompile("https?://([a-zA-Z0-9.-]+)[^\\s<>\"{}|\\\\^`\\[\\]]*")
	hostPattern     = regexp.MustCompile(`^https?://([a-zA-Z0-9.-]+)`)
	trailingPattern = regexp.MustCompile(`[.,;:!?)]+$`)
)

// ExtractCitations returns the absolute http(s) URLs in text, deduplicated by
// full URL in first-seen order. Trailing punctuation is not part of a URL.
func ExtractCitations(text string) []Citation {
	citations := []Citation{}
	seen := make(map[string]struct{})
	for _, match := range urlPattern.FindAllString(text, -1) {
		u := trailingPattern.ReplaceAllString(match, "")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		citations = append(citations, Citation{URL: u, Domain: hostOf(u)})
	}
	return citations
}

// ExtractURLs is ExtractCitations reduced to the URL strings.
func ExtractURLs(text string) []string {
	citations := ExtractCitations(text)
	urls := make([]string, len(citations))
	for i, c := range citations {
		urls[i] = c.URL
	}
	return urls
}

// CitationsFromURLs rebuilds citations from stored URL strings. Entries that
// are not absolute http(s) URLs are dropped.
func CitationsFromURLs(urls []string) []Citation {
	citations := make([]Citation, 0, len(urls))
	for _, u := range urls {
		host := hostOf(u)
		if host == "" {
			continue
		}
		citations = append(citations, Citation{URL: u, Domain: host})
	}
	return citations
}

func hostOf(u string) string {
	m := hostPattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

// SourceType classifies a cited domain into a coarse source category.
func SourceType(domain string) string {
	d := strings.ToLower(domain)
	for _, st := range sourceTypes {
		if st.pattern.MatchString(d) {
			return st.name
		}
	}
	return "Web"
}

var sourceTypes = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Video", regexp.MustCompile(`youtube|vimeo|tiktok|dailymotion`)},
	{"Social", regexp.MustCompile(`twitter|x\.com|instagram|facebook|linkedin|pinterest|snapchat`)},
	{"Forum", regexp.MustCompile(`reddit|quora|stackexchange|stackoverflow`)},
	{"Encyclopedia", regexp.MustCompile(`wikipedia|britannica`)},
	{"Institutional", regexp.MustCompile(`\.gov|\.edu`)},
	{"News", regexp.MustCompile(`reuters|bbc|cnn|nytimes|lemonde|lefigaro|theguardian|bloomberg|wsj|ft\.com|apnews|afp`)},
	{"Blog", regexp.MustCompile(`medium|substack|wordpress|ghost|blogger|tumblr`)},
}
