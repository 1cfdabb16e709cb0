package crawler

import (
	"net/url"
	"path"
	"strings"
)

// blockedExtensions are binary asset suffixes the crawler never fetches:
// images, video, audio, and PDFs.
var blockedExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico", ".bmp", ".tiff", ".avif",
	".mp4", ".webm", ".mov", ".avi", ".mkv", ".m4v",
	".mp3", ".wav", ".ogg", ".m4a", ".flac", ".aac",
	".pdf",
}

// searchEngineHosts are hostnames whose links never belong to the hotel's
// own site; anchors pointing at them are dropped at harvest time.
var searchEngineHosts = []string{
	"google.com", "www.google.com", "maps.google.com",
	"bing.com", "www.bing.com",
	"duckduckgo.com", "www.duckduckgo.com",
	"yahoo.com", "search.yahoo.com",
	"yandex.com", "www.yandex.com",
	"baidu.com", "www.baidu.com",
}

// IsBlockedExtension reports whether the URL path ends in a binary asset suffix
func IsBlockedExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" {
		return false
	}
	for _, blocked := range blockedExtensions {
		if ext == blocked {
			return true
		}
	}
	return false
}

// IsSearchEngineHost reports whether the hostname belongs to a search engine
func IsSearchEngineHost(host string) bool {
	host = strings.ToLower(host)
	for _, engine := range searchEngineHosts {
		if host == engine {
			return true
		}
	}
	return false
}

// ResolveLink resolves an anchor href for enqueueing: absolute against the
// base, same origin, http(s) only, no javascript:/tel:/mailto:, no blocked
// asset extension. Returns "" when the link must not be enqueued.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "tel:", "mailto:", "data:", "sms:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if !strings.EqualFold(resolved.Hostname(), base.Hostname()) {
		return ""
	}
	if IsBlockedExtension(resolved.String()) {
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}
