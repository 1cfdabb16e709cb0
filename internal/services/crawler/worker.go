package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// harvestLinksJS collects candidate hrefs from the live DOM before any
// cleaner mutation. Ad-scoped anchors and search-engine targets are
// filtered browser-side; scheme/extension/depth filtering happens in Go.
const harvestLinksJS = `(() => {
	const adRe = /\b(ad|ads|advertisement)\b/i;
	const insideAd = (el) => {
		for (let n = el; n; n = n.parentElement) {
			const id = n.id || "";
			const cls = (typeof n.className === "string" ? n.className : "");
			if (adRe.test(id) || adRe.test(cls)) return true;
		}
		return false;
	};
	const out = [];
	for (const a of Array.from(document.querySelectorAll("a[href]"))) {
		if (insideAd(a)) continue;
		const href = a.getAttribute("href") || "";
		if (href) out.push(href);
	}
	return out;
})()`

const lazyScrollMaxIterations = 25

// pageResult is what one processed URL contributes to the crawl
type pageResult struct {
	finalURL string
	links    []string
}

// processURL drives one browser tab through the full page pipeline:
// navigate, lazy-scroll, stabilize, error-check, snapshot, harvest links,
// clean, convert, checksum, persist.
func (s *Service) processURL(ctx context.Context, hotelID string, item *URLQueueItem) (*pageResult, error) {
	tabCtx, closeTab, err := s.pool.NewTab()
	if err != nil {
		return nil, err
	}
	defer closeTab()

	pageCtx, cancel := context.WithTimeout(tabCtx, s.requestTimeout)
	defer cancel()

	// The main-document HTTP status arrives as a network event, not a
	// return value; record the first document response.
	var statusMu sync.Mutex
	var statusCode int
	if err := chromedp.Run(pageCtx, network.Enable()); err != nil {
		return nil, fmt.Errorf("failed to enable network events: %w", err)
	}
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				statusMu.Lock()
				if statusCode == 0 {
					statusCode = int(resp.Response.Status)
				}
				statusMu.Unlock()
			}
		}
	})

	if err := chromedp.Run(pageCtx, chromedp.Navigate(item.URL)); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	// DOM-ready and body waits are bounded and non-fatal; heavy pages are
	// caught by the stabilizer afterwards.
	waitCtx, waitCancel := context.WithTimeout(pageCtx, 10*time.Second)
	if err := chromedp.Run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		s.logger.Debug().Str("url", item.URL).Err(err).Msg("Body wait timed out")
	}
	waitCancel()

	s.lazyScroll(pageCtx, item.URL)

	stabilizer := NewStabilizer(s.logger)
	if err := stabilizer.WaitForStable(pageCtx, stabilizerParamsForDepth(item.Depth)); err != nil {
		return nil, fmt.Errorf("stabilization cancelled: %w", err)
	}

	// Redirects are honored: the effective URL is the storage key.
	var finalURL, title, rawHTML string
	if err := chromedp.Run(pageCtx,
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
	); err != nil {
		return nil, fmt.Errorf("failed to read page location: %w", err)
	}

	statusMu.Lock()
	status := statusCode
	statusMu.Unlock()
	if status >= 400 || strings.Contains(title, "404") || strings.Contains(title, "500") {
		return nil, fmt.Errorf("error page: status=%d title=%q", status, title)
	}

	if err := chromedp.Run(pageCtx, chromedp.OuterHTML("html", &rawHTML, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to snapshot html: %w", err)
	}
	if strings.TrimSpace(rawHTML) == "" {
		return nil, fmt.Errorf("empty html for %s", item.URL)
	}

	// Raw links come from the live DOM before the cleaner mutates it.
	var hrefs []string
	if err := chromedp.Run(pageCtx, chromedp.Evaluate(harvestLinksJS, &hrefs)); err != nil {
		s.logger.Debug().Str("url", item.URL).Err(err).Msg("Link harvest failed")
	}

	canonicalHTML, err := CleanDOM(pageCtx, item.Depth)
	if err != nil {
		return nil, err
	}

	md, err := s.markdown.Convert(canonicalHTML)
	if err != nil {
		return nil, err
	}

	page := &models.PageArtifact{
		HotelID:       hotelID,
		PageURL:       finalURL,
		RawHTML:       rawHTML,
		CanonicalHTML: canonicalHTML,
		Markdown:      md,
		Checksum:      common.ContentChecksum(md),
		Depth:         item.Depth,
	}
	if err := s.pages.Upsert(ctx, page); err != nil {
		return nil, fmt.Errorf("failed to persist page: %w", err)
	}

	return &pageResult{
		finalURL: finalURL,
		links:    s.filterLinks(finalURL, hrefs),
	}, nil
}

// lazyScroll triggers lazy-loaded content: scroll to the bottom in bounded
// iterations until scrollHeight stops growing, then return to the top.
func (s *Service) lazyScroll(ctx context.Context, pageURL string) {
	var lastHeight int64 = -1

	for i := 0; i < lazyScrollMaxIterations; i++ {
		var height int64
		err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height),
		)
		if err != nil {
			s.logger.Debug().Str("url", pageURL).Err(err).Msg("Lazy scroll failed")
			break
		}
		if height == lastHeight {
			break
		}
		lastHeight = height

		select {
		case <-ctx.Done():
			return
		case <-time.After(1500 * time.Millisecond):
		}
	}

	if err := chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil)); err != nil {
		s.logger.Debug().Str("url", pageURL).Err(err).Msg("Scroll to top failed")
	}
}

// filterLinks resolves harvested hrefs against the final page URL and
// applies the enqueue filters.
func (s *Service) filterLinks(finalURL string, hrefs []string) []string {
	base, err := url.Parse(finalURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	for _, href := range hrefs {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil && ref.Hostname() != "" {
			if IsSearchEngineHost(ref.Hostname()) {
				continue
			}
		}
		resolved := ResolveLink(base, href)
		if resolved == "" {
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		links = append(links, resolved)
	}
	return links
}
