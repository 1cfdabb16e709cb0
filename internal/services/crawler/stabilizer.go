package crawler

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// domSignatureJS computes the DOM signature inside the page:
// elementCount|textLength|djb2(normalizedText). The djb2 hash is local to
// stability comparison and is never compared with the content checksum.
const domSignatureJS = `(() => {
	const body = document.body;
	if (!body) return "0|0|5381";
	const text = (body.innerText || "").replace(/\s+/g, " ").trim();
	let hash = 5381;
	for (let i = 0; i < text.length; i++) {
		hash = (((hash << 5) + hash) + text.charCodeAt(i)) >>> 0;
	}
	const count = document.getElementsByTagName("*").length;
	return count + "|" + text.length + "|" + hash;
})()`

// Stabilizer waits for a dynamically-rendered DOM to go quiet before the
// page is snapshotted. Signature state lives in this struct, one instance
// per page; recomputations are throttled by minInterval, and between
// recomputations the accumulated quiet window keeps growing.
type Stabilizer struct {
	logger arbor.ILogger

	lastSignature string
	lastComputed  time.Time
	quietSince    time.Time
}

// NewStabilizer creates a stabilizer for one page
func NewStabilizer(logger arbor.ILogger) *Stabilizer {
	return &Stabilizer{logger: logger}
}

// WaitForStable blocks until the DOM signature has been unchanged for
// quiet, or timeout elapses. Timeout is success, not failure: the page is
// taken as-is. Only context cancellation returns an error.
func (s *Stabilizer) WaitForStable(ctx context.Context, params stabilizerParams) error {
	deadline := time.Now().Add(params.timeout)
	pollEvery := 200 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := time.Now()
		if now.After(deadline) {
			s.logger.Debug().
				Dur("timeout", params.timeout).
				Str("signature", s.lastSignature).
				Msg("DOM stabilization timed out, proceeding with current DOM")
			return nil
		}

		if s.lastComputed.IsZero() || now.Sub(s.lastComputed) >= params.minInterval {
			var signature string
			if err := chromedp.Run(ctx, chromedp.Evaluate(domSignatureJS, &signature)); err != nil {
				// Evaluation hiccups are tolerated; the page may still be
				// navigating. The quiet window restarts on the next sample.
				s.logger.Debug().Err(err).Msg("DOM signature evaluation failed")
				s.lastSignature = ""
			} else if signature != s.lastSignature {
				s.lastSignature = signature
				s.quietSince = now
			} else if s.quietSince.IsZero() {
				s.quietSince = now
			}
			s.lastComputed = now
		}

		if s.lastSignature != "" && !s.quietSince.IsZero() && now.Sub(s.quietSince) >= params.quiet {
			s.logger.Debug().
				Str("signature", s.lastSignature).
				Dur("quiet", now.Sub(s.quietSince)).
				Msg("DOM stabilized")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollEvery):
		}
	}
}
