package markdown

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/common"
)

// Converter turns canonical HTML into deterministic markdown. Every rule is
// pinned; converter defaults must never leak into checksummed output.
type Converter struct {
	converter *md.Converter
	logger    arbor.ILogger
}

// NewConverter creates the pinned-rule converter
func NewConverter(logger arbor.ILogger) *Converter {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:       "atx",
		HorizontalRule:     "---",
		BulletListMarker:   "-",
		CodeBlockStyle:     "fenced",
		EmDelimiter:        "*",
		StrongDelimiter:    "**",
		LinkStyle:          "inlined",
		LinkReferenceStyle: "full",
	})

	converter.AddRules(
		// Anchors keep their text but drop the URL; URLs churn (session ids,
		// tracking params) and would destabilize checksums. Button-styled
		// anchors are labeled as buttons.
		md.Rule{
			Filter: []string{"a"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				text := strings.TrimSpace(content)
				if text == "" {
					return md.String("")
				}
				if isButtonLike(selec) {
					return md.String(text + " [button]")
				}
				return md.String(text + " [link]")
			},
		},
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				return md.String("")
			},
		},
		md.Rule{
			Filter: []string{"button"},
			Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
				text := strings.TrimSpace(content)
				if text == "" {
					return md.String("")
				}
				return md.String(text + " [button]")
			},
		},
	)

	return &Converter{
		converter: converter,
		logger:    logger,
	}
}

// Convert produces the canonical markdown for a cleaned HTML document:
// converted, NFC-normalized, CRLF folded to LF, and trimmed. This exact
// string is the input to the content checksum.
func (c *Converter) Convert(canonicalHTML string) (string, error) {
	if strings.TrimSpace(canonicalHTML) == "" {
		return "", nil
	}

	raw, err := c.converter.ConvertString(canonicalHTML)
	if err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}

	out := common.NormalizeNFC(raw)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.TrimSpace(out)
	return out, nil
}

// isButtonLike reports whether an anchor presents as a button
func isButtonLike(selec *goquery.Selection) bool {
	if role, ok := selec.Attr("role"); ok && strings.Contains(strings.ToLower(role), "button") {
		return true
	}
	if class, ok := selec.Attr("class"); ok {
		lower := strings.ToLower(class)
		if strings.Contains(lower, "button") || strings.Contains(lower, "btn") {
			return true
		}
	}
	return false
}
