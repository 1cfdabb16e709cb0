package crawler

import (
	"context"
	"fmt"
	"regexp"

	"github.com/chromedp/chromedp"
)

// domCleanerJS canonicalizes the loaded document in-browser and returns the
// cleaned HTML string. Steps run in a fixed order so equivalent DOMs clean
// to byte-identical output:
//  1. remove volatile nodes (scripts, frames, svg/figure, ad containers,
//     reCAPTCHA, HERE map residue)
//  2. for depth > 0, remove navigational chrome; the entry page keeps it
//     because hero content often sits inside header-classed wrappers
//  3. strip inline style attributes
//  4. absolutize href/src against the document URL
//  5. drop structurally empty p/div/span
//  6. merge adjacent text nodes, skipping pre/code subtrees
const domCleanerJS = `((stripChrome) => {
	const doc = document;

	const attrsContain = (el, re) => {
		const id = el.id || "";
		const cls = (typeof el.className === "string" ? el.className : "") ;
		const role = el.getAttribute ? (el.getAttribute("role") || "") : "";
		return re.test(id) || re.test(cls) || re.test(role);
	};

	const removeAll = (nodes) => {
		for (const el of Array.from(nodes)) {
			if (el && el.parentNode) el.parentNode.removeChild(el);
		}
	};

	// 1. Volatile nodes.
	removeAll(doc.querySelectorAll("script, style, noscript, iframe, frame, svg, figure"));
	const adRe = /\b(ad|ads|advertisement)\b/i;
	removeAll(Array.from(doc.querySelectorAll("*")).filter((el) => attrsContain(el, adRe)));
	removeAll(doc.querySelectorAll(".g-recaptcha, .grecaptcha-badge, [class*='recaptcha']"));
	removeAll(doc.querySelectorAll("[class^='H_'], [class*=' H_']"));

	// 2. Navigational chrome on sub-pages only.
	if (stripChrome) {
		const chromeRe = /(nav|header|footer|breadcrumb)/i;
		removeAll(doc.querySelectorAll("nav, header, footer"));
		removeAll(Array.from(doc.querySelectorAll("*")).filter((el) =>
			chromeRe.test(el.tagName) || attrsContain(el, chromeRe)));
	}

	// 3. Inline styles.
	for (const el of Array.from(doc.querySelectorAll("[style]"))) {
		el.removeAttribute("style");
	}

	// 4. Absolute URLs.
	for (const el of Array.from(doc.querySelectorAll("[href]"))) {
		try { el.setAttribute("href", new URL(el.getAttribute("href"), doc.baseURI).href); } catch (e) {}
	}
	for (const el of Array.from(doc.querySelectorAll("[src]"))) {
		try { el.setAttribute("src", new URL(el.getAttribute("src"), doc.baseURI).href); } catch (e) {}
	}

	// 5. Structurally empty containers, leaves first.
	let removed = true;
	while (removed) {
		removed = false;
		for (const el of Array.from(doc.querySelectorAll("p, div, span"))) {
			if (el.children.length === 0 && (el.textContent || "").trim() === "") {
				if (el.parentNode) { el.parentNode.removeChild(el); removed = true; }
			}
		}
	}

	// 6. Merge adjacent text nodes for deterministic serialization.
	const mergeText = (node) => {
		if (!node) return;
		const tag = node.nodeName ? node.nodeName.toLowerCase() : "";
		if (tag === "pre" || tag === "code") return;
		let child = node.firstChild;
		while (child) {
			if (child.nodeType === Node.TEXT_NODE) {
				while (child.nextSibling && child.nextSibling.nodeType === Node.TEXT_NODE) {
					child.textContent += child.nextSibling.textContent;
					node.removeChild(child.nextSibling);
				}
			} else {
				mergeText(child);
			}
			child = child.nextSibling;
		}
	};
	mergeText(doc.body);

	return "<html>" + (doc.head ? doc.head.outerHTML : "") + (doc.body ? doc.body.outerHTML : "") + "</html>";
})(%t)`

var interTagWhitespace = regexp.MustCompile(`>\s+<`)

// CleanDOM runs the in-browser canonicalization on the current page and
// collapses inter-tag whitespace on the returned HTML.
func CleanDOM(ctx context.Context, depth int) (string, error) {
	var cleaned string
	script := fmt.Sprintf(domCleanerJS, depth > 0)
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &cleaned)); err != nil {
		return "", fmt.Errorf("dom cleanup failed: %w", err)
	}
	return interTagWhitespace.ReplaceAllString(cleaned, "><"), nil
}
