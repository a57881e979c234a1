package source

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// smallPage is the size under which challenge markers are trusted. Real
// homepages often embed a captcha widget for their contact form.
const smallPage = 8 * 1024

// DetectBlock checks a response for signs of anti-bot protection or a
// page that only renders with JavaScript.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return true, BlockCloudflare
	}

	if len(body) < smallPage {
		if strings.Contains(lower, "captcha") || strings.Contains(lower, "attention required") {
			return true, BlockCaptcha
		}
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	if strings.Contains(lower, `<div id="root"></div>`) || strings.Contains(lower, `<div id="app"></div>`) {
		if !strings.Contains(lower, "<h1") && !strings.Contains(lower, "<p") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
