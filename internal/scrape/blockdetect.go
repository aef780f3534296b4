package scrape

import (
	"bytes"
	"net/http"
)

// BlockType describes the kind of anti-bot response a page returned.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockCloudflare  BlockType = "cloudflare"
	BlockCaptcha     BlockType = "captcha"
	BlockJSShell     BlockType = "js_shell"
	BlockRateLimited BlockType = "rate_limited"
)

// Blocked reports whether b names a block.
func (b BlockType) Blocked() bool { return b != BlockNone }

// Only the head of the body is inspected for markers.
const blockSniffBytes = 64 << 10

var (
	cloudflareMarkers = [][]byte{[]byte("checking your browser"), []byte("cf-browser-verification")}
	captchaMarkers    = [][]byte{[]byte("captcha"), []byte("recaptcha"), []byte("hcaptcha")}

	// Phrases that only appear on captcha walls; these block any status.
	captchaWallMarkers = [][]byte{
		[]byte("complete the captcha"),
		[]byte("complete the recaptcha"),
		[]byte("complete the security check"),
		[]byte("verify you are human"),
	}
)

// DetectBlock classifies a response as a challenge page, captcha wall,
// JS-only shell, or rate limit. A nil response is never blocked. Bare
// captcha and challenge words only count on non-2xx responses.
func DetectBlock(resp *http.Response, body []byte) BlockType {
	if resp == nil {
		return BlockNone
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return BlockRateLimited
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" ||
			resp.Header.Get("server") == "cloudflare" {
			return BlockCloudflare
		}
	}

	head := body
	if len(head) > blockSniffBytes {
		head = head[:blockSniffBytes]
	}
	lower := bytes.ToLower(head)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	if containsAny(lower, cloudflareMarkers) {
		return BlockCloudflare
	}
	if !ok && bytes.Contains(lower, []byte("cloudflare")) && bytes.Contains(lower, []byte("challenge")) {
		return BlockCloudflare
	}

	if containsAny(lower, captchaWallMarkers) || !ok && containsAny(lower, captchaMarkers) {
		return BlockCaptcha
	}

	// Tiny documents that only carry a noscript notice or a meta refresh.
	if len(body) < 2000 {
		if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
			return BlockJSShell
		}
		if bytes.Contains(lower, []byte(`meta http-equiv="refresh"`)) {
			return BlockJSShell
		}
	}

	return BlockNone
}

func containsAny(haystack []byte, needles [][]byte) bool {
	for _, n := range needles {
		if bytes.Contains(haystack, n) {
			return true
		}
	}
	return false
}
