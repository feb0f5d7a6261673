package fetcher

import (
	"strings"
)

// BlockType describes why a 200 response is not a usable form page.
type BlockType string

const (
	BlockNone    BlockType = ""
	BlockSignIn  BlockType = "sign_in"
	BlockCaptcha BlockType = "captcha"
	BlockClosed  BlockType = "closed"
	BlockJSShell BlockType = "js_shell"
)

// formDataMarker appears on every page that carries a form payload.
const formDataMarker = "FB_PUBLIC_LOAD_DATA_"

var (
	signInMarkers = []string{
		"you need permission",
		"sign in to continue to forms",
		"accounts.google.com/servicelogin",
	}
	captchaMarkers = []string{
		"our systems have detected unusual traffic",
		"g-recaptcha",
		"/sorry/index",
	}
	closedMarkers = []string{
		"is no longer accepting responses",
		"form is closed",
	}
)

// DetectBlock reports whether body is an interstitial page served in place
// of the form. Pages containing the form payload are never blocked.
func DetectBlock(body string) (bool, BlockType) {
	if strings.Contains(body, formDataMarker) {
		return false, BlockNone
	}
	lower := strings.ToLower(body)

	switch {
	case containsAny(lower, signInMarkers):
		return true, BlockSignIn
	case containsAny(lower, captchaMarkers):
		return true, BlockCaptcha
	case containsAny(lower, closedMarkers):
		return true, BlockClosed
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
