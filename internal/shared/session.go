// Browser sessions captured with "Copy as cURL".
package shared

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"
)

var (
	curlHeaderPattern = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	curlCookiePattern = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// sessionHeaders are the request headers worth replaying against the CRM.
// Everything else in a browser dump (accept-language, sec-ch-*, etc.) is noise.
var sessionHeaders = map[string]bool{
	"authorization":       true,
	"x-frappe-csrf-token": true,
	"x-frappe-site-name":  true,
	"user-agent":          true,
}

// BrowserSession holds the headers and cookie of a logged-in browser request.
type BrowserSession struct {
	Headers map[string]string
	Cookie  string
}

// LoadBrowserSession reads a file containing a cURL command and extracts the session.
func LoadBrowserSession(path string) (*BrowserSession, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return ParseBrowserSession(string(content))
}

// ParseBrowserSession parses a cURL command and keeps the headers that identify a CRM session.
//
// A -b/--cookie flag wins over a Cookie header.
func ParseBrowserSession(cmd string) (*BrowserSession, error) {
	cmd = strings.ReplaceAll(cmd, "\\\n", " ")
	cmd = strings.ReplaceAll(cmd, "\\", "")

	s := &BrowserSession{Headers: make(map[string]string)}
	var headerCookie string

	for _, match := range curlHeaderPattern.FindAllStringSubmatch(cmd, -1) {
		key, value, ok := strings.Cut(firstGroup(match), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		lower := strings.ToLower(key)
		switch {
		case lower == "cookie":
			headerCookie = value
		case sessionHeaders[lower]:
			s.Headers[http.CanonicalHeaderKey(key)] = value
		}
	}

	if match := curlCookiePattern.FindStringSubmatch(cmd); match != nil {
		s.Cookie = firstGroup(match)
	} else {
		s.Cookie = headerCookie
	}

	if len(s.Headers) == 0 && s.Cookie == "" {
		return nil, fmt.Errorf("%w: no session headers found in curl command", ErrMissingCredentials)
	}

	return s, nil
}

// SID returns the value of the sid cookie, or an empty string when absent.
func (s *BrowserSession) SID() string {
	for part := range strings.SplitSeq(s.Cookie, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == "sid" {
			return value
		}
	}
	return ""
}

// Guest reports whether the captured cookie belongs to a logged-out visitor.
func (s *BrowserSession) Guest() bool {
	sid := s.SID()
	return sid == "" || sid == "Guest"
}

// Apply copies the session onto req without overwriting headers already set.
func (s *BrowserSession) Apply(req *http.Request) {
	for key, value := range s.Headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
	if s.Cookie != "" && req.Header.Get("Cookie") == "" {
		req.Header.Set("Cookie", s.Cookie)
	}
}

// String renders the session as sorted "Key: Value" lines for debugging.
func (s *BrowserSession) String() string {
	lines := make([]string, 0, len(s.Headers)+1)
	for key, value := range s.Headers {
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}
	sort.Strings(lines)
	if s.Cookie != "" {
		lines = append(lines, fmt.Sprintf("Cookie: %s", s.Cookie))
	}
	return strings.Join(lines, "\n")
}

func firstGroup(match []string) string {
	for _, g := range match[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
