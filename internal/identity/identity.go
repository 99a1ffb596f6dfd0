// Package identity derives the content-addressed names that key job folders and rows.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/almensu/yanghooAI/internal/domain"
)

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	numericPattern   = regexp.MustCompile(`^\d+$`)
	episodePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	contentHashPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)
	uploadHashPattern  = regexp.MustCompile(`^\d+_[0-9a-f]{8}$`)
)

// Derive validates rawURL and returns its hash name. URL variants that point at the same
// canonical video collapse to the same hash.
func Derive(rawURL string) (string, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return "", err
	}

	if key, ok := canonicalKey(u); ok {
		return md5Hex(key), nil
	}
	return md5Hex(normalize(u)), nil
}

// Parse validates that rawURL is an absolute http(s) URL.
func Parse(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, domain.NewValidationError("url", "must not be empty")
	}

	u, err := url.Parse(norm.NFC.String(trimmed))
	if err != nil {
		return nil, domain.NewValidationError("url", err.Error())
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, domain.NewValidationError("url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	if u.Hostname() == "" {
		return nil, domain.NewValidationError("url", "host is required")
	}

	return u, nil
}

// canonicalKey returns the stable key for known video hosts. YouTube keys are the bare
// video id so existing data folders keep their names.
func canonicalKey(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := pathSegments(u.Path)

	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if len(segments) == 1 && segments[0] == "watch" {
			if id := u.Query().Get("v"); youtubeIDPattern.MatchString(id) {
				return id, true
			}
		}
		if len(segments) == 2 {
			switch segments[0] {
			case "shorts", "embed", "live", "v":
				if youtubeIDPattern.MatchString(segments[1]) {
					return segments[1], true
				}
			}
		}
	case "youtu.be":
		if len(segments) >= 1 && youtubeIDPattern.MatchString(segments[0]) {
			return segments[0], true
		}
	case "twitter.com", "x.com", "mobile.twitter.com":
		// /<user>/status/<id> and /i/status/<id>
		if len(segments) >= 3 && segments[1] == "status" && numericPattern.MatchString(segments[2]) {
			return "twitter:" + segments[2], true
		}
	case "xiaoyuzhoufm.com":
		if len(segments) == 2 && segments[0] == "episode" && episodePattern.MatchString(segments[1]) {
			return "xiaoyuzhou:" + segments[1], true
		}
	}

	return "", false
}

func normalize(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	return n.String()
}

func pathSegments(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewUploadHash returns a fresh hash name for an uploaded file.
func NewUploadHash() string {
	return newUploadHash(time.Now())
}

func newUploadHash(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d_%s", now.Unix(), id[:8])
}

// Valid reports whether hashName has the shape of a derived or upload hash name.
func Valid(hashName string) bool {
	return contentHashPattern.MatchString(hashName) || uploadHashPattern.MatchString(hashName)
}
