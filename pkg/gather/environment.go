package gather

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gokaycavdar/go-vpnsense/pkg/models"
)

// HostEnvironment reports the environment of the machine running the binary.
//
// A host has no plugin list, screen or network-information hints, so those
// stay unreported and never fire a heuristic.
type HostEnvironment struct {
	UserAgent       string
	WebRTCAvailable bool

	// Getenv and LocaltimePath are replaceable for tests.
	Getenv        func(string) string
	LocaltimePath string
}

// NewHostEnvironment reads the real process environment.
func NewHostEnvironment(userAgent string, webrtcAvailable bool) *HostEnvironment {
	return &HostEnvironment{
		UserAgent:       userAgent,
		WebRTCAvailable: webrtcAvailable,
		Getenv:          os.Getenv,
		LocaltimePath:   "/etc/localtime",
	}
}

func (h *HostEnvironment) Environment(context.Context) (models.Environment, error) {
	getenv := h.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	return models.Environment{
		UserAgent:       h.UserAgent,
		Languages:       hostLanguages(getenv),
		Timezone:        h.timezone(getenv),
		WebRTCAvailable: h.WebRTCAvailable,
	}, nil
}

// hostLanguages follows gettext precedence: LANGUAGE, then LC_ALL, then LANG.
func hostLanguages(getenv func(string) string) []string {
	if v := getenv("LANGUAGE"); v != "" {
		var out []string
		for _, l := range strings.Split(v, ":") {
			if tag := localeToTag(l); tag != "" {
				out = append(out, tag)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	for _, key := range []string{"LC_ALL", "LANG"} {
		if tag := localeToTag(getenv(key)); tag != "" {
			return []string{tag}
		}
	}
	return nil
}

// localeToTag turns a POSIX locale such as "ja_JP.UTF-8" into "ja-JP".
func localeToTag(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

func (h *HostEnvironment) timezone(getenv func(string) string) string {
	if tz := strings.TrimPrefix(getenv("TZ"), ":"); tz != "" && !filepath.IsAbs(tz) {
		return tz
	}
	if h.LocaltimePath == "" {
		return ""
	}

	target, err := os.Readlink(h.LocaltimePath)
	if err != nil {
		return ""
	}
	if _, zone, ok := strings.Cut(target, "zoneinfo/"); ok {
		return zone
	}
	return ""
}
