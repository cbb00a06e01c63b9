// Package reputation matches addresses against lists of known open proxies and
// Tor exit nodes.
//
// Lists are kept as /24 (IPv4) or /64 (IPv6) prefixes, so matching never needs
// a raw address to be stored. Results are informational and never scored.
//
// Recommended data sources:
//   - IPsum: https://github.com/stamparm/ipsum (level 3+)
//   - FireHOL: https://iplists.firehol.org/
//   - Tor exit nodes: https://check.torproject.org/torbulkexitlist
package reputation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gokaycavdar/go-vpnsense/pkg/netaddr"
)

// ProxyList is a thread-safe set of masked prefixes.
type ProxyList struct {
	mu       sync.RWMutex
	prefixes map[string]struct{}
}

// NewProxyList builds a list from addresses. Each is masked to its prefix.
func NewProxyList(addrs ...string) *ProxyList {
	l := &ProxyList{prefixes: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		l.Add(a)
	}
	return l
}

// Load reads a list file.
//
// Supported formats:
//   - one IP per line
//   - IPsum lines: "1.2.3.4\t5" (IP, TAB, count)
//   - CIDR notation, kept as written ("1.2.3.0/24")
//   - lines starting with # are comments
func Load(path string) (*ProxyList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	l, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read proxy list %s: %w", path, err)
	}
	return l, nil
}

// Read parses a list from r.
func Read(r io.Reader) (*ProxyList, error) {
	l := NewProxyList()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := strings.Fields(line)[0]
		if strings.Contains(entry, "/") {
			l.mu.Lock()
			l.prefixes[entry] = struct{}{}
			l.mu.Unlock()
			continue
		}
		l.Add(entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Add inserts the prefix of addr. Unparsable input is ignored.
func (l *ProxyList) Add(addr string) {
	prefix := netaddr.MaskIP(addr)
	if prefix == "" {
		return
	}
	l.mu.Lock()
	l.prefixes[prefix] = struct{}{}
	l.mu.Unlock()
}

// Remove deletes the prefix of addr.
func (l *ProxyList) Remove(addr string) {
	prefix := netaddr.MaskIP(addr)
	l.mu.Lock()
	delete(l.prefixes, prefix)
	l.mu.Unlock()
}

// Contains reports whether addr falls in a listed prefix.
func (l *ProxyList) Contains(addr string) bool {
	prefix := netaddr.MaskIP(addr)
	if prefix == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.prefixes[prefix]
	return ok
}

// Count returns the number of listed prefixes.
func (l *ProxyList) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.prefixes)
}
