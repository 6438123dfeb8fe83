package couchbase

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSeedHost is used when no bootstrap host is configured.
const DefaultSeedHost = "127.0.0.1"

// SeedNodes is the validated, de-duplicated set of bootstrap hosts.
// It is immutable and never empty.
type SeedNodes struct {
	hosts map[string]struct{}
}

// DefaultSeedNodes returns the set holding only DefaultSeedHost.
func DefaultSeedNodes() *SeedNodes {
	return &SeedNodes{hosts: map[string]struct{}{DefaultSeedHost: {}}}
}

// NewSeedNodes validates hosts. Entries are trimmed and lower-cased and
// duplicates are collapsed silently. An empty list or a blank entry is
// rejected with a *SeedListError.
func NewSeedNodes(hosts ...string) (*SeedNodes, error) {
	if len(hosts) == 0 {
		return nil, &SeedListError{}
	}

	set := make(map[string]struct{}, len(hosts))
	for i, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			return nil, &SeedListError{Reason: fmt.Sprintf("host %d is blank", i)}
		}
		set[h] = struct{}{}
	}
	return &SeedNodes{hosts: set}, nil
}

// ParseConnectionString reads the hosts of "couchbase://host1,host2:port".
// The scheme is optional; query parameters are ignored. Hosts may be
// separated by commas or semicolons.
func ParseConnectionString(connStr string) (*SeedNodes, error) {
	rest := strings.TrimSpace(connStr)
	if scheme, after, ok := strings.Cut(rest, "://"); ok {
		if !strings.EqualFold(scheme, "couchbase") {
			return nil, fmt.Errorf("couchbase: unsupported scheme %q", scheme)
		}
		rest = after
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return nil, &SeedListError{Reason: "connection string has no hosts"}
	}

	hosts := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ';' })
	return NewSeedNodes(hosts...)
}

// Hosts returns the hosts in sorted order.
func (s *SeedNodes) Hosts() []string {
	hosts := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (s *SeedNodes) Len() int {
	return len(s.hosts)
}

func (s *SeedNodes) Contains(host string) bool {
	_, ok := s.hosts[strings.ToLower(strings.TrimSpace(host))]
	return ok
}

func (s *SeedNodes) String() string {
	return strings.Join(s.Hosts(), ",")
}
