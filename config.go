package couchbase

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pior/couchbase/locate"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of a dispatcher configuration.
type FileConfig struct {
	ConnectionString    string             `yaml:"connection_string" json:"connection_string"`
	Bucket              string             `yaml:"bucket" json:"bucket"`
	Nodes               []NodeFileConfig   `yaml:"nodes" json:"nodes"`
	Port                string             `yaml:"port" json:"port"`
	MaxEndpointsPerNode int32              `yaml:"max_endpoints_per_node" json:"max_endpoints_per_node"`
	DialTimeout         string             `yaml:"dial_timeout" json:"dial_timeout"`
	CircuitBreaker      *BreakerFileConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	LogLevel            string             `yaml:"log_level" json:"log_level"`
	NumVBuckets         int                `yaml:"num_vbuckets" json:"num_vbuckets"`
}

// NodeFileConfig declares one node and the services it runs. Service names
// are those of locate.ServiceType.String.
type NodeFileConfig struct {
	Hostname string   `yaml:"hostname" json:"hostname"`
	Services []string `yaml:"services" json:"services"`
}

// BreakerFileConfig holds circuit breaker settings. Durations are Go
// duration strings.
type BreakerFileConfig struct {
	MaxRequests uint32 `yaml:"max_requests" json:"max_requests"`
	Interval    string `yaml:"interval" json:"interval"`
	Timeout     string `yaml:"timeout" json:"timeout"`
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) configuration file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couchbase: failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("couchbase: failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("couchbase: failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("couchbase: unsupported config format: %s", ext)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values that cannot be caught while parsing.
func (f *FileConfig) Validate() error {
	if f.NumVBuckets < 0 || f.NumVBuckets > 0xffff {
		return fmt.Errorf("couchbase: num_vbuckets must be between 0 and 65535")
	}
	if f.MaxEndpointsPerNode < 0 {
		return fmt.Errorf("couchbase: max_endpoints_per_node must be non-negative")
	}
	for i, n := range f.Nodes {
		if strings.TrimSpace(n.Hostname) == "" {
			return fmt.Errorf("couchbase: nodes[%d]: hostname is required", i)
		}
		for _, name := range n.Services {
			if _, err := locate.ParseServiceType(name); err != nil {
				return fmt.Errorf("couchbase: nodes[%d]: %w", i, err)
			}
		}
	}
	if _, err := zerolog.ParseLevel(f.LogLevel); err != nil {
		return fmt.Errorf("couchbase: invalid log_level: %w", err)
	}
	return nil
}

// SeedNodes returns the hosts of the connection string, or the default seed
// list when none is configured.
func (f *FileConfig) SeedNodes() (*SeedNodes, error) {
	if f.ConnectionString == "" {
		return DefaultSeedNodes(), nil
	}
	return ParseConnectionString(f.ConnectionString)
}

// Topology returns the declared nodes, or key-value nodes built from the seed
// list when no node is declared.
func (f *FileConfig) Topology() (*StaticTopology, error) {
	if len(f.Nodes) == 0 {
		seeds, err := f.SeedNodes()
		if err != nil {
			return nil, err
		}
		return TopologyFromSeeds(seeds), nil
	}

	nodes := make([]Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		services := make([]locate.ServiceType, 0, len(n.Services))
		for _, name := range n.Services {
			s, err := locate.ParseServiceType(name)
			if err != nil {
				return nil, err
			}
			services = append(services, s)
		}
		if len(services) == 0 {
			services = append(services, locate.KeyValue)
		}
		nodes = append(nodes, NewClusterNode(strings.TrimSpace(n.Hostname), services...))
	}
	return NewStaticTopology(nodes...), nil
}

// Level returns the configured log level, info when unset.
func (f *FileConfig) Level() zerolog.Level {
	if f.LogLevel == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(f.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// DispatcherConfig converts the file configuration to a dispatcher Config.
func (f *FileConfig) DispatcherConfig(logger *zerolog.Logger) (Config, error) {
	config := Config{
		MaxEndpointsPerNode: f.MaxEndpointsPerNode,
		Logger:              logger,
	}

	topology, err := f.Topology()
	if err != nil {
		return config, err
	}
	config.Topology = topology

	dialer := &net.Dialer{}
	if f.DialTimeout != "" {
		d, err := time.ParseDuration(f.DialTimeout)
		if err != nil {
			return config, fmt.Errorf("couchbase: invalid dial_timeout: %w", err)
		}
		dialer.Timeout = d
	}
	config.Dial = DialEndpoint(dialer, f.Port)

	if f.NumVBuckets > 0 {
		config.VBucket = VBucketByCRC32(f.NumVBuckets)
	}

	if cb := f.CircuitBreaker; cb != nil {
		var interval, timeout time.Duration
		if cb.Interval != "" {
			if interval, err = time.ParseDuration(cb.Interval); err != nil {
				return config, fmt.Errorf("couchbase: invalid circuit_breaker.interval: %w", err)
			}
		}
		if cb.Timeout != "" {
			if timeout, err = time.ParseDuration(cb.Timeout); err != nil {
				return config, fmt.Errorf("couchbase: invalid circuit_breaker.timeout: %w", err)
			}
		}
		config.NewCircuitBreaker = NewCircuitBreakerConfig(cb.MaxRequests, interval, timeout)
	}

	return config, nil
}
