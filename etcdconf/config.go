// Copyright (C) 2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package etcdconf loads settings from an etcd cluster into a registry
// and optionally keeps them fresh with a background watch. Importing it
// (even blank) wires remote settings into the default registry; hosts
// still have to be configured through the environment for the adapter to
// dial anything.
package etcdconf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// PrefixSettingKey stores the active key prefix in the registry, so
	// tooling can inspect and change it like any other setting.
	PrefixSettingKey = "confkit.etcd.prefix"

	// DefaultPrefix is the etcd key prefix used when nothing configures one.
	DefaultPrefix = "/config/"

	// DefaultInheritKey is the setting naming the prefix a configuration
	// inherits from.
	DefaultInheritKey = "config.inherit"

	// DefaultInheritDepth bounds how many inheritance pointers a load
	// follows.
	DefaultInheritDepth = 2
)

// HostPort is one etcd endpoint address.
type HostPort struct {
	Host string
	Port int
}

// Config holds the etcd connection and load behavior.
type Config struct {
	// Cluster endpoints. Empty means the adapter stays unconfigured and
	// loads yield nothing.
	Hosts []HostPort

	// Connection security
	Protocol string // "http" or "https"
	CACert   string
	Cert     string
	Key      string
	Username string
	Password string

	// Key handling
	Prefix       string
	Inherit      bool
	InheritKey   string
	InheritDepth int

	// Watch keeps the registry updated as remote keys change.
	Watch bool

	// Client timeouts
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Protocol:       "http",
		Prefix:         DefaultPrefix,
		Inherit:        true,
		InheritKey:     DefaultInheritKey,
		InheritDepth:   DefaultInheritDepth,
		Watch:          false,
		DialTimeout:    5 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	// Predecessor-tool connection URL, applied first so the specific
	// CONFKIT_ variables below can override its pieces.
	if raw := os.Getenv("JETCONFIG_ETCD"); raw != "" {
		if overrides, err := JetconfigOverrides(raw); err == nil {
			overrides.Apply(cfg)
		}
	}

	// Cluster endpoints
	if hosts := os.Getenv("CONFKIT_ETCD_HOSTS"); hosts != "" {
		if parsed, err := ParseHosts(hosts); err == nil {
			cfg.Hosts = parsed
		}
	}

	// Connection security
	if protocol := os.Getenv("CONFKIT_ETCD_PROTOCOL"); protocol != "" {
		cfg.Protocol = protocol
	}
	if cacert := os.Getenv("CONFKIT_ETCD_CACERT"); cacert != "" {
		cfg.CACert = cacert
	}
	if cert := os.Getenv("CONFKIT_ETCD_CERT"); cert != "" {
		cfg.Cert = cert
	}
	if key := os.Getenv("CONFKIT_ETCD_KEY"); key != "" {
		cfg.Key = key
	}
	if auth := os.Getenv("CONFKIT_ETCD_AUTH"); auth != "" {
		cfg.Username, cfg.Password = splitAuth(auth)
	}

	// Key handling
	if prefix := os.Getenv("CONFKIT_ETCD_PREFIX"); prefix != "" {
		cfg.Prefix = prefix
	}
	if depth := os.Getenv("CONFKIT_INHERIT_DEPTH"); depth != "" {
		if v, err := strconv.Atoi(depth); err == nil {
			cfg.InheritDepth = v
		}
	}

	// Watching
	if watch := os.Getenv("CONFKIT_ETCD_WATCH"); watch != "" {
		cfg.Watch = strings.ToLower(watch) == "true" || watch == "1"
	}

	return cfg
}

// ParseHosts parses "host:port[,host:port...]" into endpoint addresses.
func ParseHosts(spec string) ([]HostPort, error) {
	parts := strings.Split(spec, ",")
	hosts := make([]HostPort, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(part)
		if err != nil {
			return nil, fmt.Errorf("host %q: %w", part, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("host %q: invalid port: %w", part, err)
		}
		hosts = append(hosts, HostPort{Host: host, Port: port})
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts in %q", spec)
	}
	return hosts, nil
}

// TLSEnabled reports whether connections should use TLS, either because
// the protocol says so or because certificate material is configured.
func (c *Config) TLSEnabled() bool {
	return strings.EqualFold(c.Protocol, "https") || c.CACert != "" || c.Cert != "" || c.Key != ""
}

// Endpoints renders the hosts as client endpoint URLs.
func (c *Config) Endpoints() []string {
	scheme := "http"
	if c.TLSEnabled() {
		scheme = "https"
	}
	endpoints := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		endpoints = append(endpoints, fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(h.Host, strconv.Itoa(h.Port))))
	}
	return endpoints
}

// splitAuth splits "user:pass" credentials; a lone user is allowed.
func splitAuth(auth string) (username string, password string) {
	username, password, found := strings.Cut(auth, ":")
	if !found {
		return auth, ""
	}
	return username, password
}

// normalizePrefix forces a leading and trailing slash; an empty prefix
// addresses the whole keyspace.
func normalizePrefix(prefix string) string {
	core := strings.Trim(prefix, "/")
	if core == "" {
		return "/"
	}
	return "/" + core + "/"
}
