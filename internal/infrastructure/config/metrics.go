package config

import (
	"net"
	"strconv"
)

// MetricsConfig controls the Prometheus endpoint the simulation server exposes
// while it ticks. Only `serve` starts it.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1024,max=65535"`
	Host    string `mapstructure:"host"` // localhost unless scraped from another machine
	Path    string `mapstructure:"path"`
}

// Address is the host:port the endpoint listens on
func (c MetricsConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
