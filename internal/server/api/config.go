package api

import "time"

// ServerConfig controls a Server's listen address and auth policy, kong
// field tags mirroring the teacher's own embedded per-subsystem config
// struct shape.
type ServerConfig struct {
	Addr                 string        `help:"Control API listen address" default:":5743" env:"LUMEND_API_ADDR"`
	Password             string        `kong:"-"`
	RequireLocalHostAuth bool          `help:"Require password auth even for localhost clients" default:"false" env:"LUMEND_API_REQUIRE_LOCAL_AUTH"`
	ConnectionTimeout    time.Duration `help:"Idle read/write timeout for one API connection" default:"30s" env:"LUMEND_API_CONN_TIMEOUT"`
}
