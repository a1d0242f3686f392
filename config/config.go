package config

import (
	"flag"
	"os"
	"runtime"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	Addr        string
	Workers     int
	BufSize     int
	SlabSize    int
	IdleTimeout int // seconds
	GCPercent   int
	Env         string
}

// New loads configuration from flags, then lets environment variables
// (prefixed SLAB_) override them.
func New() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Addr, "addr", ":8080", "listening address")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "event-loop workers (default: CPU cores)")
	flag.IntVar(&cfg.BufSize, "buf-size", 2048, "per-connection buffer capacity (bytes)")
	flag.IntVar(&cfg.SlabSize, "slab-size", 1024, "connection slots per worker")
	flag.IntVar(&cfg.IdleTimeout, "idle-timeout", 5, "keep-alive idle timeout (seconds)")
	flag.IntVar(&cfg.GCPercent, "gc-percent", 200, "GOGC target percentage")
	flag.StringVar(&cfg.Env, "env", "development", "environment (development/production)")

	flag.Parse()
	cfg.applyEnv()
	return cfg
}

// applyEnv overrides flag values from the environment, the deployment-side
// configuration channel.
func (c *Config) applyEnv() {
	if v := os.Getenv("SLAB_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("SLAB_ENV"); v != "" {
		c.Env = v
	}
	envInt("SLAB_WORKERS", &c.Workers)
	envInt("SLAB_BUF_SIZE", &c.BufSize)
	envInt("SLAB_SLAB_SIZE", &c.SlabSize)
	envInt("SLAB_IDLE_TIMEOUT", &c.IdleTimeout)
	envInt("SLAB_GC_PERCENT", &c.GCPercent)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
