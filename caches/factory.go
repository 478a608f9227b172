// Package caches creates cache backends from configuration.
package caches

import (
	"fmt"
	"time"

	"github.com/raglens/raglens/caches/disk"
	"github.com/raglens/raglens/caches/memory"
	"github.com/raglens/raglens/caches/redis"
	"github.com/raglens/raglens/pkg/cache"
)

// Config selects and configures a cache backend.
type Config struct {
	Type       cache.Type    `yaml:"type"`
	Dir        string        `yaml:"dir"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
	Redis      redis.Config  `yaml:"redis"`
}

// New creates a cache backend from configuration.
func New(cfg Config) (cache.Cache, error) {
	switch cfg.Type {
	case cache.TypeDisk, "":
		return disk.New(disk.Config{Dir: cfg.Dir, DefaultTTL: cfg.DefaultTTL})
	case cache.TypeRedis:
		rc := cfg.Redis
		if rc.DefaultTTL == 0 {
			rc.DefaultTTL = cfg.DefaultTTL
		}
		return redis.New(rc)
	case cache.TypeMemory:
		return memory.New(cfg.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
