// Package global holds the process configuration. It is built once at
// startup and passed by injection; nothing in here is mutable at runtime.
package global

import (
	"os"
	"strconv"
)

type Config struct {
	BindAddr string // TCP listener, first positional argument
	WSAddr   string // optional WebSocket gateway, empty disables

	DefaultPageSize int
	MaxPageSize     int
	SendQueueSize   int // per-peer outbound queue capacity

	MongoURI      string // empty selects the in-memory store
	MongoDatabase string
	RedisAddr     string // empty selects the permissive moderation gateway
	NatsURL       string // empty disables the cross-node relay

	JWTSecret string
	NodeID    int64
}

func Default() Config {
	return Config{
		BindAddr:        "127.0.0.1:8080",
		DefaultPageSize: 50,
		MaxPageSize:     100,
		SendQueueSize:   256,
		MongoDatabase:   "nexus",
		JWTSecret:       "dev-secret-change-me",
		NodeID:          1,
	}
}

// Load builds the config from the CLI args (the single positional bind
// address) and environment overrides.
func Load(args []string) Config {
	cfg := Default()
	if len(args) > 0 && args[0] != "" {
		cfg.BindAddr = args[0]
	}
	if v := os.Getenv("NEXUS_WS_ADDR"); v != "" {
		cfg.WSAddr = v
	}
	if v := os.Getenv("NEXUS_MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("NEXUS_MONGO_DB"); v != "" {
		cfg.MongoDatabase = v
	}
	if v := os.Getenv("NEXUS_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("NEXUS_NATS_URL"); v != "" {
		cfg.NatsURL = v
	}
	if v := os.Getenv("NEXUS_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if n, err := strconv.Atoi(os.Getenv("NEXUS_PAGE_SIZE")); err == nil && n > 0 {
		cfg.DefaultPageSize = n
	}
	if n, err := strconv.Atoi(os.Getenv("NEXUS_MAX_PAGE_SIZE")); err == nil && n > 0 {
		cfg.MaxPageSize = n
	}
	if n, err := strconv.Atoi(os.Getenv("NEXUS_SEND_QUEUE")); err == nil && n > 0 {
		cfg.SendQueueSize = n
	}
	if n, err := strconv.ParseInt(os.Getenv("NEXUS_NODE_ID"), 10, 64); err == nil {
		cfg.NodeID = n
	}
	return cfg.sanitize()
}

func (c Config) sanitize() Config {
	if c.BindAddr == "" {
		c.BindAddr = "127.0.0.1:8080"
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 50
	}
	if c.MaxPageSize < c.DefaultPageSize {
		c.MaxPageSize = c.DefaultPageSize
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	return c
}
