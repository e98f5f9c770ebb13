// Package cache connects to Valkey and keeps rendered public pages there.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyConfig locates the Valkey server. Sessions, carts, one-time codes
// and the page cache share one logical database.
type ValkeyConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (c ValkeyConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// ConnectValkey opens a client and pings it.
func ConnectValkey(ctx context.Context, c ValkeyConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr(),
		Password: c.Password,
		DB:       c.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", c.Addr(), err)
	}

	slog.Info("valkey connected", "addr", c.Addr(), "db", c.DB)
	return client, nil
}
