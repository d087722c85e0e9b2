package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

const (
	// DefaultConnectTimeout is the maximum time to wait for initial connection
	DefaultConnectTimeout = 5 * time.Second
)

// Config holds the configuration for creating a Valkey client
type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration // Optional, defaults to DefaultConnectTimeout
}

// Client wraps valkey-go with the funnel's key namespace.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient connects and pings. The caller owns Close.
func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	return &Client{
		inner:     inner,
		keyPrefix: normalizePrefix(cfg.KeyPrefix),
	}, nil
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

// Inner returns the underlying valkey-go client.
func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key constructs a prefixed key from the given parts.
// Example: Key("ws", "broadcast") -> "azfunnel:ws:broadcast"
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	return c.keyPrefix + strings.Join(parts, ":")
}

func (c *Client) KeyPrefix() string {
	return c.keyPrefix
}

func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// IsConnected tests if the connection is healthy (uses a short timeout).
func (c *Client) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return c.Ping(ctx) == nil
}

// Publish sends payload on a pub/sub channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	cmd := c.inner.B().Publish().Channel(channel).Message(string(payload)).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Subscribe blocks, delivering every message on channel to fn until ctx ends or the connection fails.
func (c *Client) Subscribe(ctx context.Context, channel string, fn func(payload []byte)) error {
	return c.inner.Receive(ctx, c.inner.B().Subscribe().Channel(channel).Build(), func(msg valkeylib.PubSubMessage) {
		fn([]byte(msg.Message))
	})
}

// Store sets key to value, expiring after ttl (no expiry when ttl <= 0).
func (c *Client) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.inner.Do(ctx, c.inner.B().Set().Key(key).Value(string(value)).Build()).Error()
	}
	cmd := c.inner.B().Set().
		Key(key).
		Value(string(value)).
		Ex(ttl).
		Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Load reads key. A missing key reports found=false without an error.
func (c *Client) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.inner.Do(ctx, c.inner.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// IsNil checks if an error returned by the client represents a Valkey NIL response.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}
