package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/nodedist/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultStreamMaxLen caps the run history stream.
	DefaultStreamMaxLen = 1000

	// RunStream receives one entry per completed chain run.
	RunStream = "nodedist:runs"

	pingTimeout = 5 * time.Second
)

// RunChannel is the pub/sub channel announcing a finished run of chain.
func RunChannel(chain string) string {
	return "nodedist:" + chain + ":run.completed"
}

// Options holds the connection settings read from the environment.
type Options struct {
	Redis        *redis.Options
	StreamMaxLen int64
}

// OptionsFromEnv builds Options. REDIS_URL, when set, wins over the discrete variables.
//   - REDIS_URL: redis://[:password@]host:port/db
//   - REDIS_HOST, REDIS_PORT: default localhost:6379
//   - REDIS_PASSWORD, REDIS_DB
//   - REDIS_STREAM_MAXLEN: run stream cap (default 1000, 0 = unlimited)
func OptionsFromEnv() (Options, error) {
	opts := Options{StreamMaxLen: utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen)}

	if url := utils.Env("REDIS_URL", ""); url != "" {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return Options{}, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts.Redis = parsed
	} else {
		opts.Redis = &redis.Options{
			Addr:     utils.Env("REDIS_HOST", "localhost") + ":" + utils.Env("REDIS_PORT", "6379"),
			Password: utils.Env("REDIS_PASSWORD", ""),
			DB:       utils.EnvInt("REDIS_DB", 0),
		}
	}

	opts.Redis.PoolSize = utils.EnvInt("REDIS_POOL_SIZE", 10)
	opts.Redis.MinIdleConns = 2
	opts.Redis.DialTimeout = 5 * time.Second
	opts.Redis.ReadTimeout = 3 * time.Second
	opts.Redis.WriteTimeout = 3 * time.Second
	return opts, nil
}

// Client wraps the connection shared by the lookup cache, the state store and the run
// notifications.
type Client struct {
	rdb          *redis.Client
	logger       *zap.Logger
	streamMaxLen int64
}

// NewClient connects with OptionsFromEnv and fails when the server does not answer.
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	opts, err := OptionsFromEnv()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts.Redis)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Redis.Addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", opts.Redis.Addr),
		zap.Int("db", opts.Redis.DB),
		zap.Int64("streamMaxLen", opts.StreamMaxLen))

	return Wrap(rdb, logger, opts.StreamMaxLen), nil
}

// Wrap builds a Client around an existing connection.
func Wrap(rdb *redis.Client, logger *zap.Logger, streamMaxLen int64) *Client {
	return &Client{rdb: rdb, logger: logger, streamMaxLen: streamMaxLen}
}

func (c *Client) Close() error { return c.rdb.Close() }

// GetClient returns the underlying connection.
func (c *Client) GetClient() *redis.Client { return c.rdb }

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Announce records a finished run on RunStream and publishes it on the chain's
// channel. Both writes go through one pipeline. Failures are logged, never returned:
// a run that wrote its reports is not undone by a notification.
func (c *Client) Announce(ctx context.Context, event RunEvent) string {
	values, err := event.Values()
	if err != nil {
		c.logger.Warn("Unable to encode run event", zap.String("runID", event.ID), zap.Error(err))
		return ""
	}

	var add *redis.StringCmd
	_, err = c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		add = p.XAdd(ctx, c.xaddArgs(RunStream, values))
		p.Publish(ctx, RunChannel(event.Chain), values["payload"])
		return nil
	})
	if err != nil {
		c.logger.Warn("Unable to announce run",
			zap.String("runID", event.ID),
			zap.String("chain", event.Chain),
			zap.Error(err))
		return ""
	}
	return add.Val()
}

// XAdd appends values to stream, trimming it to the configured length. Returns the
// entry id, or "" after logging the failure.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) string {
	id, err := c.rdb.XAdd(ctx, c.xaddArgs(stream, values)).Result()
	if err != nil {
		c.logger.Warn("Unable to append to stream", zap.String("stream", stream), zap.Error(err))
		return ""
	}
	return id
}

func (c *Client) xaddArgs(stream string, values map[string]interface{}) *redis.XAddArgs {
	args := &redis.XAddArgs{Stream: stream, Values: values}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}
	return args
}

// XRevRange returns up to count entries of stream, newest first.
func (c *Client) XRevRange(ctx context.Context, stream string, count int64) ([]redis.XMessage, error) {
	return c.rdb.XRevRangeN(ctx, stream, "+", "-", count).Result()
}
