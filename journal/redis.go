package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis stream journal.
type RedisConfig struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
	// Stream receives one entry per value; runs go to Stream + ":runs".
	Stream string
	// MaxLen approximately caps the value stream. 0 keeps everything.
	MaxLen int64
}

const runRecordTimeout = 5 * time.Second

// Redis appends records to Redis streams with XADD.
type Redis struct {
	client *goredis.Client
	stream string
	maxLen int64
	ctx    context.Context
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Stream == "" {
		cfg.Stream = "taengine:values"
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Redis{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen, ctx: ctx}, nil
}

// Client returns the underlying client.
func (j *Redis) Client() *goredis.Client { return j.client }

func (j *Redis) Stream() string     { return j.stream }
func (j *Redis) RunsStream() string { return j.stream + ":runs" }

func (j *Redis) RecordValue(v ValueRecord) error {
	return j.client.XAdd(j.ctx, &goredis.XAddArgs{
		Stream: j.stream,
		MaxLen: j.maxLen,
		Approx: j.maxLen > 0,
		Values: map[string]interface{}{
			"run_id":     v.RunID,
			"bar":        strconv.Itoa(v.Bar),
			"time":       v.Time.Format(time.RFC3339Nano),
			"instrument": v.Instrument,
			"name":       v.Name,
			"value":      f(v.Value),
		},
	}).Err()
}

// RecordRun still writes after the journal's context is cancelled, since
// an interrupted run is recorded too. It is bounded by runRecordTimeout.
func (j *Redis) RecordRun(r RunRecord) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), runRecordTimeout)
	defer cancel()
	return j.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: j.RunsStream(),
		Values: map[string]interface{}{
			"run_id":    r.RunID,
			"name":      r.Name,
			"algorithm": r.Algorithm,
			"dataset":   r.Dataset,
			"start":     r.Start.Format(time.RFC3339),
			"end":       r.End.Format(time.RFC3339),
			"bars":      strconv.Itoa(r.Bars),
			"values":    strconv.Itoa(r.Values),
			"computes":  strconv.Itoa(r.Computes),
			"hits":      strconv.Itoa(r.Hits),
			"error":     r.Error,
		},
	}).Err()
}

func (j *Redis) Close() error {
	return j.client.Close()
}
