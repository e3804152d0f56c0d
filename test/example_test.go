package test

import (
	"context"

	"github.com/redis/go-redis/v9"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/storage/memory"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	store := memory.New()

	cfg := svcwatch.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Session.TrackRefresh = true

	engine, _ := svcwatch.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUsers(store.Users).
		WithServices(store.Services).
		Build()
	_ = engine
}

// ExampleEngine_Login shows a typical login entrypoint call and structured error handling.
func ExampleEngine_Login() {
	var engine *svcwatch.Engine
	_, err := engine.Login(context.Background(), "alice@example.com", "password")
	if err != nil {
		_ = err
	}
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *svcwatch.Engine
	snapshot := engine.MetricsSnapshot()
	_ = snapshot
}
