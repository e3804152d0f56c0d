//go:build integration
// +build integration

package test

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/svcwatch/svcwatch/session"
)

func newIntegrationTracker(t *testing.T) (*session.Tracker, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := session.NewTracker(rdb, "svcwatch")

	return tracker, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func hashFor(i int) string {
	return session.HashToken(fmt.Sprintf("refresh-%d", i))
}
