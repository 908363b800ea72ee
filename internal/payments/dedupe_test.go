package payments

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisDedupeRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDedupe(client, time.Hour)
	ctx := context.Background()

	seen, err := d.AlreadyProcessed(ctx, "stripe", "evt_1")
	if err != nil {
		t.Fatalf("AlreadyProcessed: %v", err)
	}
	if seen {
		t.Fatal("fresh event must not be marked processed")
	}

	if err := d.MarkProcessed(ctx, "stripe", "evt_1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	seen, err = d.AlreadyProcessed(ctx, "stripe", "evt_1")
	if err != nil {
		t.Fatalf("AlreadyProcessed: %v", err)
	}
	if !seen {
		t.Fatal("expected event marked processed")
	}

	// Same event id under a different provider is independent.
	seen, _ = d.AlreadyProcessed(ctx, "square", "evt_1")
	if seen {
		t.Fatal("provider namespaces must not collide")
	}
}

func TestRedisDedupeEntriesExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDedupe(client, time.Minute)
	ctx := context.Background()

	if err := d.MarkProcessed(ctx, "stripe", "evt_ttl"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	seen, err := d.AlreadyProcessed(ctx, "stripe", "evt_ttl")
	if err != nil {
		t.Fatalf("AlreadyProcessed: %v", err)
	}
	if seen {
		t.Fatal("expected entry to expire after the TTL")
	}
}
