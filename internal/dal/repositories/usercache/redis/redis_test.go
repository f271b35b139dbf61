package redis

import (
	"context"
	"os"
	"testing"

	dalredis "github.com/corray333/backend-labs/registration/internal/dal/redis"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/spf13/viper"
)

// Runs against a live Redis when REGGW_TEST_REDIS_ADDR is set.
func TestUserCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REGGW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REGGW_TEST_REDIS_ADDR not set")
	}
	viper.Set("redis.addr", addr)
	t.Cleanup(viper.Reset)

	client := dalredis.MustNewClient()
	defer client.Close()

	ctx := context.Background()
	cache := NewUserCache(client, "test:registration:users", 0)
	t.Cleanup(func() { client.Redis().Del(ctx, "test:registration:users") })

	client.Redis().Del(ctx, "test:registration:users")
	if _, ok, err := cache.Load(ctx); ok || err != nil {
		t.Fatalf("expected empty cache, ok=%v err=%v", ok, err)
	}

	if err := cache.Store(ctx, []person.Person{{CI: "1234567", Nombre: "Ana", Sexo: person.SexFemale}}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	users, ok, err := cache.Load(ctx)
	if err != nil || !ok || len(users) != 1 || users[0].Sexo != person.SexFemale {
		t.Fatalf("unexpected users %+v ok=%v err=%v", users, ok, err)
	}
}
