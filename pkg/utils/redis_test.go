package utils

import "testing"

func TestCounterScriptCompiles(t *testing.T) {
	// Compile-time smoke test: the script should be initialized.
	if counterIncrScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestRedisConfigDefaults(t *testing.T) {
	c := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if c.PoolSize <= 0 || c.DialTimeout <= 0 || c.PingTimeout <= 0 {
		t.Fatalf("expected defaults applied, got %+v", c)
	}
}
