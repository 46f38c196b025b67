package support

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("MAILSIFT_TEST_ENV", "value")
	if got := GetEnv("MAILSIFT_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("GetEnv returned %s, want value", got)
	}

	if got := GetEnv("MAILSIFT_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv returned %s, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("MAILSIFT_TEST_INT", "7")
	if got := GetEnvInt("MAILSIFT_TEST_INT", 1); got != 7 {
		t.Fatalf("GetEnvInt returned %d, want 7", got)
	}

	t.Setenv("MAILSIFT_TEST_INT", "not a number")
	if got := GetEnvInt("MAILSIFT_TEST_INT", 1); got != 1 {
		t.Fatalf("GetEnvInt returned %d, want fallback 1", got)
	}
}

func TestShardIndex(t *testing.T) {
	if got1, got2 := ShardIndex("1.2.3.4", 8), ShardIndex("1.2.3.4", 8); got1 != got2 {
		t.Fatal("ShardIndex returned different buckets for the same key")
	}

	for _, key := range []string{"1.2.3.4", "10.0.0.1", "999.999.999.999"} {
		if got := ShardIndex(key, 4); got < 0 || got > 3 {
			t.Fatalf("ShardIndex returned %d for %s, want 0..3", got, key)
		}
	}

	if got := ShardIndex("anything", 1); got != 0 {
		t.Fatalf("ShardIndex returned %d for a single shard, want 0", got)
	}
}
