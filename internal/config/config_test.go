package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultsMatchExecutorPolicy(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	if got := viper.GetInt("executor.max_attempts"); got != 3 {
		t.Fatalf("expected 3 attempts by default, got %d", got)
	}
	if got := viper.GetInt("executor.timeout_ms"); got != 10000 {
		t.Fatalf("expected 10s timeout by default, got %d", got)
	}
	if got := viper.GetString("upstream.transport"); got != "rest" {
		t.Fatalf("expected rest transport by default, got %q", got)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("REGGW_UPSTREAM_TRANSPORT", "soap")

	setDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(replacer())
	viper.AutomaticEnv()

	if got := viper.GetString("upstream.transport"); got != "soap" {
		t.Fatalf("expected env override, got %q", got)
	}
}
