package config

import (
	"testing"
	"time"
)

func baseConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Pipeline.TargetLanguage = "es"
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	d := Diff(old, new)
	if !d.Empty() {
		t.Fatalf("diff = %+v, want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = LogDebug

	d := Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Fatalf("diff = %+v, want LogLevelChanged to debug", d)
	}
	if d.RestartRequired {
		t.Error("log level change should not require a restart")
	}
}

func TestDiff_TargetLanguage(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Pipeline.TargetLanguage = "fr"

	d := Diff(old, new)
	if !d.TargetLanguageChanged || d.NewTargetLanguage != "fr" {
		t.Fatalf("diff = %+v, want TargetLanguageChanged to fr", d)
	}
	if d.RestartRequired {
		t.Error("target language change should not require a restart")
	}
}

func TestDiff_ProviderChangeRequiresRestart(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Providers.STT.Name = "whisper"

	d := Diff(old, new)
	if !d.RestartRequired {
		t.Fatalf("diff = %+v, want RestartRequired", d)
	}
}

func TestDiff_CadenceChangeRequiresRestart(t *testing.T) {
	old, new := baseConfig(), baseConfig()
	new.Pipeline.SlowInterval = Duration(30 * time.Second)

	d := Diff(old, new)
	if !d.RestartRequired {
		t.Fatalf("diff = %+v, want RestartRequired", d)
	}
}
