package bootstrap

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerAddr != ":5000" {
		t.Errorf("expected :5000, got %q", cfg.ServerAddr)
	}
	if cfg.ProductCaptureInterval != 7*time.Second || cfg.FruitCaptureInterval != 7*time.Second {
		t.Errorf("expected 7s capture intervals, got %v / %v", cfg.ProductCaptureInterval, cfg.FruitCaptureInterval)
	}
	if cfg.ProductCamera != 1 || cfg.FruitCamera != 1 {
		t.Errorf("expected camera 1 for both domains, got %d / %d", cfg.ProductCamera, cfg.FruitCamera)
	}
	if cfg.DetectorBackend != DetectorBackendYOLO {
		t.Errorf("expected yolo backend, got %q", cfg.DetectorBackend)
	}
	if cfg.StreamAutostart {
		t.Error("expected autostart to be off by default")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":8080")
	t.Setenv("FRUIT_CAMERA", "2")
	t.Setenv("PRODUCT_CAPTURE_INTERVAL", "3")
	t.Setenv("FRUIT_CAPTURE_INTERVAL", "1500ms")
	t.Setenv("DETECTION_CONFIDENCE", "0.5")
	t.Setenv("STREAM_AUTOSTART", "true")
	t.Setenv("DETECTOR_BACKEND", "http")

	cfg := LoadConfig()

	if cfg.ServerAddr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.ServerAddr)
	}
	if cfg.FruitCamera != 2 {
		t.Errorf("expected fruit camera 2, got %d", cfg.FruitCamera)
	}
	if cfg.ProductCaptureInterval != 3*time.Second {
		t.Errorf("expected 3s, got %v", cfg.ProductCaptureInterval)
	}
	if cfg.FruitCaptureInterval != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", cfg.FruitCaptureInterval)
	}
	if cfg.DetectionConfidence != 0.5 {
		t.Errorf("expected 0.5, got %v", cfg.DetectionConfidence)
	}
	if !cfg.StreamAutostart {
		t.Error("expected autostart on")
	}
	if cfg.DetectorBackend != DetectorBackendHTTP {
		t.Errorf("expected http backend, got %q", cfg.DetectorBackend)
	}
}

func TestGetEnvDuration_Invalid(t *testing.T) {
	t.Setenv("TEST_DURATION", "soon")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("expected default on invalid value, got %v", got)
	}
}

func TestGetEnvInt_Invalid(t *testing.T) {
	t.Setenv("TEST_INT", "many")
	if got := getEnvInt("TEST_INT", 4); got != 4 {
		t.Errorf("expected default on invalid value, got %d", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"warn":    "WARN",
		"error":   "ERROR",
		"info":    "INFO",
		"verbose": "INFO",
	}
	for in, want := range tests {
		if got := parseLogLevel(in).String(); got != want {
			t.Errorf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
