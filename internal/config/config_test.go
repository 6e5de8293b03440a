package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPPort != "3000" {
		t.Fatalf("expected default port 3000, got %s", cfg.HTTPPort)
	}
	if cfg.StudentDomain != "@engg" || cfg.TeacherDomain != "@ac.in" {
		t.Fatalf("unexpected default domains: %s / %s", cfg.StudentDomain, cfg.TeacherDomain)
	}
	if cfg.DefaultPassword != "1234" {
		t.Fatalf("expected default password 1234, got %s", cfg.DefaultPassword)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %s", cfg.AccessTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("STUDENT_EMAIL_DOMAIN", "@students.example.edu")
	t.Setenv("ACCESS_TTL", "1h")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")

	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.StudentDomain != "@students.example.edu" {
		t.Fatalf("expected overridden student domain, got %s", cfg.StudentDomain)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("expected 1h access TTL, got %s", cfg.AccessTTL)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("expected rate limit 30, got %d", cfg.RateLimitPerMin)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ACCESS_TTL", "not-a-duration")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")

	cfg := Load()
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("expected fallback TTL, got %s", cfg.AccessTTL)
	}
	if cfg.RateLimitPerMin != 120 {
		t.Fatalf("expected fallback rate limit, got %d", cfg.RateLimitPerMin)
	}
}
