package main

import (
	"testing"

	"github.com/z26b/storefront/internal/config"
)

func TestCheckReleaseConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backend.BaseURL = "https://api.example.com"
	if err := checkReleaseConfig(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.Backend.DevMode = true
	if err := checkReleaseConfig(cfg); err == nil {
		t.Fatalf("dev mode should be rejected in release")
	}

	cfg.Backend.DevMode = false
	cfg.Backend.BaseURL = "http://localhost:8080/api"
	if err := checkReleaseConfig(cfg); err == nil {
		t.Fatalf("localhost backend should be rejected in release")
	}

	cfg.Backend.BaseURL = " "
	if err := checkReleaseConfig(cfg); err == nil {
		t.Fatalf("empty backend should be rejected")
	}
}
