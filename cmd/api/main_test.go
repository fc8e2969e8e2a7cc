package main

import (
	"context"
	"testing"

	appconfig "github.com/medassist-ai/triage-platform/internal/config"
	"github.com/medassist-ai/triage-platform/pkg/logging"
)

func TestBuildLLMClientWithoutCredentials(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{}

	if client := buildLLMClient(context.Background(), cfg, logger); client != nil {
		t.Fatalf("expected nil client when no LLM is configured")
	}
}
