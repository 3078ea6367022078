package llm

import (
	"context"
	"testing"
	"time"

	"github.com/investlens/lenscore/internal/models"
)

func TestNewClientRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, models.ModelConfig{Name: "x", Model: "gpt-4o-mini"}, time.Second)
	if err == nil {
		t.Error("expected error when base URL is missing")
	}

	_, err = NewClient(ctx, models.ModelConfig{Name: "x", BaseURL: "http://llm.test"}, time.Second)
	if err == nil {
		t.Error("expected error when model identifier is missing")
	}
}
