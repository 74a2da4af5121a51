package core

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithConnID(t *testing.T) {
	ctx := WithConnID(context.Background(), "conn-1")

	if got := ConnID(ctx); got != "conn-1" {
		t.Errorf("ConnID() = %v, want conn-1", got)
	}
}

func TestConnID_Missing(t *testing.T) {
	if got := ConnID(context.Background()); got != "" {
		t.Errorf("ConnID() = %v, want empty string", got)
	}
}

func TestGenerateConnID(t *testing.T) {
	id1 := GenerateConnID()
	id2 := GenerateConnID()

	if id1 == id2 {
		t.Error("GenerateConnID() should generate unique IDs")
	}
	if _, err := uuid.Parse(id1); err != nil {
		t.Errorf("GenerateConnID() = %q is not a UUID: %v", id1, err)
	}
}
