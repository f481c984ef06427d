package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()
	ctx := context.Background()

	got, err := r.Resolve(ctx, "maintenance_team")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0] != "maintenance_team" {
		t.Errorf("Resolve(maintenance_team) = %v", got)
	}

	// Unknown names pass through as direct recipients.
	got, err = r.Resolve(ctx, "user-42")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0] != "user-42" {
		t.Errorf("Resolve(user-42) = %v", got)
	}
}

func TestStaticResolver_SetGroup(t *testing.T) {
	r := NewStaticResolver()
	members := []string{"user-1", "user-2"}
	r.SetGroup("security_team", members)

	got, err := r.Resolve(context.Background(), "security_team")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 || got[0] != "user-1" {
		t.Errorf("Resolve(security_team) = %v", got)
	}

	// The resolver holds its own copy.
	members[0] = "mutated"
	got, _ = r.Resolve(context.Background(), "security_team")
	if got[0] != "user-1" {
		t.Errorf("group aliased the caller's slice: %v", got)
	}
}

func TestLogNotifier_Send(t *testing.T) {
	n := NewLogNotifier(zap.NewNop())
	err := n.Send(context.Background(), []string{"admin_users"}, "Aviso", "contenido", "internal")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}
