package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/siebog/console/internal/db"
	"github.com/siebog/console/internal/model"
)

func newTestRepo(t *testing.T) *AgentRepository {
	t.Helper()
	testDB, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })
	return NewAgentRepository(testDB)
}

func TestAgentRepository_CreateAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 9, 7, 2, 0, time.UTC)

	agents := []*model.Agent{
		{Name: "pinger", Host: "xjaf", Class: "Ping", StartedAt: base},
		{Name: "ponger", Host: "xjaf", Class: "Pong", StartedAt: base.Add(time.Second)},
	}
	for _, a := range agents {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatalf("failed to create agent: %v", err)
		}
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list agents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(got))
	}
	if got[0].Name != "pinger" || got[1].Name != "ponger" {
		t.Errorf("unexpected order: %v", got)
	}
	if got[1].Class != "Pong" {
		t.Errorf("expected class Pong, got %q", got[1].Class)
	}
}

func TestAgentRepository_CreateDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	a := &model.Agent{Name: "dup", Host: "h", StartedAt: time.Now()}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	if err := repo.Create(ctx, a); !errors.Is(err, model.ErrAgentExists) {
		t.Errorf("expected ErrAgentExists, got %v", err)
	}
}

func TestAgentRepository_Delete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Delete(ctx, "missing", ""); !errors.Is(err, model.ErrAgentNotFound) {
		t.Errorf("expected ErrAgentNotFound, got %v", err)
	}

	a := &model.Agent{Name: "gone", StartedAt: time.Now()}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	if err := repo.Delete(ctx, "gone", ""); err != nil {
		t.Fatalf("failed to delete agent: %v", err)
	}

	exists, err := repo.Exists(ctx, "gone", "")
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("agent should not exist after delete")
	}
}

func TestAgentRegistrationRoundTripProperty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	nonEmpty := gen.AlphaString().SuchThat(func(s string) bool {
		return len(s) > 0 && len(s) <= 64
	})

	properties.Property("registered agent is listed until deleted", prop.ForAll(
		func(name, host, class string) bool {
			a := &model.Agent{Name: name, Host: host, Class: class, StartedAt: time.Now()}
			if err := repo.Create(ctx, a); err != nil {
				t.Logf("failed to create agent: %v", err)
				return false
			}

			listed, err := repo.List(ctx)
			if err != nil {
				return false
			}
			found := false
			for _, l := range listed {
				if l.Name == name && l.Host == host && l.Class == class {
					found = true
				}
			}
			if !found {
				return false
			}

			if err := repo.Delete(ctx, name, host); err != nil {
				return false
			}
			exists, err := repo.Exists(ctx, name, host)
			return err == nil && !exists
		},
		nonEmpty,
		nonEmpty,
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
