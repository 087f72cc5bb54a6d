package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mhalter/coachflow/ai/assemble"
	"github.com/mhalter/coachflow/ai/draft"
	"github.com/mhalter/coachflow/ai/mode"
)

// hostEntities is the standalone stand-in for the host productivity system.
// Lookups report nothing (the context assembler degrades per fact) and
// entity creation mints an id and logs what would have been created. A real
// deployment replaces this with adapters onto its own task store.
type hostEntities struct{}

var _ assemble.EntityLookup = hostEntities{}

func (hostEntities) GetCurrentSprint(ctx context.Context, userID int32) (*assemble.Sprint, error) {
	return nil, nil
}

func (hostEntities) ListInProgressTasks(ctx context.Context, userID int32, sprintID int32) ([]assemble.Task, error) {
	return nil, nil
}

func (hostEntities) GetVelocity(ctx context.Context, userID int32) (*assemble.Velocity, error) {
	return nil, nil
}

func (hostEntities) GetStandupStreak(ctx context.Context, userID int32) (int, error) {
	return 0, nil
}

func (hostEntities) GetCeremonyTotals(ctx context.Context, userID int32) (*assemble.CeremonyTotals, error) {
	return nil, nil
}

func (hostEntities) CreateEntity(ctx context.Context, userID int32, d draft.Draft) (string, error) {
	entityID := fmt.Sprintf("%s-%s", d.Kind(), uuid.NewString())
	slog.Info("entity created (standalone mode)", "user_id", userID, "type", d.Kind(), "entity_id", entityID)
	return entityID, nil
}

// hostCeremonies reports no externally scheduled ceremonies; mode detection
// falls through to its time and keyword heuristics.
type hostCeremonies struct{}

var _ mode.CeremonyLookup = hostCeremonies{}

func (hostCeremonies) ActiveCeremonies(ctx context.Context, userID int32) ([]mode.Ceremony, error) {
	return nil, nil
}
