package scope

import (
	"context"
	"fmt"

	"carat/internal/core/apperror"
	"carat/internal/core/id"
	"carat/internal/domain/catalogs/branch"
	"carat/pkg/logger"
)

// Actor is the resolver's view of a user record: role label plus home
// branch/store references.
type Actor struct {
	ID       id.ID  `db:"id"`
	Name     string `db:"name"`
	RoleName string `db:"role_name"`
	BranchID *id.ID `db:"branch_id"`
	StoreID  *id.ID `db:"store_id"`
}

// ActorRepository loads the actor record with its role and branch joins.
type ActorRepository interface {
	GetActor(ctx context.Context, actorID id.ID) (*Actor, error)
}

// ReportScope is the derived, non-persisted visibility boundary for one
// report request. Computed fresh per request: role and branch assignment can
// change between calls, so it is never cached.
type ReportScope struct {
	ActorID   id.ID
	BranchID  *id.ID
	StoreID   *id.ID
	Role      RoleClass
	BranchIDs []id.ID
}

// CanAccessBranch reports whether the branch is inside the scope.
func (s *ReportScope) CanAccessBranch(branchID id.ID) bool {
	for _, b := range s.BranchIDs {
		if b == branchID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the scope grants no branches. Downstream report
// calls must treat this as Forbidden, never as "see nothing silently".
func (s *ReportScope) IsEmpty() bool {
	return len(s.BranchIDs) == 0
}

// Resolver computes report scopes from actor records and the branch catalog.
type Resolver struct {
	actors     ActorRepository
	branches   branch.Repository
	classifier *Classifier
}

// NewResolver creates a scope resolver.
func NewResolver(actors ActorRepository, branches branch.Repository, classifier *Classifier) *Resolver {
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}
	return &Resolver{
		actors:     actors,
		branches:   branches,
		classifier: classifier,
	}
}

// Resolve computes the accessible branch set for an actor:
//   - owner with a home store: all non-deleted branches of that store
//   - owner without a home branch/store: all non-deleted branches system-wide
//   - manager or any other role with a home branch: exactly that branch
//   - no home branch: empty set
func (r *Resolver) Resolve(ctx context.Context, actorID id.ID) (*ReportScope, error) {
	if id.IsNil(actorID) {
		return nil, apperror.NewUnauthorized("no actor in request")
	}

	actor, err := r.actors.GetActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	s := &ReportScope{
		ActorID:  actor.ID,
		BranchID: actor.BranchID,
		StoreID:  actor.StoreID,
		Role:     r.classifier.Classify(actor.RoleName),
	}

	switch {
	case s.Role == RoleOwner && actor.StoreID != nil:
		branches, err := r.branches.ListActiveByStore(ctx, *actor.StoreID)
		if err != nil {
			return nil, fmt.Errorf("list store branches: %w", err)
		}
		s.BranchIDs = branchIDs(branches)

	case s.Role == RoleOwner:
		// Store-less owner sees everything.
		branches, err := r.branches.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list branches: %w", err)
		}
		s.BranchIDs = branchIDs(branches)

	case actor.BranchID != nil:
		s.BranchIDs = []id.ID{*actor.BranchID}

	default:
		logger.Warn(ctx, "actor has no home branch, report scope is empty",
			"actor_id", actorID,
		)
		s.BranchIDs = nil
	}

	return s, nil
}

func branchIDs(branches []branch.Branch) []id.ID {
	ids := make([]id.ID, len(branches))
	for i, b := range branches {
		ids[i] = b.ID
	}
	return ids
}
