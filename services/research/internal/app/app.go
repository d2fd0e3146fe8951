package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"researchduo/internal/metrics"
	"researchduo/internal/util"
	"researchduo/pkg/domain"
	"researchduo/pkg/store"
)

// Generator runs the three prompt roles. *ai.Agents implements it.
type Generator interface {
	Research(ctx context.Context, topic string) (string, error)
	Refine(ctx context.Context, source, feedback string) (string, error)
	Postify(ctx context.Context, source, requirements string) (string, error)
}

// Config holds runtime dependencies for the core application.
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Generator Generator
	Metrics   *metrics.Metrics
}

// App drives research records through raw, refined and posted, and owns
// the account and session operations that produce an Identity.
type App struct {
	store    store.Store
	sessions store.SessionStore
	gen      Generator
	metrics  *metrics.Metrics
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator required")
	}
	return &App{
		store:    cfg.Store,
		sessions: cfg.Sessions,
		gen:      cfg.Generator,
		metrics:  cfg.Metrics,
	}, nil
}

const (
	opResearch   = metrics.OperationResearch
	opRefine     = metrics.OperationRefine
	opCreatePost = metrics.OperationCreatePost
)

// StartResearch generates a raw report for topic and stores it as a new
// record at step 1 owned by identity.
func (a *App) StartResearch(ctx context.Context, identity domain.Identity, topic string) (domain.ResearchRecord, error) {
	if !identity.Valid() {
		return domain.ResearchRecord{}, ErrIdentityDenied
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.ResearchRecord{}, ErrTopicRequired
	}
	raw, err := a.gen.Research(ctx, topic)
	if err != nil {
		return domain.ResearchRecord{}, a.generationFailed(ctx, opResearch, "", err)
	}
	rec, err := a.store.CreateRecord(ctx, topic, raw, identity)
	if err != nil {
		return domain.ResearchRecord{}, a.persistenceFailed(ctx, opResearch, "", err)
	}
	a.record(opResearch, metrics.OutcomeOK)
	return rec, nil
}

// Refine rewrites the latest content of the record (refined over raw)
// with feedback. The step is raised to at least 2, never lowered.
func (a *App) Refine(ctx context.Context, identity domain.Identity, id, feedback string) (domain.ResearchRecord, error) {
	if !identity.Valid() {
		return domain.ResearchRecord{}, ErrIdentityDenied
	}
	if strings.TrimSpace(feedback) == "" {
		return domain.ResearchRecord{}, ErrFeedbackRequired
	}
	rec, err := a.ownedRecord(ctx, identity, id)
	if err != nil {
		a.recordLookupFailure(opRefine, err)
		return domain.ResearchRecord{}, err
	}
	refined, err := a.gen.Refine(ctx, rec.SourceContent(), feedback)
	if err != nil {
		return domain.ResearchRecord{}, a.generationFailed(ctx, opRefine, rec.ID, err)
	}
	updated, err := a.store.UpdateRecord(ctx, rec.ID, domain.RecordPatch{
		RefinedReport: &refined,
		Step:          domain.StepRefined,
	})
	if err != nil {
		return domain.ResearchRecord{}, a.persistenceFailed(ctx, opRefine, rec.ID, err)
	}
	a.record(opRefine, metrics.OutcomeOK)
	return updated, nil
}

// CreatePost turns the latest content (refined over raw) into the final
// post and moves the record to step 3.
func (a *App) CreatePost(ctx context.Context, identity domain.Identity, id, requirements string) (domain.ResearchRecord, error) {
	rec, err := a.ownedRecord(ctx, identity, id)
	if err != nil {
		a.recordLookupFailure(opCreatePost, err)
		return domain.ResearchRecord{}, err
	}
	post, err := a.gen.Postify(ctx, rec.SourceContent(), strings.TrimSpace(requirements))
	if err != nil {
		return domain.ResearchRecord{}, a.generationFailed(ctx, opCreatePost, rec.ID, err)
	}
	updated, err := a.store.UpdateRecord(ctx, rec.ID, domain.RecordPatch{
		FinalPost: &post,
		Step:      domain.StepPosted,
	})
	if err != nil {
		return domain.ResearchRecord{}, a.persistenceFailed(ctx, opCreatePost, rec.ID, err)
	}
	a.record(opCreatePost, metrics.OutcomeOK)
	return updated, nil
}

// ListHistory returns the records owned by identity, newest first.
func (a *App) ListHistory(ctx context.Context, identity domain.Identity) ([]domain.ResearchRecord, error) {
	if !identity.Valid() {
		return nil, ErrIdentityDenied
	}
	records, err := a.store.ListRecordsByOwner(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	// The store already filters by owner; re-check so a store bug cannot leak.
	out := records[:0]
	for _, rec := range records {
		if rec.OwnedBy(identity) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetRecord returns one record owned by identity.
func (a *App) GetRecord(ctx context.Context, identity domain.Identity, id string) (domain.ResearchRecord, error) {
	return a.ownedRecord(ctx, identity, id)
}

// ArtifactView is the content displayed at one navigation position.
type ArtifactView struct {
	Record       domain.ResearchRecord
	CurrentStep  domain.Step
	Content      string
	CanAdvance   bool
	CanRetreat   bool
	// Neighbouring positions with content; 0 when there is none.
	NextStep     domain.Step
	PreviousStep domain.Step
}

// ViewArtifact reads the artifact at position without generating anything.
// A zero position means the record's latest step.
func (a *App) ViewArtifact(ctx context.Context, identity domain.Identity, id string, position domain.Step) (ArtifactView, error) {
	rec, err := a.ownedRecord(ctx, identity, id)
	if err != nil {
		return ArtifactView{}, err
	}
	if position == 0 {
		position = rec.Step
	}
	content, ok := domain.ArtifactAt(rec, position)
	if !ok {
		return ArtifactView{}, ErrInvalidStep
	}
	return ArtifactView{
		Record:       rec,
		CurrentStep:  position,
		Content:      content,
		CanAdvance:   domain.CanAdvance(rec, position),
		CanRetreat:   domain.CanRetreat(rec, position),
		NextStep:     domain.NextPosition(rec, position),
		PreviousStep: domain.PreviousPosition(rec, position),
	}, nil
}

func (a *App) ownedRecord(ctx context.Context, identity domain.Identity, id string) (domain.ResearchRecord, error) {
	if !identity.Valid() {
		return domain.ResearchRecord{}, ErrIdentityDenied
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ResearchRecord{}, ErrRecordNotFound
	}
	rec, ok, err := a.store.GetRecord(ctx, id)
	if err != nil {
		return domain.ResearchRecord{}, fmt.Errorf("fetch research: %w", err)
	}
	if !ok || !rec.OwnedBy(identity) {
		return domain.ResearchRecord{}, ErrRecordNotFound
	}
	return rec, nil
}

func (a *App) generationFailed(ctx context.Context, op, id string, err error) error {
	util.LoggerFromContext(ctx).Error("generation failed", "operation", op, "research_id", id, "err", err)
	a.record(op, metrics.OutcomeGenerationFailed)
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

func (a *App) persistenceFailed(ctx context.Context, op, id string, err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		// Deleted between read and write.
		a.record(op, metrics.OutcomeNotFound)
		return ErrRecordNotFound
	}
	util.LoggerFromContext(ctx).Error("persist generated content failed", "operation", op, "research_id", id, "err", err)
	a.record(op, metrics.OutcomePersistenceFailed)
	return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
}

func (a *App) recordLookupFailure(op string, err error) {
	if errors.Is(err, ErrRecordNotFound) {
		a.record(op, metrics.OutcomeNotFound)
	}
}

func (a *App) record(op, outcome string) {
	if a.metrics != nil {
		a.metrics.RecordTransition(op, outcome)
	}
}
