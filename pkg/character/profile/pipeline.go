// Package profile generates character profiles from knowledge base content.
//
// Generation is a small state machine persisted through ProfileStore:
// a GENERATING placeholder is saved before any model call, every field is
// generated independently with a static fallback, the composite system
// prompt is built last, and the profile ends COMPLETED or FAILED.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/llm"
	"ragone-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const moduleTag = "PROFILE"

const placeholderPrompt = "Character profile is being generated..."

var ErrProfileNotFound = errors.New("character profile not found")

// ProfileStore persists the single profile row of a character.
type ProfileStore interface {
	FindByCharacterId(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error)
	Save(ctx context.Context, profile *entity.CharacterProfile) error
}

// Searcher is the retrieval capability used for grounding.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, kbId uuid.UUID) []store.FusedResult
}

type Config struct {
	// QueryCap bounds how many fragments each retrieval query contributes.
	QueryCap  int
	ModelName string
	Template  TemplateConfig
}

func DefaultConfig() Config {
	return Config{
		QueryCap: 5,
		Template: PresetConfig(PresetStandard),
	}
}

// Pipeline is safe for concurrent use across characters. Serialising runs
// for the same character is the caller's job.
type Pipeline struct {
	store    ProfileStore
	searcher Searcher
	llm      llm.LLMProvider
	composer *Composer
	cfg      Config
	logger   logger.ILogger
	// receives every field prompt and model output
	audit  logger.ILogger
	tracer trace.Tracer
	now    func() time.Time
}

func NewPipeline(profiles ProfileStore, searcher Searcher, provider llm.LLMProvider, cfg Config, log logger.ILogger) *Pipeline {
	if cfg.QueryCap <= 0 {
		cfg.QueryCap = DefaultConfig().QueryCap
	}
	return &Pipeline{
		store:    profiles,
		searcher: searcher,
		llm:      provider,
		composer: NewComposer(provider, log),
		cfg:      cfg,
		logger:   log,
		audit:    logger.NewNopLogger(),
		tracer:   otel.Tracer("ragone-be/character/profile"),
		now:      time.Now,
	}
}

// WithAuditLog sends field prompts and outputs to audit instead of dropping them.
func (p *Pipeline) WithAuditLog(audit logger.ILogger) *Pipeline {
	if audit != nil {
		p.audit = audit
	}
	return p
}

// TemplateConfig is the layout used when a caller supplies none.
func (p *Pipeline) TemplateConfig() TemplateConfig {
	return p.cfg.Template
}

// resolveTemplate validates a caller-supplied layout, or returns the default.
func (p *Pipeline) resolveTemplate(override *TemplateConfig) (TemplateConfig, error) {
	if override == nil {
		return p.cfg.Template, nil
	}
	if err := override.Validate(); err != nil {
		return TemplateConfig{}, err
	}
	return *override, nil
}

// CreateDraft persists an empty DRAFT profile at version 0 unless the
// character already has one. The first generation moves it to version 1.
func (p *Pipeline) CreateDraft(ctx context.Context, ch *entity.Character) (*entity.CharacterProfile, error) {
	existing, err := p.store.FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := p.now()
	prof := &entity.CharacterProfile{
		CharacterId:      ch.Id,
		Status:           entity.ProfileStatusDraft,
		GenerationMethod: entity.GenerationMethodTemplate,
		Version:          0,
		CreatedAt:        now,
		UpdatedAt:        &now,
	}
	if err := p.store.Save(ctx, prof); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return prof, nil
}

// Generate runs a full generation for the character and returns the saved profile.
// On failure the profile is persisted as FAILED and the error is returned.
func (p *Pipeline) Generate(ctx context.Context, ch *entity.Character) (*entity.CharacterProfile, error) {
	ctx, span := p.tracer.Start(ctx, "profile.Generate", trace.WithAttributes(
		attribute.String("character_id", ch.Id.String()),
	))
	defer span.End()

	prof, err := p.startGeneration(ctx, ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := p.run(ctx, ch, prof); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.markFailed(ctx, ch, prof, err)
		return prof, err
	}

	span.SetAttributes(attribute.Int("version", prof.Version))
	return prof, nil
}

// startGeneration persists the GENERATING placeholder. A new profile starts
// at version 1, an existing one is bumped.
func (p *Pipeline) startGeneration(ctx context.Context, ch *entity.Character) (*entity.CharacterProfile, error) {
	existing, err := p.store.FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := p.now()
	prof := existing
	if prof == nil {
		prof = &entity.CharacterProfile{
			CharacterId: ch.Id,
			Version:     1,
			CreatedAt:   now,
		}
	} else {
		prof.Version++
	}

	prof.Status = entity.ProfileStatusGenerating
	prof.GenerationMethod = entity.GenerationMethodAI
	prof.SystemPrompt = placeholderPrompt
	prof.UpdatedAt = &now
	prof.FieldOutcomes = make(map[string]string, len(AllFields))
	for _, f := range AllFields {
		record(prof, f, Pending())
	}

	if err := p.store.Save(ctx, prof); err != nil {
		return nil, fmt.Errorf("save placeholder: %w", err)
	}

	p.logger.Info(moduleTag, "Profile generation started", map[string]interface{}{
		"character_id": ch.Id.String(),
		"version":      prof.Version,
	})
	return prof, nil
}

func (p *Pipeline) run(ctx context.Context, ch *entity.Character, prof *entity.CharacterProfile) error {
	fragments := p.retrieve(ctx, ch)

	aiGenerated := false
	for _, spec := range fieldSpecs {
		v := p.generateField(ctx, spec, ch, spec.field.Get(prof), fragments)
		if v.Kind == OutcomeValue {
			aiGenerated = true
		}
		record(prof, spec.field, v)
	}

	// A cancelled context is not a field failure to absorb.
	if err := ctx.Err(); err != nil {
		return err
	}

	record(prof, FieldSystemPrompt, p.composeSystemPrompt(ctx, ch, prof, fragments, p.cfg.Template))

	now := p.now()
	prof.GenerationConfig = map[string]interface{}{
		"chunksUsed":     len(fragments),
		"generatedAt":    now.Format(time.RFC3339),
		"model":          p.cfg.ModelName,
		"aiGenerated":    aiGenerated,
		"templatePreset": string(p.cfg.Template.Preset),
	}
	prof.Status = entity.ProfileStatusCompleted
	prof.UpdatedAt = &now

	if err := p.store.Save(ctx, prof); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	p.logger.Info(moduleTag, "Profile generation completed", map[string]interface{}{
		"character_id": ch.Id.String(),
		"version":      prof.Version,
		"chunks_used":  len(fragments),
		"ai_generated": aiGenerated,
	})
	return nil
}

func (p *Pipeline) markFailed(ctx context.Context, ch *entity.Character, prof *entity.CharacterProfile, cause error) {
	now := p.now()
	prof.Status = entity.ProfileStatusFailed
	prof.SystemPrompt = fmt.Sprintf("Character profile generation failed: %v. Please try again later.", cause)
	prof.UpdatedAt = &now

	if err := p.store.Save(context.WithoutCancel(ctx), prof); err != nil {
		p.logger.Error(moduleTag, "Failed to persist FAILED profile", map[string]interface{}{
			"character_id": ch.Id.String(),
			"error":        err.Error(),
		})
	}
	p.logger.Error(moduleTag, "Profile generation failed", map[string]interface{}{
		"character_id": ch.Id.String(),
		"version":      prof.Version,
		"error":        cause.Error(),
	})
}

// retrieve runs the fixed grounding queries, each capped at QueryCap, and
// returns the deduplicated fragment texts in first-seen order.
func (p *Pipeline) retrieve(ctx context.Context, ch *entity.Character) []string {
	queries := []string{
		"personality traits character features",
		"speaking style language habits expressions",
		"background story experience history",
		"interests hobbies skills expertise",
		"goals motivations wishes",
		strings.TrimSpace(ch.Name + " " + ch.Description),
	}

	seen := make(map[uuid.UUID]bool)
	fragments := make([]string, 0)
	for _, q := range queries {
		results := p.searcher.HybridSearch(ctx, q, ch.KnowledgeBaseId)
		if len(results) > p.cfg.QueryCap {
			results = results[:p.cfg.QueryCap]
		}
		for _, r := range results {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			fragments = append(fragments, r.Content)
		}
	}

	p.logger.Debug(moduleTag, "Grounding fragments retrieved", map[string]interface{}{
		"character_id": ch.Id.String(),
		"fragments":    len(fragments),
	})
	return fragments
}

func (p *Pipeline) generateField(ctx context.Context, spec fieldSpec, ch *entity.Character, previous string, fragments []string) (v FieldValue) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(moduleTag, "Field generation panicked", map[string]interface{}{
				"field": string(spec.field),
				"panic": fmt.Sprint(r),
			})
			v = Fallback(spec.fallback(ch))
		}
	}()

	prompt := buildFieldPrompt(spec, ch, previous, fragments)
	out, err := p.llm.Generate(ctx, prompt)
	p.audit.Info(moduleTag, "Field model call", map[string]interface{}{
		"character_id": ch.Id.String(),
		"field":        string(spec.field),
		"prompt":       prompt,
		"output":       out,
		"error":        fmt.Sprint(err),
	})
	if err != nil || strings.TrimSpace(out) == "" {
		p.logger.Warn(moduleTag, "Field fell back to default", map[string]interface{}{
			"field": string(spec.field),
			"error": fmt.Sprint(err),
		})
		return Fallback(spec.fallback(ch))
	}
	return Value(strings.TrimSpace(out))
}

func (p *Pipeline) composeSystemPrompt(ctx context.Context, ch *entity.Character, prof *entity.CharacterProfile, fragments []string, tmpl TemplateConfig) FieldValue {
	prompt, err := p.composer.Compose(ctx, ch, prof, fragments, tmpl)
	if err != nil || strings.TrimSpace(prompt) == "" {
		p.logger.Warn(moduleTag, "Template composition failed, using minimal prompt", map[string]interface{}{
			"character_id": ch.Id.String(),
			"error":        fmt.Sprint(err),
		})
		return Fallback(MinimalPrompt(ch, fragments))
	}
	if !tmpl.Enabled {
		return Fallback(prompt)
	}
	return Value(prompt)
}

// RegenerateSystemPrompt re-runs retrieval and the composite step only.
// A nil override uses the configured layout; an invalid one is rejected
// before anything is read or written.
func (p *Pipeline) RegenerateSystemPrompt(ctx context.Context, ch *entity.Character, override *TemplateConfig) (*entity.CharacterProfile, error) {
	tmpl, err := p.resolveTemplate(override)
	if err != nil {
		return nil, err
	}

	prof, err := p.store.FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}

	fragments := p.retrieve(ctx, ch)
	record(prof, FieldSystemPrompt, p.composeSystemPrompt(ctx, ch, prof, fragments, tmpl))

	now := p.now()
	if prof.GenerationConfig == nil {
		prof.GenerationConfig = map[string]interface{}{}
	}
	prof.GenerationConfig["templatePreset"] = string(tmpl.Preset)
	prof.Version++
	prof.UpdatedAt = &now
	if err := p.store.Save(ctx, prof); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return prof, nil
}

// ComposePreview builds a system prompt with the given layout without saving
// anything. Characters without a profile are composed from their name and
// description alone.
func (p *Pipeline) ComposePreview(ctx context.Context, ch *entity.Character, override *TemplateConfig) (string, error) {
	tmpl, err := p.resolveTemplate(override)
	if err != nil {
		return "", err
	}

	prof, err := p.store.FindByCharacterId(ctx, ch.Id)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	if prof == nil {
		prof = &entity.CharacterProfile{CharacterId: ch.Id}
	}

	return p.composeSystemPrompt(ctx, ch, prof, p.retrieve(ctx, ch), tmpl).Text, nil
}

func (p *Pipeline) GetProfile(ctx context.Context, characterId uuid.UUID) (*entity.CharacterProfile, error) {
	return p.store.FindByCharacterId(ctx, characterId)
}

func (p *Pipeline) IsProfileCompleted(ctx context.Context, characterId uuid.UUID) (bool, error) {
	prof, err := p.store.FindByCharacterId(ctx, characterId)
	if err != nil {
		return false, err
	}
	return prof != nil && prof.Status == entity.ProfileStatusCompleted, nil
}

// Patch carries a manual edit. Nil fields are left unchanged.
type Patch struct {
	SystemPrompt         *string
	BackgroundStory      *string
	PersonalityTraits    *string
	SpeakingStyle        *string
	Interests            *string
	Expertise            *string
	EmotionalPatterns    *string
	ConversationExamples *string
	Restrictions         *string
	GoalsAndMotivations  *string
}

func (pt Patch) values() map[Field]*string {
	return map[Field]*string{
		FieldSystemPrompt:         pt.SystemPrompt,
		FieldBackgroundStory:      pt.BackgroundStory,
		FieldPersonalityTraits:    pt.PersonalityTraits,
		FieldSpeakingStyle:        pt.SpeakingStyle,
		FieldInterests:            pt.Interests,
		FieldExpertise:            pt.Expertise,
		FieldEmotionalPatterns:    pt.EmotionalPatterns,
		FieldConversationExamples: pt.ConversationExamples,
		FieldRestrictions:         pt.Restrictions,
		FieldGoalsAndMotivations:  pt.GoalsAndMotivations,
	}
}

// UpdateProfile applies a manual edit, marks the profile MANUAL_CREATED and
// bumps the version.
func (p *Pipeline) UpdateProfile(ctx context.Context, characterId uuid.UUID, patch Patch) (*entity.CharacterProfile, error) {
	prof, err := p.store.FindByCharacterId(ctx, characterId)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if prof == nil {
		return nil, ErrProfileNotFound
	}

	for f, v := range patch.values() {
		if v == nil {
			continue
		}
		// system prompt is required once the profile has left DRAFT
		if f == FieldSystemPrompt && strings.TrimSpace(*v) == "" && prof.Status != entity.ProfileStatusDraft {
			continue
		}
		f.Set(prof, *v)
	}

	now := p.now()
	prof.GenerationMethod = entity.GenerationMethodManual
	prof.Version++
	prof.UpdatedAt = &now
	if err := p.store.Save(ctx, prof); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return prof, nil
}
