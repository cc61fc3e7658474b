package profile

import (
	"context"
	"strings"
	"testing"

	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetConfig(t *testing.T) {
	tests := []struct {
		preset       Preset
		background   bool
		workflow     bool
		exampleCount int
	}{
		{PresetStandard, true, true, 3},
		{PresetMinimal, false, false, 2},
		{PresetDetailed, true, true, 5},
		{"unknown", true, true, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			cfg := PresetConfig(tt.preset)
			assert.True(t, cfg.Enabled)
			assert.Equal(t, tt.background, cfg.IncludeBackgroundSetting)
			assert.Equal(t, tt.workflow, cfg.IncludeWorkflow)
			assert.Equal(t, tt.exampleCount, cfg.ExampleCount)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestTemplateConfig_Validate(t *testing.T) {
	cfg := PresetConfig(PresetStandard)
	cfg.ExampleCount = 0
	assert.Error(t, cfg.Validate())

	cfg.ExampleCount = 11
	assert.Error(t, cfg.Validate())

	cfg.IncludeExamples = false
	assert.NoError(t, cfg.Validate())

	cfg = PresetConfig(PresetStandard)
	cfg.Preset = "custom"
	assert.Error(t, cfg.Validate())
}

func compose(t *testing.T, cfg TemplateConfig, provider scriptedLLM) (string, error) {
	t.Helper()
	c := NewComposer(provider, logger.NewNopLogger())
	return c.Compose(context.Background(), testCharacter(), &entity.CharacterProfile{}, []string{"fragment"}, cfg)
}

func TestCompose_SectionToggles(t *testing.T) {
	cfg := PresetConfig(PresetStandard)
	cfg.IncludeWorkflow = false
	cfg.IncludeExamples = false

	out, err := compose(t, cfg, scriptedLLM{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Role: Role-play"))
	assert.Contains(t, out, "## Basic Info\ngenerated")
	assert.Contains(t, out, "## Personality")
	assert.NotContains(t, out, "## Workflow")
	assert.NotContains(t, out, "## Example")
}

func TestCompose_PrefixAndSuffix(t *testing.T) {
	cfg := PresetConfig(PresetMinimal)
	cfg.CustomPrefix = "PREFIX"
	cfg.CustomSuffix = "SUFFIX"

	out, err := compose(t, cfg, scriptedLLM{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "PREFIX\n\n# Role"))
	assert.True(t, strings.HasSuffix(out, "\n\nSUFFIX"))
	assert.NotContains(t, out, "## Background")
}

func TestCompose_ExampleCountReachesPrompt(t *testing.T) {
	var seen string
	provider := scriptedLLM{fail: func(p string) bool {
		if strings.Contains(p, "example exchanges") {
			seen = p
		}
		return false
	}}
	_, err := compose(t, PresetConfig(PresetDetailed), provider)
	require.NoError(t, err)
	assert.Contains(t, seen, "Write 5 example exchanges")
}

func TestCompose_SectionFallback(t *testing.T) {
	provider := scriptedLLM{fail: func(p string) bool { return strings.Contains(p, "basic info") }}
	out, err := compose(t, PresetConfig(PresetStandard), provider)
	require.NoError(t, err)
	assert.Contains(t, out, "- Name: Ada\n- Nickname: Ada")
}

func TestCompose_DisabledUsesFallbackTemplate(t *testing.T) {
	cfg := PresetConfig(PresetStandard)
	cfg.Enabled = false

	called := false
	out, err := compose(t, cfg, scriptedLLM{fail: func(string) bool { called = true; return false }})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, out, "## Interaction Rules")
}

func TestCompose_NoSectionsIsAnError(t *testing.T) {
	cfg := TemplateConfig{Enabled: true, Preset: PresetStandard}
	_, err := compose(t, cfg, scriptedLLM{})
	assert.ErrorIs(t, err, errEmptyTemplate)
}

func TestGenerate_TemplateFailureUsesMinimalPrompt(t *testing.T) {
	profiles := &memoryProfiles{}
	cfg := DefaultConfig()
	cfg.Template = TemplateConfig{Enabled: true, Preset: PresetStandard}

	p := NewPipeline(profiles, &fixedSearcher{results: fusedN(2)}, scriptedLLM{}, cfg, logger.NewNopLogger())
	prof, err := p.Generate(context.Background(), testCharacter())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(prof.SystemPrompt, "You are Ada, a patient maths tutor."))
	assert.Contains(t, prof.SystemPrompt, "- fragment 1")
	assert.Equal(t, "fallback", prof.FieldOutcomes[string(FieldSystemPrompt)])
}

func TestMinimalPrompt_TruncatesContext(t *testing.T) {
	long := strings.Repeat("x", 3000)
	out := MinimalPrompt(testCharacter(), []string{long})
	assert.Contains(t, out, "...")
	assert.Less(t, len(out), 1400)
}
