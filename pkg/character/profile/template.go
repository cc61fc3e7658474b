package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragone-be/internal/entity"
	"ragone-be/internal/pkg/logger"
	"ragone-be/pkg/llm"
)

type Preset string

const (
	PresetStandard Preset = "standard"
	PresetMinimal  Preset = "minimal"
	PresetDetailed Preset = "detailed"
)

// TemplateConfig controls the composite system prompt.
type TemplateConfig struct {
	Enabled bool   `json:"enabled"`
	Preset  Preset `json:"template_type"`

	IncludeBasicInfo         bool `json:"include_basic_info"`
	IncludePersonalityTraits bool `json:"include_personality_traits"`
	IncludeWorkflow          bool `json:"include_workflow"`
	IncludeSpeakingStyle     bool `json:"include_speaking_style"`
	IncludeBackgroundSetting bool `json:"include_background_setting"`
	IncludeInteractionRules  bool `json:"include_interaction_rules"`
	IncludeExamples          bool `json:"include_examples"`

	ExampleCount int    `json:"example_count"`
	CustomPrefix string `json:"custom_prefix"`
	CustomSuffix string `json:"custom_suffix"`
}

// PresetConfig returns the section layout for a preset. Unknown presets get standard.
func PresetConfig(p Preset) TemplateConfig {
	cfg := TemplateConfig{
		Enabled:                  true,
		Preset:                   PresetStandard,
		IncludeBasicInfo:         true,
		IncludePersonalityTraits: true,
		IncludeWorkflow:          true,
		IncludeSpeakingStyle:     true,
		IncludeBackgroundSetting: true,
		IncludeInteractionRules:  true,
		IncludeExamples:          true,
		ExampleCount:             3,
	}
	switch p {
	case PresetMinimal:
		cfg.Preset = PresetMinimal
		cfg.IncludeBackgroundSetting = false
		cfg.IncludeWorkflow = false
		cfg.ExampleCount = 2
	case PresetDetailed:
		cfg.Preset = PresetDetailed
		cfg.ExampleCount = 5
	}
	return cfg
}

// Presets lists the built-in layouts by name.
func Presets() map[Preset]TemplateConfig {
	return map[Preset]TemplateConfig{
		PresetStandard: PresetConfig(PresetStandard),
		PresetMinimal:  PresetConfig(PresetMinimal),
		PresetDetailed: PresetConfig(PresetDetailed),
	}
}

var ErrInvalidTemplateConfig = errors.New("invalid template config")

func (c TemplateConfig) Validate() error {
	switch c.Preset {
	case PresetStandard, PresetMinimal, PresetDetailed:
	default:
		return fmt.Errorf("%w: unknown template preset %q", ErrInvalidTemplateConfig, c.Preset)
	}
	if c.IncludeExamples && (c.ExampleCount < 1 || c.ExampleCount > 10) {
		return fmt.Errorf("%w: example count must be between 1 and 10, got %d", ErrInvalidTemplateConfig, c.ExampleCount)
	}
	return nil
}

var errEmptyTemplate = errors.New("template rendered no sections")

// Composer builds the structured system prompt section by section. Each
// section is a model call with its own fallback.
type Composer struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewComposer(provider llm.LLMProvider, log logger.ILogger) *Composer {
	return &Composer{llm: provider, logger: log}
}

type section struct {
	title    string
	enabled  bool
	prompt   string
	fallback string
}

// Compose returns the composite system prompt. A disabled template yields
// the fallback template. An error means the caller should use the minimal prompt.
func (c *Composer) Compose(ctx context.Context, ch *entity.Character, p *entity.CharacterProfile, fragments []string, cfg TemplateConfig) (string, error) {
	if !cfg.Enabled {
		return FallbackTemplate(ch, p), nil
	}

	var body strings.Builder
	body.WriteString("# Role: Role-play\n\n")

	rendered := 0
	for _, s := range c.sections(ch, p, fragments, cfg) {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text := c.generate(ctx, s)
		fmt.Fprintf(&body, "## %s\n%s\n\n", s.title, strings.TrimSpace(text))
		rendered++
	}
	if rendered == 0 {
		return "", errEmptyTemplate
	}

	prompt := strings.TrimRight(body.String(), "\n")
	if cfg.CustomPrefix != "" {
		prompt = cfg.CustomPrefix + "\n\n" + prompt
	}
	if cfg.CustomSuffix != "" {
		prompt = prompt + "\n\n" + cfg.CustomSuffix
	}
	return prompt, nil
}

func (c *Composer) generate(ctx context.Context, s section) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = s.fallback
		}
	}()
	out, err := c.llm.Generate(ctx, s.prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		c.logger.Warn(moduleTag, "Template section fell back", map[string]interface{}{
			"section": s.title,
			"error":   fmt.Sprint(err),
		})
		return s.fallback
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func (c *Composer) sections(ch *entity.Character, p *entity.CharacterProfile, fragments []string, cfg TemplateConfig) []section {
	head := func(extra string) string {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Character name: %s\nCharacter description: %s\n", ch.Name, ch.Description)
		sb.WriteString(extra)
		return sb.String()
	}
	knowledge := func(limit int) string {
		return "\nRelevant knowledge base content:\n" + joinLimited(fragments, limit) + "\n\n"
	}

	return []section{
		{
			title:   "Basic Info",
			enabled: cfg.IncludeBasicInfo,
			prompt: head(knowledge(5)) + `Fill in the character's basic info in this format:
- Name: {full name}
- Nickname: {nickname}
- Gender: {gender}
- Age: {age}
- Occupation: {occupation}
- Hometown: {hometown}
- Lives in: {current residence}
- Education: {education}
Infer from the knowledge base; write "unknown" where it cannot be determined.`,
			fallback: basicInfoFallback(ch),
		},
		{
			title:   "Personality",
			enabled: cfg.IncludePersonalityTraits,
			prompt: head("Current personality traits: "+orDefault(p.PersonalityTraits, "none")+"\n"+knowledge(6)) +
				"Summarise the character's personality as a list: core traits, habits, emotional expression, social style and distinctive expressions. Start each line with \"-\".",
			fallback: orDefault(p.PersonalityTraits, "- Friendly and gentle\n- Wise and rational\n- Patient and careful\n- Humorous"),
		},
		{
			title:   "Workflow",
			enabled: cfg.IncludeWorkflow,
			prompt: head("Speaking style: "+orDefault(p.SpeakingStyle, "warm and friendly")+"\n"+knowledge(6)) +
				"Design the character's interaction workflow: how to tell who the other person is, reply strategy per relationship, recognising and answering emotions, steering topics, special cases. Start each line with \"-\".",
			fallback: workflowFallback,
		},
		{
			title:   "Speaking Style",
			enabled: cfg.IncludeSpeakingStyle,
			prompt: head("Current speaking style: "+orDefault(p.SpeakingStyle, "warm and friendly")+"\n"+knowledge(6)) +
				"Describe the speaking style as a list: register, typical words and phrases, verbal habits, emotional colour, use of technical terms. Start each line with \"-\".",
			fallback: orDefault(p.SpeakingStyle, "- Gentle and thoughtful language\n- Explains complex ideas with metaphors and stories\n- Listens well and guides the conversation"),
		},
		{
			title:   "Background",
			enabled: cfg.IncludeBackgroundSetting,
			prompt: head("Background story: "+orDefault(p.BackgroundStory, "none")+"\n"+knowledge(8)) +
				"Write the background setting as a list: family and upbringing, key life events, relationships, sources of skills, values and beliefs, lifestyle. Start each line with \"-\".",
			fallback: orDefault(p.BackgroundStory, "- Background built from the knowledge base\n- Rich knowledge and experience\n- Enjoys helping others solve problems"),
		},
		{
			title:   "Interaction Rules",
			enabled: cfg.IncludeInteractionRules,
			prompt: head("Restrictions: "+orDefault(p.Restrictions, "none")+"\nGoals: "+orDefault(p.GoalsAndMotivations, "none")+"\n"+knowledge(6)) +
				"Set interaction rules as a list: emotional boundaries, reply length and style, special cases, tone, taboos, safety rules. Start each line with \"-\".",
			fallback: interactionRulesFallback,
		},
		{
			title:   "Example",
			enabled: cfg.IncludeExamples,
			prompt: head("Speaking style: "+orDefault(p.SpeakingStyle, "warm and friendly")+"\n"+knowledge(6)) +
				fmt.Sprintf("Write %d example exchanges showing the character's voice (greeting, answering, giving an opinion, farewell). Format each as:\nQ: {question}\nA: {answer}\nSeparate examples with a blank line.", cfg.ExampleCount),
			fallback: examplesFallback(ch),
		},
	}
}

const workflowFallback = `- Judge familiarity from how warmly the other person replies
- With acquaintances, be relaxed and close
- With strangers, stay polite and formal
- Adapt the reply style to the topic
- Ask or admit confusion when unsure`

const interactionRulesFallback = `- Stay consistent with the character setting
- Adjust reply length and style to the conversation
- Politely steer away from sensitive topics
- Never provide harmful information or join inappropriate discussions
- Keep a friendly and professional attitude`

func basicInfoFallback(ch *entity.Character) string {
	return fmt.Sprintf(`- Name: %s
- Nickname: %s
- Gender: unknown
- Age: unknown
- Occupation: unknown
- Hometown: unknown
- Lives in: unknown
- Education: unknown`, ch.Name, ch.Name)
}

func examplesFallback(ch *entity.Character) string {
	return fmt.Sprintf(`Q: Hi, nice to meet you!
A: Hi! I'm %s, nice to meet you too! I hope our conversation helps.

Q: Can you help me with this problem?
A: Of course! Let me think... there are a few angles to look at this from.

Q: Thanks for your help!
A: You're welcome! Glad I could help, talk to you next time!`, ch.Name)
}

// FallbackTemplate renders the structured prompt from stored fields only,
// with no model calls.
func FallbackTemplate(ch *entity.Character, p *entity.CharacterProfile) string {
	var sb strings.Builder
	sb.WriteString("# Role: Role-play\n\n")
	fmt.Fprintf(&sb, "## Basic Info\n%s\n\n", basicInfoFallback(ch))
	fmt.Fprintf(&sb, "## Personality\n%s\n\n", orDefault(p.PersonalityTraits, "- Friendly and gentle\n- Wise and rational"))
	fmt.Fprintf(&sb, "## Workflow\n%s\n\n", workflowFallback)
	fmt.Fprintf(&sb, "## Speaking Style\n%s\n\n", orDefault(p.SpeakingStyle, "- Gentle and thoughtful language"))
	fmt.Fprintf(&sb, "## Background\n%s\n\n", orDefault(p.BackgroundStory, "- Background built from the knowledge base"))
	fmt.Fprintf(&sb, "## Interaction Rules\n%s\n\n", interactionRulesFallback)
	fmt.Fprintf(&sb, "## Example\n%s", examplesFallback(ch))
	return sb.String()
}

const minimalContextLimit = 1000

// MinimalPrompt is the last-resort system prompt built directly from the
// character identity and retrieved context.
func MinimalPrompt(ch *entity.Character, fragments []string) string {
	var ctxb strings.Builder
	fmt.Fprintf(&ctxb, "Character name: %s\nCharacter description: %s\n\nRelevant knowledge base content:\n", ch.Name, ch.Description)
	for _, f := range fragments {
		ctxb.WriteString("- ")
		ctxb.WriteString(f)
		ctxb.WriteString("\n")
	}
	background := ctxb.String()
	if r := []rune(background); len(r) > minimalContextLimit {
		background = string(r[:minimalContextLimit]) + "..."
	}

	return fmt.Sprintf("You are %s, %s. Play this role using the background below:\n\n%s\n\nAlways stay in character and respond the way %s would.",
		ch.Name, ch.Description, background, ch.Name)
}
