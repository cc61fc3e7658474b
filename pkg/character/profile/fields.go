package profile

import "ragone-be/internal/entity"

// Field names one generated attribute of a character profile. The string
// value is the key used in the persisted field outcomes.
type Field string

const (
	FieldBackgroundStory      Field = "background_story"
	FieldPersonalityTraits    Field = "personality_traits"
	FieldSpeakingStyle        Field = "speaking_style"
	FieldInterests            Field = "interests"
	FieldExpertise            Field = "expertise"
	FieldEmotionalPatterns    Field = "emotional_patterns"
	FieldConversationExamples Field = "conversation_examples"
	FieldRestrictions         Field = "restrictions"
	FieldGoalsAndMotivations  Field = "goals_and_motivations"
	FieldSystemPrompt         Field = "system_prompt"
)

// AllFields lists every profile field, system prompt last.
var AllFields = []Field{
	FieldBackgroundStory,
	FieldPersonalityTraits,
	FieldSpeakingStyle,
	FieldInterests,
	FieldExpertise,
	FieldEmotionalPatterns,
	FieldConversationExamples,
	FieldRestrictions,
	FieldGoalsAndMotivations,
	FieldSystemPrompt,
}

type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeValue
	OutcomeFallback
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValue:
		return "value"
	case OutcomeFallback:
		return "fallback"
	default:
		return "pending"
	}
}

// FieldValue is the tagged result of generating one field.
type FieldValue struct {
	Kind OutcomeKind
	Text string
}

func Pending() FieldValue              { return FieldValue{Kind: OutcomePending} }
func Value(text string) FieldValue    { return FieldValue{Kind: OutcomeValue, Text: text} }
func Fallback(text string) FieldValue { return FieldValue{Kind: OutcomeFallback, Text: text} }

func (f Field) Get(p *entity.CharacterProfile) string {
	switch f {
	case FieldBackgroundStory:
		return p.BackgroundStory
	case FieldPersonalityTraits:
		return p.PersonalityTraits
	case FieldSpeakingStyle:
		return p.SpeakingStyle
	case FieldInterests:
		return p.Interests
	case FieldExpertise:
		return p.Expertise
	case FieldEmotionalPatterns:
		return p.EmotionalPatterns
	case FieldConversationExamples:
		return p.ConversationExamples
	case FieldRestrictions:
		return p.Restrictions
	case FieldGoalsAndMotivations:
		return p.GoalsAndMotivations
	case FieldSystemPrompt:
		return p.SystemPrompt
	}
	return ""
}

func (f Field) Set(p *entity.CharacterProfile, v string) {
	switch f {
	case FieldBackgroundStory:
		p.BackgroundStory = v
	case FieldPersonalityTraits:
		p.PersonalityTraits = v
	case FieldSpeakingStyle:
		p.SpeakingStyle = v
	case FieldInterests:
		p.Interests = v
	case FieldExpertise:
		p.Expertise = v
	case FieldEmotionalPatterns:
		p.EmotionalPatterns = v
	case FieldConversationExamples:
		p.ConversationExamples = v
	case FieldRestrictions:
		p.Restrictions = v
	case FieldGoalsAndMotivations:
		p.GoalsAndMotivations = v
	case FieldSystemPrompt:
		p.SystemPrompt = v
	}
}

// record stores the value on the profile and its outcome tag.
func record(p *entity.CharacterProfile, f Field, v FieldValue) {
	if v.Kind != OutcomePending {
		f.Set(p, v.Text)
	}
	if p.FieldOutcomes == nil {
		p.FieldOutcomes = make(map[string]string, len(AllFields))
	}
	p.FieldOutcomes[string(f)] = v.Kind.String()
}
