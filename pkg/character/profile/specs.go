package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"ragone-be/internal/entity"
)

// fieldSpec declares how one field is generated. Every field runs through
// the same generate-or-fallback step.
type fieldSpec struct {
	field      Field
	chunkLimit int
	task       string
	fallback   func(c *entity.Character) string
}

func static(text string) func(*entity.Character) string {
	return func(*entity.Character) string { return text }
}

var fieldSpecs = []fieldSpec{
	{
		field:      FieldBackgroundStory,
		chunkLimit: 8,
		task: `Write a rich, detailed background story for the character covering:
1. How the character grew up
2. Important life events
3. Relationships and social background
4. Where their skills and knowledge come from
5. Personal values and beliefs
Stay consistent with the knowledge base content. Keep it between 300 and 500 words.`,
		fallback: static("A background story drawn from the knowledge base content."),
	},
	{
		field:      FieldPersonalityTraits,
		chunkLimit: 6,
		task: `Analyse and summarise the character's main personality traits:
1. Core traits (3 to 5)
2. Habits and preferences
3. How emotions are expressed
4. Social style
Answer as a short list, one sentence per trait.`,
		fallback: static("Friendly, wise, patient, humorous"),
	},
	{
		field:      FieldSpeakingStyle,
		chunkLimit: 6,
		task: `Analyse the character's speaking style:
1. Register (formal or casual, concise or detailed)
2. Typical expressions
3. Emotional colour
4. Use of technical terms
Describe the speaking style in 2 to 3 sentences.`,
		fallback: static("Gentle and thoughtful, likes to explain complex ideas with metaphors and stories"),
	},
	{
		field:      FieldInterests,
		chunkLimit: 6,
		task: `Analyse the character's interests:
1. Main areas of interest
2. Hobbies
3. Learning preferences
4. Ways of relaxing
List 3 to 5 concrete interests.`,
		fallback: static("Reading, reflecting, helping others solve problems"),
	},
	{
		field:      FieldExpertise,
		chunkLimit: 8,
		task: `Analyse the character's areas of expertise:
1. Core professional skills
2. Depth of knowledge
3. Practical experience
4. Credentials or qualifications
List 3 to 5 concrete areas of expertise.`,
		fallback: static("Expertise grounded in the knowledge base content"),
	},
	{
		field:      FieldEmotionalPatterns,
		chunkLimit: 6,
		task: `Analyse the character's emotional patterns:
1. How emotions are expressed
2. Emotional regulation
3. Typical emotional reactions
4. Emotional stability
Describe the emotional patterns in 2 to 3 sentences.`,
		fallback: static("Emotionally steady, a good listener, empathetic"),
	},
	{
		field:      FieldConversationExamples,
		chunkLimit: 6,
		task: `Write 3 to 5 conversation examples that show the character's voice:
1. A greeting
2. Answering a question
3. Expressing an opinion
4. A farewell
Answer in JSON with the keys greeting, question_response, opinion_expression and farewell.`,
		fallback: conversationExamplesFallback,
	},
	{
		field:      FieldRestrictions,
		chunkLimit: 6,
		task: `Define behavioural restrictions for the character:
1. Content the character never provides
2. Topics to avoid
3. Behavioural boundaries
4. Safety rules
List 3 to 5 concrete restrictions.`,
		fallback: static("Never provides harmful information, avoids inappropriate discussions, stays in character"),
	},
	{
		field:      FieldGoalsAndMotivations,
		chunkLimit: 6,
		task: `Analyse the character's goals and motivations:
1. Main goals
2. Inner motivation
3. Values pursued
4. Life mission
Describe the goals and motivations in 2 to 3 sentences.`,
		fallback: static("Helps users gain valuable information and insight through meaningful conversation"),
	},
}

func conversationExamplesFallback(c *entity.Character) string {
	examples := map[string]string{
		"greeting":          fmt.Sprintf("Hello! I'm %s, nice to meet you!", c.Name),
		"question_response": "That's a good question, let me think...",
		"farewell":          "I hope our chat helped. Talk to you next time!",
	}
	b, err := json.Marshal(examples)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// buildFieldPrompt seeds the model with identity, the previous value of the
// field (when regenerating) and at most spec.chunkLimit fragments.
func buildFieldPrompt(spec fieldSpec, c *entity.Character, previous string, fragments []string) string {
	var sb strings.Builder
	sb.WriteString("Based on the information below, work on one aspect of a role-play character.\n\n")
	fmt.Fprintf(&sb, "Character name: %s\n", c.Name)
	fmt.Fprintf(&sb, "Character description: %s\n", c.Description)
	if strings.TrimSpace(previous) != "" {
		fmt.Fprintf(&sb, "Current value: %s\n", previous)
	}
	sb.WriteString("\nRelevant knowledge base content:\n")
	sb.WriteString(joinLimited(fragments, spec.chunkLimit))
	sb.WriteString("\n\n")
	sb.WriteString(spec.task)
	sb.WriteString("\n\nOutput only the requested content without extra explanation.")
	return sb.String()
}

func joinLimited(fragments []string, limit int) string {
	if limit > 0 && len(fragments) > limit {
		fragments = fragments[:limit]
	}
	return strings.Join(fragments, "\n")
}
