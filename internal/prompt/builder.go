package prompt

import (
	"fmt"
	"strings"
)

// ProbePrompt asks the model for a fixed sentence; readiness checks look for
// ProbeReply in the answer.
const (
	ProbePrompt = `Hello, can you respond with "AI Tutor is working!"?`
	ProbeReply  = "AI Tutor is working"
)

const curriculumTemplate = `Create a personalized curriculum for a %s level student in %s.

**Student Profile:**
- Previous Knowledge: %s
- Test Scores: %s
- Recent Grades: %s
- Subjects: %s
- Learning Goals: %s

**Requirements:**
Structure the curriculum with clear sections and numbered or bulleted topics so it can be parsed:

## Learning Objectives
• Objective 1
• Objective 2

## Module 1: [Module Name]
### Topic 1.1: [Topic Name]
- Key concepts
- Estimated time: X hours

### Topic 1.2: [Topic Name]
- Key concepts
- Estimated time: X hours

## Module 2: [Module Name]
### Topic 2.1: [Topic Name]
- Key concepts
- Estimated time: X hours

## Assessment Strategy
• Assessment method 1
• Assessment method 2

## Recommended Resources
• Resource 1
• Resource 2

Keep it concise, well structured and focused on this student's needs.`

// BuildCurriculumPrompt renders a profile into the curriculum instruction.
// The caller is responsible for validation; optional fields left blank are
// rendered as NotProvided.
func BuildCurriculumPrompt(p ProfileRequest) string {
	return fmt.Sprintf(curriculumTemplate,
		p.ExperienceLevel,
		p.GradeOrClass,
		p.PriorKnowledge,
		orNotProvided(p.TestScores),
		orNotProvided(p.Grades),
		strings.Join(p.Subjects, ", "),
		p.LearningGoals,
	)
}

const teachingTemplate = `Format the lesson with clear sections and include code examples where relevant:

## What is [Topic]?
[Clear, concise definition with **highlighted** key terms]

## Key Concepts
• **Concept 1**: [Detailed explanation with examples]
• **Concept 2**: [Detailed explanation with examples]

## Real-World Examples
• Example 1: [Description with practical applications]
• Example 2: [Description with practical applications]

## Step-by-Step Process
1. **Step 1**: [Detailed description]
2. **Step 2**: [Detailed description]

## Code Examples
Include relevant code snippets in fenced code blocks:

` + "```" + `language
// Example code here
function example() {
  return "Hello World";
}
` + "```" + `

## Practice Questions
1. **Question 1**: [Clear question with context]
2. **Question 2**: [Clear question with context]

## Common Mistakes to Avoid
• **Mistake 1**: [Why it is wrong and how to avoid it]
• **Mistake 2**: [Why it is wrong and how to avoid it]

## Tips for Success
• **Tip 1**: [Actionable advice]
• **Tip 2**: [Actionable advice]

Use **bold text** for emphasis, use code blocks for programming concepts, and keep explanations clear, engaging and pitched at the student's level.`

// BuildTeachingPrompt renders a lesson instruction for topic at level. The
// context sentence is only included when context is non-empty.
func BuildTeachingPrompt(topic, level, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Teach \"%s\" to a %s student.", topic, level)
	if context = strings.TrimSpace(context); context != "" {
		fmt.Fprintf(&b, " Additional context: %s", context)
	}
	b.WriteString("\n\n")
	b.WriteString(teachingTemplate)
	return b.String()
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotProvided
	}
	return s
}
