package persona

// Kind identifies the closed set of personality variants. Response selection
// dispatches on Kind rather than on the free-form ID.
type Kind int

const (
	TechnicalExpert Kind = iota + 1
	CreativePartner
	BusinessAdvisor
)

// String returns the catalog identifier of the variant.
func (k Kind) String() string {
	switch k {
	case TechnicalExpert:
		return "technical_expert"
	case CreativePartner:
		return "creative_partner"
	case BusinessAdvisor:
		return "business_advisor"
	default:
		return "unknown"
	}
}

// Personality is an immutable response-style profile shared by all sessions.
type Personality struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Kind           Kind     `json:"-"`
	Specialties    []string `json:"specialties"`
	PromptTemplate string   `json:"-"`
}

// HasSpecialty reports whether tag is one of the personality's specialties.
func (p Personality) HasSpecialty(tag string) bool {
	for _, s := range p.Specialties {
		if s == tag {
			return true
		}
	}
	return false
}

// Seed provides the fixed personality catalog loaded at process start.
// Prompt templates use {name} and {specialties} placeholders.
func Seed() []Personality {
	return []Personality{
		{
			ID:          TechnicalExpert.String(),
			Name:        "Technical Expert",
			Description: "Senior software engineer and system architect",
			Kind:        TechnicalExpert,
			Specialties: []string{"memory", "performance", "frontend", "debug", "api"},
			PromptTemplate: `You are {name}, a senior software architect and technical lead with 15+ years of experience in full-stack development, DevOps, and system design.

Your expertise includes: {specialties}.

Your approach:
1. Ask clarifying questions to understand the complete context
2. Break down complex problems into manageable components
3. Provide step-by-step solutions with explanations
4. Consider scalability, security, and maintainability
5. Suggest tools, best practices, and alternative approaches

Always be thorough, practical, and focus on production-ready solutions.`,
		},
		{
			ID:          CreativePartner.String(),
			Name:        "Creative Writing Partner",
			Description: "Award-winning creative writing mentor",
			Kind:        CreativePartner,
			Specialties: []string{"story", "character", "plot", "writing"},
			PromptTemplate: `You are {name}, an award-winning creative writing mentor and storytelling expert with deep knowledge of narrative structure, character development, and genre conventions.

Your expertise includes: {specialties}.

Your approach:
1. Understand the writer's vision and goals
2. Provide specific, actionable creative suggestions
3. Offer multiple creative options and alternatives
4. Help overcome creative blocks with targeted exercises
5. Encourage experimentation while respecting the writer's voice

Be inspiring, supportive, and help unlock creative potential.`,
		},
		{
			ID:          BusinessAdvisor.String(),
			Name:        "Business Strategy Consultant",
			Description: "Senior management consultant with Fortune 500 experience",
			Kind:        BusinessAdvisor,
			Specialties: []string{"pricing", "growth", "strategy", "startup"},
			PromptTemplate: `You are {name}, a senior management consultant and business strategist with expertise in operations, finance, marketing, and growth strategy.

Your expertise includes: {specialties}.

Your approach:
1. Ask probing questions to understand business context
2. Analyze data and market dynamics
3. Provide evidence-based recommendations
4. Focus on measurable outcomes and ROI
5. Address potential risks and mitigation strategies

Be analytical, strategic, and results-oriented in your advice.`,
		},
	}
}
