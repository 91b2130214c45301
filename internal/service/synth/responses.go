package synth

import (
	"github.com/zhouzirui/prompt-tavern/backend/internal/analysis/topic"
	"github.com/zhouzirui/prompt-tavern/backend/internal/model/persona"
)

// responseSet is the canned response data owned by one personality variant.
type responseSet struct {
	buckets  []topic.Bucket
	replies  map[string]string
	fallback string
}

const genericFallback = "I'd be happy to help! Could you provide more details about what you're looking for?"

// responsesFor dispatches on the closed set of personality variants.
func responsesFor(kind persona.Kind) responseSet {
	switch kind {
	case persona.TechnicalExpert:
		return technicalExpert
	case persona.CreativePartner:
		return creativePartner
	case persona.BusinessAdvisor:
		return businessAdvisor
	default:
		return responseSet{fallback: genericFallback}
	}
}

var technicalExpert = responseSet{
	buckets: []topic.Bucket{
		{Topic: "memory", Keywords: []string{"memory", "leak", "heap", "garbage collect", "oom"}},
		{Topic: "performance", Keywords: []string{"performance", "slow", "latency", "bottleneck", "optimiz", "throughput"}},
		{Topic: "frontend", Keywords: []string{"react", "mobile", "frontend", "bundle", "browser", "javascript"}},
		{Topic: "debug", Keywords: []string{"debug", "bug", "error", "crash", "exception", "stack trace"}},
		{Topic: "api", Keywords: []string{" api", "api ", "endpoint", "rest", "http"}},
	},
	replies: map[string]string{
		"memory": `For memory optimization, here's my systematic approach:

**1. Memory Profiling**
- Capture heap profiles under realistic load
- Compare snapshots to find objects that keep growing
- Track allocation rates, not just resident size

**2. Code Optimizations**
- Stream large datasets instead of loading them whole
- Reuse buffers and pool expensive objects
- Release references to large values as soon as they are done

**3. Architecture Changes**
- Cache expensive results in a bounded store
- Move heavy batch work out of the request path

What's your current memory usage pattern? Are you processing large files or handling many concurrent requests?`,
		"performance": `API performance optimization strategy:

**1. Database Layer**
- Add indexes to frequently queried columns
- Use connection pooling
- Remove N+1 query patterns

**2. Application Layer**
- Make I/O non-blocking where the runtime allows it
- Cache expensive computations
- Profile to find the real bottleneck before changing code

**3. Infrastructure**
- Scale horizontally behind a load balancer
- Serve static assets from a CDN
- Monitor latency percentiles, not averages

What's your current response time? Where are you seeing the biggest bottlenecks?`,
		"frontend": `Let's optimize your frontend for mobile performance:

**1. Bundle Analysis**
- Measure your bundle size; large bundles hurt mobile devices first

**2. Code Splitting**
- Split by route and lazy-load components that are not needed at first paint

**3. Image Optimization**
- Serve modern formats with responsive sizes

**4. Render Profiling**
- Profile re-renders and memoize components that render too often

Can you share your current bundle size and which specific mobile issues you're seeing?`,
		"debug": `Systematic debugging approach for production issues:

**1. Information Gathering**
- Collect error logs, stack traces, and system metrics
- Reproduce the issue in a controlled environment

**2. Isolation Strategy**
- Bisect recent changes to narrow down the problem
- Test with minimal data sets

**3. Testing & Validation**
- Write a regression test that fails before the fix
- Add monitoring so the issue cannot return silently

What specific error are you encountering? Do you have logs or stack traces to share?`,
		"api": `API best practices:

**1. Contracts**
- Use consistent status codes and error bodies
- Version your endpoints

**2. Scale**
- Paginate large collections
- Add rate limiting

**3. Operations**
- Document every endpoint
- Add health checks and request tracing

What API challenge can I help you with?`,
	},
	fallback: "I can help with technical challenges! Share more details about your specific issue - error messages, system specs, or performance metrics would be helpful for me to provide targeted solutions.",
}

var creativePartner = responseSet{
	buckets: []topic.Bucket{
		{Topic: "story", Keywords: []string{"story", "novel", "tale", "mystery", "thriller"}},
		{Topic: "character", Keywords: []string{"character", "protagonist", "villain", "hero"}},
		{Topic: "plot", Keywords: []string{"plot", "conflict", "twist", "climax"}},
		{Topic: "writing", Keywords: []string{"write", "writing", "prose", "dialogue", "writer's block"}},
	},
	replies: map[string]string{
		"story": `Exciting story concept! Let's develop this systematically:

**1. Core Elements**
- **Protagonist**: Who is your main character? What makes them unique?
- **Desire**: What do they want more than anything?
- **Obstacle**: What's preventing them from getting it?

**2. Plot Structure**
- **Hook**: What grabs readers in the first chapter?
- **Inciting Incident**: What disrupts their normal world?
- **Climax**: Where does everything come to a head?

**3. Writing Process**
- Outline major plot points
- Write consistently and don't edit while drafting

What genre are you envisioning? What's the emotional core of your story?`,
		"character": `Character development is the heart of great storytelling:

**1. Psychology & Motivation**
- **Deepest Desire**: What do they want most in the world?
- **Greatest Fear**: What terrifies them?
- **Fatal Flaw**: What weakness could destroy them?

**2. Character Arc**
- **Starting Point**: Who are they at the beginning?
- **Catalyst**: What forces them to change?
- **Transformation**: Who do they become?

Who is your protagonist? What's their role in the story you want to tell?`,
		"plot": `Plot development techniques for compelling narratives:

**1. Story Structure**
- **Three-Act Structure**: Setup, confrontation, resolution
- **Hero's Journey**: Classic mythic structure

**2. Plot Techniques**
- **Plant and Payoff**: Set up elements that become important later
- **Rising Stakes**: Each obstacle should be bigger than the last
- **Ticking Clock**: Add urgency with time pressure

What's your story's central conflict? What genre conventions are you working with?`,
		"writing": `Writing techniques that lift any draft:

**1. Craft**
- Show, don't tell, through action and dialogue
- Use sensory details for immersion

**2. Rhythm**
- Vary sentence length
- Read your work aloud to hear the flow

What aspect of your writing would you like to improve?`,
	},
	fallback: "That sounds like an exciting creative project! What aspect would you like to explore first - character development, plot structure, world-building, or writing techniques?",
}

var businessAdvisor = responseSet{
	buckets: []topic.Bucket{
		{Topic: "pricing", Keywords: []string{"pricing", "price", "monetiz", "subscription"}},
		{Topic: "growth", Keywords: []string{"growth", "grow", "scale", "acquisition", "churn"}},
		{Topic: "strategy", Keywords: []string{"strategy", "strategic", "competit", "market"}},
		{Topic: "startup", Keywords: []string{"startup", "saas", "founder", "fundrais", "mvp"}},
	},
	replies: map[string]string{
		"pricing": `Strategic pricing framework:

**1. Value-Based Foundation**
- **Customer ROI**: What measurable value do you deliver?
- **Willingness to Pay**: Survey customers about price sensitivity
- **Competitor Analysis**: Research 5-10 direct competitors

**2. Pricing Model Options**
- **Per-Seat Pricing**: Good for team collaboration tools
- **Usage-Based**: Align cost with customer value received
- **Tiered Pricing**: Good/Better/Best options

**3. Implementation Strategy**
- **Start Higher**: Easier to lower than raise prices
- **A/B Testing**: Test price points with small groups

What problem does your product solve? What's your target customer's current budget for this solution?`,
		"growth": `Sustainable growth framework:

**1. Foundation First**
- **Product-Market Fit**: Ensure strong customer retention
- **Unit Economics**: Keep acquisition cost well below lifetime value

**2. Growth Channels**
- **Content Marketing**: SEO and thought leadership
- **Partnerships**: Integration partners and referral programs
- **Product-Led Growth**: Self-service signup and viral loops

**3. Optimization**
- **Conversion Funnel**: Optimize each stage of the customer journey
- **Cohort Analysis**: Track customer behavior over time

What's your current monthly recurring revenue? What's your biggest growth bottleneck right now?`,
		"strategy": `Strategic business planning methodology:

**1. Market Analysis**
- **Total Addressable Market**: How big is the opportunity?
- **Competitive Landscape**: Who are the major players?

**2. Competitive Positioning**
- **Unique Value Proposition**: What makes you different?
- **SWOT Analysis**: Strengths, weaknesses, opportunities, threats

**3. Execution Planning**
- **OKRs**: Objectives and key results
- **Risk Assessment**: Identify and mitigate key risks

What's your primary strategic challenge? Are you looking to scale the existing business or explore new opportunities?`,
		"startup": `Startup essentials:

**1. Validate**
- Confirm product-market fit with paying customers
- Build the smallest product that proves the concept

**2. Operate**
- Track recurring revenue, churn, and acquisition cost
- Manage cash flow and runway carefully

What stage is your startup in?`,
	},
	fallback: "Great business question! To provide strategic advice, could you share more context about your industry, target market, current business stage, and specific challenges you're facing?",
}
