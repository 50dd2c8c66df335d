// Package intent classifies what the user wants from a chat turn and
// maps it to an execution profile: which tools to offer, whether images
// and history are assembled, and which backend tier to route to.
package intent

// Name is a classified user intent.
type Name string

const (
	// Action means the user wants a task field changed.
	Action Name = "action"
	// Visual means the user is asking about attached images.
	Visual Name = "visual"
	// Conversational is the default chat intent.
	Conversational Name = "conversational"
	// Research means the user wants background information gathered.
	Research Name = "research"
	// Email means the user is working with their inbox or a draft.
	Email Name = "email"
	// Planning means the user wants schedule or workload reasoning.
	Planning Name = "planning"
)

// Tier selects which backend a profile prefers.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Profile is the execution recipe for one intent. Tools lists tool
// names from the action catalog; an empty list means no tool calling.
type Profile struct {
	Tools            []string
	IncludeImages    bool
	IncludeHistory   bool
	IncludeWorkspace bool
	PreferredBackend Tier
}

// Classified is the result of one classification.
type Classified struct {
	Intent     Name
	Confidence float64
	Reasoning  string
}

// profiles maps each intent to its recipe. Action and email intents
// carry tools; only visual assembles images; research and planning are
// simple text reasoning, cheap enough for the secondary backend.
var profiles = map[Name]Profile{
	Action: {
		Tools:            []string{"update_task", "update_portfolio_task"},
		IncludeImages:    false,
		IncludeHistory:   true,
		IncludeWorkspace: false,
		PreferredBackend: TierPrimary,
	},
	Visual: {
		Tools:            nil,
		IncludeImages:    true,
		IncludeHistory:   true,
		IncludeWorkspace: false,
		PreferredBackend: TierPrimary,
	},
	Conversational: {
		Tools:            nil,
		IncludeImages:    false,
		IncludeHistory:   true,
		IncludeWorkspace: true,
		PreferredBackend: TierPrimary,
	},
	Research: {
		Tools:            nil,
		IncludeImages:    false,
		IncludeHistory:   true,
		IncludeWorkspace: true,
		PreferredBackend: TierSecondary,
	},
	Email: {
		Tools:            []string{"update_email_draft", "create_email_draft"},
		IncludeImages:    false,
		IncludeHistory:   true,
		IncludeWorkspace: true,
		PreferredBackend: TierPrimary,
	},
	Planning: {
		Tools:            nil,
		IncludeImages:    false,
		IncludeHistory:   true,
		IncludeWorkspace: true,
		PreferredBackend: TierSecondary,
	},
}

// ProfileFor returns the execution profile for an intent. Unknown
// intents fall back to the conversational profile.
func ProfileFor(name Name) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles[Conversational]
}

// Constrain applies caller-side facts to a profile. A visual profile
// with no selected images must not request image assembly, and a scope
// without tasks must not offer task tools.
func Constrain(p Profile, hasImages, hasTask bool) Profile {
	p.IncludeImages = p.IncludeImages && hasImages
	if !hasTask {
		p.Tools = filterTaskTools(p.Tools)
	}
	return p
}

func filterTaskTools(tools []string) []string {
	var out []string
	for _, t := range tools {
		if t == "update_task" || t == "update_portfolio_task" {
			continue
		}
		out = append(out, t)
	}
	return out
}
