// Package assembly builds the full prompt bundle for one chat turn:
// system prompt fragments selected by intent, a priming turn carrying
// task context and attachments, and the trimmed conversation history.
package assembly

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"dataassist/internal/intent"
	"dataassist/internal/logging"
)

//go:embed fragments.yaml
var embeddedFragments []byte

// fragment is one system prompt building block. Fragments tagged with
// the pseudo-intent "all" apply to every turn.
type fragment struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Intents  []string `yaml:"intents"`
	Text     string   `yaml:"text"`
}

type fragmentCorpus struct {
	Fragments []fragment `yaml:"fragments"`
}

// categoryOrder fixes the sequence of sections in the assembled system
// prompt. Identity first, formatting last.
var categoryOrder = []string{"identity", "privacy", "capabilities", "guidance", "formatting"}

var (
	corpusOnce sync.Once
	corpus     []fragment
	corpusErr  error
)

func loadCorpus() ([]fragment, error) {
	corpusOnce.Do(func() {
		var parsed fragmentCorpus
		if err := yaml.Unmarshal(embeddedFragments, &parsed); err != nil {
			corpusErr = fmt.Errorf("failed to parse embedded fragments: %w", err)
			return
		}
		corpus = parsed.Fragments
		logging.ContextDebug("loaded %d embedded prompt fragments", len(corpus))
	})
	return corpus, corpusErr
}

func (f fragment) appliesTo(name intent.Name) bool {
	for _, i := range f.Intents {
		if i == "all" || i == string(name) {
			return true
		}
	}
	return false
}

// systemPromptFor concatenates the fragments that apply to the intent,
// in fixed category order.
func systemPromptFor(name intent.Name) (string, error) {
	frags, err := loadCorpus()
	if err != nil {
		return "", err
	}

	var sections []string
	for _, cat := range categoryOrder {
		for _, f := range frags {
			if f.Category != cat || !f.appliesTo(name) {
				continue
			}
			sections = append(sections, strings.TrimSpace(f.Text))
		}
	}
	return strings.Join(sections, "\n\n"), nil
}
