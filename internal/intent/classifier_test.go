package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"dataassist/internal/llm"
)

// fakeBackend returns a canned response or error.
type fakeBackend struct {
	resp *llm.Response
	err  error
}

func (f *fakeBackend) Name() string         { return "fake" }
func (f *fakeBackend) SupportsTools() bool  { return false }
func (f *fakeBackend) SupportsVision() bool { return false }
func (f *fakeBackend) Call(context.Context, llm.Request) (*llm.Response, error) {
	return f.resp, f.err
}

var _ llm.Backend = (*fakeBackend)(nil)

func TestClassifyKeywords(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		message string
		want    Name
	}{
		{"can you mark it done please", Action},
		{"set the priority to high", Action},
		{"what does this screenshot show? look at the image", Visual},
		{"what's in this picture?", Visual},
		{"can you describe this photo", Visual},
		{"what is in this image", Visual},
		{"draft a reply thanking them", Email},
		{"plan my week around the deadline", Planning},
		{"look up the vendor's return policy", Research},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			got := c.Classify(context.Background(), tc.message)
			assert.Equal(t, tc.want, got.Intent)
			assert.GreaterOrEqual(t, got.Confidence, 0.9)
		})
	}
}

func TestClassifyActionBeatsVisual(t *testing.T) {
	c := NewClassifier(nil)
	got := c.Classify(context.Background(), "mark it done, the one with the screenshot in the image")
	assert.Equal(t, Action, got.Intent)
}

func TestClassifyLLMFallback(t *testing.T) {
	t.Run("well-formed JSON", func(t *testing.T) {
		c := NewClassifier(&fakeBackend{resp: &llm.Response{
			TextBlocks: []string{`{"intent": "planning", "confidence": 0.8, "reasoning": "scheduling question"}`},
		}})
		got := c.Classify(context.Background(), "how busy is thursday")
		assert.Equal(t, Planning, got.Intent)
		assert.InDelta(t, 0.8, got.Confidence, 0.001)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		c := NewClassifier(&fakeBackend{resp: &llm.Response{
			TextBlocks: []string{"```json\n{\"intent\": \"research\", \"confidence\": 0.7, \"reasoning\": \"x\"}\n```"},
		}})
		got := c.Classify(context.Background(), "tell me more")
		assert.Equal(t, Research, got.Intent)
	})

	t.Run("backend error degrades to conversational", func(t *testing.T) {
		c := NewClassifier(&fakeBackend{err: errors.New("boom")})
		got := c.Classify(context.Background(), "hmm, interesting")
		assert.Equal(t, Conversational, got.Intent)
		assert.InDelta(t, 0.55, got.Confidence, 0.001)
	})

	t.Run("garbage output degrades to conversational", func(t *testing.T) {
		c := NewClassifier(&fakeBackend{resp: &llm.Response{TextBlocks: []string{"not json at all"}}})
		got := c.Classify(context.Background(), "hmm")
		assert.Equal(t, Conversational, got.Intent)
	})

	t.Run("unknown intent name degrades to conversational", func(t *testing.T) {
		c := NewClassifier(&fakeBackend{resp: &llm.Response{
			TextBlocks: []string{`{"intent": "world_domination", "confidence": 0.99}`},
		}})
		got := c.Classify(context.Background(), "hmm")
		assert.Equal(t, Conversational, got.Intent)
	})

	t.Run("nil backend degrades to conversational", func(t *testing.T) {
		c := NewClassifier(nil)
		got := c.Classify(context.Background(), "something ambiguous")
		assert.Equal(t, Conversational, got.Intent)
	})
}

func TestConstrain(t *testing.T) {
	t.Run("visual without images drops image assembly", func(t *testing.T) {
		p := Constrain(ProfileFor(Visual), false, true)
		assert.False(t, p.IncludeImages)
	})

	t.Run("visual with images keeps image assembly", func(t *testing.T) {
		p := Constrain(ProfileFor(Visual), true, true)
		assert.True(t, p.IncludeImages)
	})

	t.Run("action without task drops task tools", func(t *testing.T) {
		p := Constrain(ProfileFor(Action), false, false)
		assert.Empty(t, p.Tools)
	})

	t.Run("email tools survive missing task", func(t *testing.T) {
		p := Constrain(ProfileFor(Email), false, false)
		assert.Equal(t, []string{"update_email_draft", "create_email_draft"}, p.Tools)
	})
}

func TestProfileForUnknownIsConversational(t *testing.T) {
	p := ProfileFor(Name("nonsense"))
	assert.Equal(t, ProfileFor(Conversational), p)
}
