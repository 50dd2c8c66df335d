package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dataassist/internal/llm"
	"dataassist/internal/logging"
	"dataassist/internal/types"
)

// Classifier runs a fast keyword pass first and falls back to the
// secondary LLM backend for ambiguous messages. Classification never
// returns an error: any failure degrades to conversational.
type Classifier struct {
	fallback llm.Backend
}

// NewClassifier builds a classifier. The fallback backend may be nil,
// in which case ambiguous messages classify as conversational.
func NewClassifier(fallback llm.Backend) *Classifier {
	return &Classifier{fallback: fallback}
}

// ====== Keyword pass ======

// keywordRule maps trigger phrases to an intent with a fixed
// confidence. Rules are checked in order; the first hit wins. Action
// comes first so that "mark the screenshot task done" routes to action,
// not visual.
type keywordRule struct {
	intent     Name
	confidence float64
	phrases    []string
}

var keywordRules = []keywordRule{
	{Action, 0.95, []string{
		"mark it done", "mark it complete", "mark as done", "mark as complete",
		"mark complete", "mark done", "set the status", "set status",
		"change the status", "change status", "set the priority", "set priority",
		"change the priority", "change priority", "set the due date", "set due date",
		"change the due date", "move the due date", "push the due date",
		"reassign", "assign it to", "assign this to", "add a comment", "add a note",
		"rename the task", "rename this task", "set estimated hours",
	}},
	{Visual, 0.9, []string{
		"in the image", "in this image", "this image", "in the screenshot",
		"in this screenshot", "this screenshot", "in the photo", "in this photo",
		"this photo", "in the picture", "in this picture", "this picture",
		"in the attachment", "what does the image", "look at the image",
		"look at the screenshot", "look at the attached",
	}},
	{Research, 0.9, []string{
		"research", "look up", "find out about", "what do you know about",
		"give me background on", "summarize what you know",
	}},
	{Email, 0.9, []string{
		"draft a reply", "draft an email", "draft a response", "write an email",
		"write a reply", "reply to this email", "respond to this email",
		"fix the draft", "update the draft", "rewrite the draft", "my inbox",
	}},
	{Planning, 0.9, []string{
		"plan my week", "plan my day", "what should i work on",
		"what's on my plate", "whats on my plate", "prioritize my",
		"schedule for", "free time", "when can i fit",
	}},
}

// Classify determines the intent of one user message.
func (c *Classifier) Classify(ctx context.Context, message string) Classified {
	lower := strings.ToLower(message)

	for _, rule := range keywordRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				logging.Intent("keyword match: intent=%s phrase=%q", rule.intent, phrase)
				return Classified{
					Intent:     rule.intent,
					Confidence: rule.confidence,
					Reasoning:  fmt.Sprintf("matched phrase %q", phrase),
				}
			}
		}
	}

	return c.classifyLLM(ctx, message)
}

const classifierSystemPrompt = `You classify a user message from a personal productivity assistant into exactly one intent.

Intents:
- action: the user wants a task field changed (status, priority, due date, assignee, notes)
- visual: the user is asking about an attached image or screenshot
- conversational: general discussion about work, tasks, or anything else
- research: the user wants background information gathered or summarized
- email: the user is working with their inbox or composing a reply
- planning: the user wants schedule, workload, or prioritization reasoning

Return ONLY JSON: {"intent": "...", "confidence": 0.0-1.0, "reasoning": "one sentence"}`

// classifyLLM asks the fallback backend to pick an intent. Any failure
// along the way, including unparseable output, degrades to
// conversational at reduced confidence.
func (c *Classifier) classifyLLM(ctx context.Context, message string) Classified {
	fallback := Classified{
		Intent:     Conversational,
		Confidence: 0.55,
		Reasoning:  "no keyword match, classifier unavailable",
	}
	if c.fallback == nil {
		return fallback
	}

	resp, err := c.fallback.Call(ctx, llm.Request{
		System:    classifierSystemPrompt,
		Messages:  []types.Message{types.TextMessage(types.RoleUser, message)},
		MaxTokens: 256,
	})
	if err != nil {
		logging.Get(logging.CategoryIntent).Warn("LLM classification failed: %v", err)
		return fallback
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	raw := stripFences(resp.Text())
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logging.IntentDebug("unparseable classifier output: %q", raw)
		return fallback
	}

	name := Name(parsed.Intent)
	if _, ok := profiles[name]; !ok {
		logging.IntentDebug("classifier returned unknown intent %q", parsed.Intent)
		return fallback
	}

	logging.Intent("LLM classification: intent=%s confidence=%.2f", name, parsed.Confidence)
	return Classified{Intent: name, Confidence: parsed.Confidence, Reasoning: parsed.Reasoning}
}

// stripFences tolerates markdown-fenced JSON from models that ignore
// the JSON-only instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
