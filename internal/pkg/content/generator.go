package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/cache"
	lapi "github.com/faridopz/repurpose-smart/internal/pkg/llm/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
)

const (
	maxTranscriptChars = 10000
	truncationMark     = "\n\n...[transcript truncated for length]"
	defaultTone        = "professional"
)

var platformInstructions = map[string]string{
	api.PlatformLinkedIn:  "LinkedIn: 150-250 word professional post with line breaks. Strong hook, actionable insights.",
	api.PlatformTwitter:   "Twitter: 3-tweet thread. Each ≤280 chars. Punchy hooks, standalone tweets that flow together.",
	api.PlatformInstagram: "Instagram: 1-2 sentence caption with 5-8 hashtags. Visual storytelling with strategic emojis.",
	api.PlatformYoutube:   "YouTube: SEO-optimized description with timestamp suggestions and clear CTA.",
	api.PlatformBlog:      "Blog: 500-800 word summary with title, 3 subheadings, body, and 3 key takeaways.",
	api.PlatformFacebook:  "Facebook: 100-200 word conversational post ending with a question to drive comments.",
	api.PlatformSummary:   "Summary: 3-4 sentence executive summary of the main points.",
}

var platformDescriptions = map[string]string{
	api.PlatformLinkedIn:  "LinkedIn post (150-250 words, professional tone)",
	api.PlatformTwitter:   "3-tweet thread, each ≤280 chars",
	api.PlatformInstagram: "Short caption with hashtags",
	api.PlatformYoutube:   "SEO-optimized video description",
	api.PlatformBlog:      "Blog post summary (500-800 words)",
	api.PlatformFacebook:  "Conversational Facebook post",
	api.PlatformSummary:   "3-4 sentence executive summary",
}

// Input is a single generation request
type Input struct {
	Transcript string
	Platforms  []string
	Tone       string
	Persona    string
}

// Output carries generated texts and call detail for artifact rows
type Output struct {
	Generated    map[string]string
	Cached       bool
	GenerationMs int64
	Tokens       int
	Prompt       string
	Model        string
}

// Generator turns transcript text into platform content
type Generator struct {
	completer lapi.Completer
	cache     *cache.Store
}

// NewGenerator creates content generator
func NewGenerator(completer lapi.Completer) (*Generator, error) {
	if completer == nil {
		return nil, fmt.Errorf("no completer")
	}
	return &Generator{completer: completer, cache: cache.NewStore()}, nil
}

// Generate produces content for every requested platform in one call.
// Identical requests within the cache TTL are answered from cache and
// flagged as such.
func (g *Generator) Generate(ctx context.Context, inp *Input) (*Output, error) {
	if inp.Transcript == "" {
		return nil, utils.NewErrValidation("no transcript")
	}
	if len(inp.Platforms) == 0 {
		return nil, utils.NewErrValidation("no platforms")
	}
	tone := inp.Tone
	if tone == "" {
		tone = defaultTone
	}
	key := cache.Key(inp.Transcript, inp.Platforms, tone)
	if v, ok := g.cache.Get(key); ok {
		goapp.Log.Info().Msg("returning cached content")
		return &Output{Generated: v, Cached: true}, nil
	}

	truncated := inp.Transcript
	if len(truncated) > maxTranscriptChars {
		truncated = truncated[:maxTranscriptChars] + truncationMark
	}
	prompt := userPrompt(truncated, inp.Platforms, tone)
	tool, err := contentTool(inp.Platforms)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	r, err := g.completer.Complete(ctx, &lapi.Prompt{System: systemPrompt(inp.Persona), User: prompt, Tool: tool})
	if err != nil {
		return nil, err
	}
	if len(r.ToolArgs) == 0 {
		return nil, fmt.Errorf("no content in response")
	}
	var generated map[string]string
	if err := json.Unmarshal(r.ToolArgs, &generated); err != nil {
		return nil, fmt.Errorf("can't unmarshal generated content: %w", err)
	}
	for _, p := range inp.Platforms {
		if generated[p] == "" {
			return nil, fmt.Errorf("no content generated for '%s'", p)
		}
	}
	g.cache.Put(key, generated)
	return &Output{Generated: generated, GenerationMs: time.Since(start).Milliseconds(),
		Tokens: (len(truncated) + 3) / 4, Prompt: prompt, Model: r.Model}, nil
}

func systemPrompt(persona string) string {
	res := "You are an expert content strategist. Create platform-optimized content that is concise, distinct, and actionable."
	if persona != "" {
		res += fmt.Sprintf(" Target audience: %s. Adapt your language and messaging accordingly.", persona)
	}
	return res
}

func userPrompt(transcript string, platforms []string, tone string) string {
	instr := ""
	for _, p := range platforms {
		if v, ok := platformInstructions[p]; ok {
			instr += v + "\n"
		}
	}
	return fmt.Sprintf(`Based on this transcript, create content for each requested platform.

TRANSCRIPT:
%s

PLATFORMS TO CREATE:
%s
TONE: %s

Create concise, distinct content for each platform. Be specific and actionable.`, transcript, instr, tone)
}

func contentTool(platforms []string) (*lapi.Tool, error) {
	props := map[string]interface{}{}
	for p, d := range platformDescriptions {
		props[p] = map[string]string{"type": "string", "description": d}
	}
	params, err := json.Marshal(map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             platforms,
		"additionalProperties": false,
	})
	if err != nil {
		return nil, fmt.Errorf("can't marshal tool schema: %w", err)
	}
	return &lapi.Tool{Name: "create_platform_content",
		Description: "Generate content optimized for specific platforms", Parameters: params}, nil
}
