package reply

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Image is one attachment passed to the vision model.
type Image struct {
	MIME string
	Data []byte
}

// Input is everything the adapter needs to produce one reply.
type Input struct {
	Text    string
	Images  []Image
	Persona string
}

// TextClient is the generation backend. The interface keeps the external
// service mockable; GeminiClient is the real implementation.
type TextClient interface {
	Generate(ctx context.Context, system, prompt string, images []Image) (string, error)
}

// GeminiClient calls the text/vision generation service.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, system, prompt string, images []Image) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range images {
		mime := img.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, mime))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty generation response")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Generator turns a target post plus a persona into a natural-sounding
// reply. It never returns an error: any backend failure or rejected output
// degrades to a fallback string.
type Generator struct {
	client TextClient
	rng    *rand.Rand
}

func NewGenerator(client TextClient) *Generator {
	return &Generator{
		client: client,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewGeneratorWithSeed is for deterministic tests.
func NewGeneratorWithSeed(client TextClient, seed int64) *Generator {
	return &Generator{client: client, rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Generate(ctx context.Context, in Input) string {
	system := buildSystemInstruction(in.Persona)
	prompt := buildPrompt(in)

	raw, err := g.client.Generate(ctx, system, prompt, in.Images)
	if err != nil {
		log.Printf("[reply] generation failed, using fallback: %v", err)
		return g.randomFallback()
	}

	out := Clean(raw)
	if reject, reason := ShouldReject(out); reject {
		log.Printf("[reply] rejected generated text (%s), using fallback", reason)
		return g.randomFallback()
	}

	// A very short reply with no lexical overlap against a text-only post
	// is almost certainly a non-sequitur.
	if len(in.Images) == 0 && len(out) < 25 && lexicalOverlap(in.Text, out) == 0 {
		log.Printf("[reply] zero-overlap short reply, using contextual fallback")
		return g.contextFallback(in.Text)
	}

	return out
}

func buildSystemInstruction(persona string) string {
	var sb strings.Builder
	sb.WriteString("You are replying to a social media post as a real person with this background:\n")
	sb.WriteString(persona)
	sb.WriteString("\n\nHard rules:\n")
	sb.WriteString("1. Respond in the voice and from the background described above. Never respond as a generic assistant, never mention being an AI.\n")
	sb.WriteString("2. If the post contains hate or harassment against a protected group, your reply must clearly oppose it, never endorse or amplify it.\n")
	sb.WriteString("Write one short, casual reply. No hashtags, no emoji, no quotation marks around the reply.")
	return sb.String()
}

func buildPrompt(in Input) string {
	if strings.TrimSpace(in.Text) == "" && len(in.Images) > 0 {
		return "Reply naturally to the attached image post."
	}
	return "Reply naturally to this post:\n\n" + in.Text
}

// lexicalOverlap counts distinct words of four or more characters shared
// by source and reply, case-insensitive.
func lexicalOverlap(source, reply string) int {
	src := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(source)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) >= 4 {
			src[w] = true
		}
	}
	shared := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(reply)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) >= 4 && src[w] {
			shared[w] = true
		}
	}
	return len(shared)
}
