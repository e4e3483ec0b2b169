package prompt

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/dualgen/api/internal/client"
	"github.com/dualgen/api/internal/model"
)

const systemPrompt = "You are a prompt engineer. Your output should be ONLY the final stable diffusion prompt string. No reasoning, no chatter."

// Fallback word lists, used when the LLM is unreachable.
var (
	fallbackSubjects = []string{"a majestic lion", "a futuristic cityscape", "a serene lake", "an astronaut", "a steampunk robot"}
	fallbackStyles   = []string{"oil painting", "digital art", "photorealistic", "watercolor", "anime style"}
	fallbackArtists  = []string{"Greg Rutkowski", "Alphonse Mucha", "H.R. Giger", "Vincent van Gogh", "Syd Mead"}
	fallbackLighting = []string{"cinematic lighting", "golden hour", "neon lights", "soft diffuse light"}
	fallbackDetails  = []string{"highly detailed", "4k resolution", "intricate textures", "sharp focus", "masterpiece"}
)

// Generator produces image prompts, preferring the LLM and falling back to
// ad-lib word-list generation on any failure. Safe for concurrent use.
type Generator struct {
	llm *client.LLMClient
}

// NewGenerator creates a prompt generator backed by the given LLM client.
// A nil client forces fallback generation.
func NewGenerator(llm *client.LLMClient) *Generator {
	return &Generator{llm: llm}
}

// Generate resolves one prompt. The steering concept biases the output;
// imageBase64, when non-empty, switches to a vision request describing or
// transforming the submitted image.
func (g *Generator) Generate(ctx context.Context, steeringConcept, imageBase64 string) model.PromptResult {
	start := time.Now()

	if g.llm == nil || !g.llm.IsConfigured() {
		return g.fallback(steeringConcept, start, "llm client not configured")
	}

	var content string
	var err error
	if imageBase64 != "" {
		dataURL := imageBase64
		if !strings.HasPrefix(dataURL, "data:") {
			dataURL = "data:image/png;base64," + imageBase64
		}
		log.Printf("[LLM] Requesting vision-based prompt from %s", g.llm.Model())
		content, err = g.llm.ChatCompletionVision(ctx, systemPrompt, visionUserMessage(steeringConcept), dataURL)
	} else {
		log.Printf("[LLM] Requesting prompt from %s", g.llm.Model())
		content, err = g.llm.ChatCompletion(ctx, systemPrompt, textUserMessage(steeringConcept))
	}
	if err != nil {
		log.Printf("[LLM] Generation failed, switching to fallback: %v", err)
		return g.fallback(steeringConcept, start, err.Error())
	}

	// Strip stray quoting the model may add despite instructions
	prompt := strings.Trim(strings.TrimSpace(content), `"'`)
	if prompt == "" {
		return g.fallback(steeringConcept, start, "empty completion")
	}

	return model.PromptResult{
		Prompt:  prompt,
		Source:  model.PromptSourceLLM,
		Model:   g.llm.Model(),
		Elapsed: time.Since(start).Seconds(),
	}
}

func (g *Generator) fallback(steeringConcept string, start time.Time, reason string) model.PromptResult {
	return model.PromptResult{
		Prompt:  adLibPrompt(steeringConcept),
		Source:  model.PromptSourceFallback,
		Elapsed: time.Since(start).Seconds(),
		Error:   reason,
	}
}

func textUserMessage(steeringConcept string) string {
	if steeringConcept != "" {
		return fmt.Sprintf("Create a detailed, high-quality image prompt based on the concept: '%s'. "+
			"Add artistic style, lighting, and details to make it a masterpiece.", steeringConcept)
	}
	return "Generate a random, highly creative, and visually stunning image prompt. " +
		"Choose a unique subject (fantasy, sci-fi, nature, etc.) and describe it vividly."
}

func visionUserMessage(steeringConcept string) string {
	if steeringConcept != "" {
		return fmt.Sprintf("Look at this image and create a detailed image generation prompt to transform it "+
			"based on this concept: '%s'. "+
			"Describe the key elements you see and how to enhance/transform them. "+
			"Return ONLY the prompt string.", steeringConcept)
	}
	return "Look at this image and create a detailed image generation prompt that describes it " +
		"with artistic enhancements. Add style, lighting, and creative details. " +
		"Return ONLY the prompt string."
}

// adLibPrompt assembles a prompt from the fallback word lists.
func adLibPrompt(steeringConcept string) string {
	subject := steeringConcept
	if subject == "" {
		subject = fallbackSubjects[rand.Intn(len(fallbackSubjects))]
	}

	style := fallbackStyles[rand.Intn(len(fallbackStyles))]
	artist := fallbackArtists[rand.Intn(len(fallbackArtists))]
	light := fallbackLighting[rand.Intn(len(fallbackLighting))]

	// Two distinct detail fragments
	perm := rand.Perm(len(fallbackDetails))
	details := fallbackDetails[perm[0]] + ", " + fallbackDetails[perm[1]]

	return fmt.Sprintf("%s, %s by %s, %s, %s", subject, style, artist, light, details)
}
