// Package generate produces story scenes and chapters with the Gemini API.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/dgnsrekt/storycast/playback"
)

// Config parameterizes the generator.
type Config struct {
	APIKey  string
	Model   string // defaults to gemini-2.5-flash
	Premise string // what the story is about
	Style   string // visual/narrative style hint
}

// Generator implements playback.SceneGenerator and
// playback.ContinuationProvider on top of a Gemini model. It keeps a rolling
// summary of what has been narrated so each request continues the story
// instead of restarting it.
type Generator struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	premise string
	style   string
	logger  *log.Logger

	history []string // narration of scenes generated so far
	chapter int
}

// New creates a generator. Callers own Close.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("could not create genai client: %w", err)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Generator{
		client:  client,
		model:   client.GenerativeModel(modelName),
		premise: cfg.Premise,
		style:   cfg.Style,
		logger:  log.Default().WithPrefix("generate"),
		chapter: 1,
	}, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	return g.client.Close()
}

// scenePayload is the JSON shape the model is asked to produce for a single
// scene.
type scenePayload struct {
	Narration       string  `json:"narration"`
	ImagePrompt     string  `json:"image_prompt"`
	NegativePrompt  string  `json:"negative_prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
	StoryComplete   bool    `json:"story_complete"`
}

// chapterPayload is the JSON shape for a chapter continuation.
type chapterPayload struct {
	Title  string         `json:"title"`
	Scenes []scenePayload `json:"scenes"`
}

// GenerateNext produces the next scene of the running story. Returns
// (nil, nil) when the model declares the story complete.
func (g *Generator) GenerateNext(ctx context.Context) (*playback.Scene, error) {
	prompt := g.nextScenePrompt()
	res, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrGenerationFailed, err)
	}
	text, err := extractText(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrGenerationFailed, err)
	}
	payload, err := parseScenePayload(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrGenerationFailed, err)
	}
	if payload.StoryComplete {
		g.logger.Debug("model declared story complete", "scenes", len(g.history))
		return nil, nil
	}

	g.history = append(g.history, payload.Narration)
	scene := payloadToScene(*payload)
	return &scene, nil
}

// ContinueChapter asks the model for a fresh chapter continuing the saga.
// Returns (nil, nil) when the model has nothing further.
func (g *Generator) ContinueChapter(ctx context.Context) (*playback.Continuation, error) {
	prompt := g.nextChapterPrompt()
	res, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrNoContinuation, err)
	}
	text, err := extractText(res)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrNoContinuation, err)
	}
	payload, err := parseChapterPayload(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", playback.ErrNoContinuation, err)
	}
	if len(payload.Scenes) == 0 {
		return nil, nil
	}

	g.chapter++
	g.history = g.history[:0]
	scenes := make([]playback.Scene, 0, len(payload.Scenes))
	for _, p := range payload.Scenes {
		g.history = append(g.history, p.Narration)
		scenes = append(scenes, payloadToScene(p))
	}
	return &playback.Continuation{
		SessionID:     uuid.NewString(),
		Title:         payload.Title,
		ChapterNumber: g.chapter,
		Scenes:        scenes,
	}, nil
}

func (g *Generator) nextScenePrompt() string {
	var b strings.Builder
	b.WriteString("You are narrating an illustrated story, one scene at a time.\n")
	fmt.Fprintf(&b, "Premise: %s\n", g.premise)
	if g.style != "" {
		fmt.Fprintf(&b, "Style: %s\n", g.style)
	}
	if len(g.history) > 0 {
		b.WriteString("Scenes so far:\n")
		for i, n := range g.history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n)
		}
	}
	b.WriteString("\nWrite the next scene as a single JSON object with keys " +
		`"narration" (2-3 sentences), "image_prompt", "negative_prompt", ` +
		`"duration_seconds" (6-12), and "story_complete" (boolean). ` +
		"Set story_complete to true only when the story has reached a natural end, " +
		"and in that case the other fields may be empty. Respond with JSON only.")
	return b.String()
}

func (g *Generator) nextChapterPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The story so far has finished chapter %d.\n", g.chapter)
	fmt.Fprintf(&b, "Premise: %s\n", g.premise)
	if len(g.history) > 0 {
		b.WriteString("Final scenes of the last chapter:\n")
		for i, n := range g.history {
			fmt.Fprintf(&b, "%d. %s\n", i+1, n)
		}
	}
	b.WriteString("\nWrite the opening of the next chapter as a single JSON object " +
		`with keys "title" and "scenes", where "scenes" is an array of 3-5 objects ` +
		`with keys "narration", "image_prompt", "negative_prompt", and "duration_seconds". ` +
		"Respond with an empty scenes array if the saga is truly over. Respond with JSON only.")
	return b.String()
}

func payloadToScene(p scenePayload) playback.Scene {
	d := time.Duration(p.DurationSeconds * float64(time.Second))
	return playback.Scene{
		NarrationText:  p.Narration,
		ImagePrompt:    p.ImagePrompt,
		NegativePrompt: p.NegativePrompt,
		Duration:       d,
	}
}

func parseScenePayload(text string) (*scenePayload, error) {
	var p scenePayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err != nil {
		return nil, fmt.Errorf("model returned malformed scene JSON: %w", err)
	}
	return &p, nil
}

func parseChapterPayload(text string) (*chapterPayload, error) {
	var p chapterPayload
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &p); err != nil {
		return nil, fmt.Errorf("model returned malformed chapter JSON: %w", err)
	}
	return &p, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// often add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func extractText(res *genai.GenerateContentResponse) (string, error) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no content")
	}
	if textPart, ok := res.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(textPart), nil
	}
	return "", fmt.Errorf("model response did not contain text")
}
