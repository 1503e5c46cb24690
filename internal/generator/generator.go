// Package generator turns a product description into a Bait post and a Hook
// comment using a generative model.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"affiliate_shoppe/internal/llm"
)

// ErrNotConfigured is returned when no model credential is available.
var ErrNotConfigured = errors.New("generator: model credential not configured")

// FallbackWarning is set on results built from an unparseable model reply.
const FallbackWarning = "AI response was not valid JSON"

// emptyReplyBait stands in for a model reply with no text at all.
const emptyReplyBait = "(AI không trả về nội dung)"

const (
	maxInspirationRunes = 500
	maxFallbackRunes    = 500
	linkPlaceholder     = "[LINK]"
)

// Completer is the model call the generator needs.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request describes the product to promote.
type Request struct {
	ProductName   string `json:"product_name"`
	ProductLink   string `json:"product_link"`
	PagePersona   string `json:"page_persona"`
	SourceContent string `json:"source_content"`
	// Language overrides the generator's content language when set.
	Language language.Tag `json:"-"`
}

// Result is one Bait/Hook pair.
type Result struct {
	Bait           string `json:"bait"`
	Hook           string `json:"hook"`
	SuggestedImage string `json:"suggested_image"`
	Warning        string `json:"warning,omitempty"`
}

// Options tunes a Generator.
type Options struct {
	DefaultPersona string
	Language       language.Tag
	Logger         *slog.Logger
}

// Generator builds prompts and interprets model replies.
type Generator struct {
	model   Completer
	persona string
	lang    language.Tag
	log     *slog.Logger
}

// New creates a Generator.
func New(model Completer, opts Options) *Generator {
	g := &Generator{model: model, persona: opts.DefaultPersona, lang: opts.Language, log: opts.Logger}
	if g.lang == language.Und {
		g.lang = language.Vietnamese
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

// Language returns the default content language.
func (g *Generator) Language() language.Tag {
	return g.lang
}

// Configured reports whether generation can be attempted.
func (g *Generator) Configured() bool {
	return g.model != nil && g.model.Configured()
}

// Generate asks the model for a Bait/Hook pair. A reply that is not valid JSON
// becomes a Bait-only result with Warning set.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if !g.Configured() {
		return nil, ErrNotConfigured
	}
	prompt, err := g.Prompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := g.model.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrMissingKey) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return g.parse(raw), nil
}

func (g *Generator) parse(raw string) *Result {
	cleaned := llm.StripCodeFence(raw)
	var reply struct {
		Bait           string `json:"bait"`
		Hook           string `json:"hook"`
		SuggestedImage string `json:"suggested_image"`
	}
	if err := json.Unmarshal([]byte(cleaned), &reply); err != nil {
		g.log.Warn("parse model reply", "error", err)
		bait := strings.TrimSpace(cleaned)
		if bait == "" {
			bait = strings.TrimSpace(raw)
		}
		if bait == "" {
			bait = emptyReplyBait
		}
		return &Result{Bait: truncateRunes(bait, maxFallbackRunes), Warning: FallbackWarning}
	}
	return &Result{Bait: reply.Bait, Hook: reply.Hook, SuggestedImage: reply.SuggestedImage}
}

type promptData struct {
	Persona     string
	ProductName string
	ProductLink string
	Inspiration string
	LinkEnding  string
	Language    string
}

// Prompt renders the model prompt for req.
func (g *Generator) Prompt(req Request) (string, error) {
	data := promptData{
		Persona:     firstNonEmpty(req.PagePersona, g.persona),
		ProductName: strings.TrimSpace(req.ProductName),
		ProductLink: strings.TrimSpace(req.ProductLink),
		Inspiration: truncateRunes(strings.TrimSpace(req.SourceContent), maxInspirationRunes),
		LinkEnding:  firstNonEmpty(strings.TrimSpace(req.ProductLink), linkPlaceholder),
		Language:    languageName(g.lang),
	}
	if req.Language != language.Und {
		data.Language = languageName(req.Language)
	}
	var b strings.Builder
	if err := promptTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}

// languageName returns the tag's name in its own language, e.g. "Tiếng Việt".
func languageName(tag language.Tag) string {
	name := display.Self.Name(tag)
	if name == "" {
		return tag.String()
	}
	r, size := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r)) + name[size:]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
