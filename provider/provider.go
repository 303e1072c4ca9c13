package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fra-atlas/backend/models"
	gemini_provider "github.com/fra-atlas/backend/provider/gemini"
	openai_provider "github.com/fra-atlas/backend/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
	Gemini Client = "gemini"
)

// Provider is the interface that all LLM implementations must satisfy.
// Both calls are best-effort: callers fall back to regex extraction when
// a provider errors.
type Provider interface {
	// StructureDocument turns raw OCR text into a label→value map using
	// the document field labels. Unknown fields come back empty.
	StructureDocument(ctx context.Context, ocrText string) (map[string]string, error)
	// ExtractIntent pulls a scheme name and location out of a DSS question.
	ExtractIntent(ctx context.Context, query string) (models.ParsedIntent, error)
	Name() string
}

// Config carries the settings a concrete provider needs.
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// completer is the one call a concrete backend has to support.
type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// adapter turns a raw completion backend into a Provider by owning the
// prompts and the reply parsing.
type adapter struct {
	backend completer
}

func (a *adapter) Name() string { return a.backend.Name() }

func (a *adapter) StructureDocument(ctx context.Context, ocrText string) (map[string]string, error) {
	reply, err := a.backend.Complete(ctx, SchemaPrompt(ocrText))
	if err != nil {
		return nil, fmt.Errorf("structure document: %w", err)
	}
	return ParseFieldMap(reply)
}

func (a *adapter) ExtractIntent(ctx context.Context, query string) (models.ParsedIntent, error) {
	reply, err := a.backend.Complete(ctx, IntentPrompt(query))
	if err != nil {
		return models.ParsedIntent{}, fmt.Errorf("extract intent: %w", err)
	}
	return ParseIntent(reply)
}

// NewProvider creates an LLM client. An empty client name disables the LLM
// stage entirely: the nil provider means regex-only extraction downstream.
func NewProvider(client Client, cfg Config) (Provider, error) {
	switch client {
	case OpenAI:
		backend, err := openai_provider.New(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return &adapter{backend: backend}, nil
	case Gemini:
		backend, err := gemini_provider.New(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return &adapter{backend: backend}, nil
	case "":
		return nil, nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}

// FieldLabels are the document fields extracted from OCR text, in the
// order they appear on a patta document.
var FieldLabels = []string{
	"Patta Holder Name",
	"Father/Husband Name",
	"Age",
	"Gender",
	"Address",
	"Village Name",
	"Block",
	"District",
	"State",
	"Total Area Claimed",
	"Coordinates",
	"Land Use",
	"Claim ID",
	"Date of Application",
	"Water Bodies",
	"Forest Cover",
	"Homestead",
}

// SchemaPrompt builds the structuring prompt for a block of OCR text.
func SchemaPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from this land claim document text. ")
	b.WriteString("Respond ONLY with a single JSON object whose keys are exactly:\n")
	for _, label := range FieldLabels {
		b.WriteString("  \"")
		b.WriteString(label)
		b.WriteString("\"\n")
	}
	b.WriteString("Use an empty string for any field not present. Do not add commentary.\n\nDocument text:\n")
	b.WriteString(ocrText)
	return b.String()
}

// IntentPrompt builds the DSS intent-extraction prompt.
func IntentPrompt(query string) string {
	return fmt.Sprintf(`Extract the government scheme name and location from this question about land claim eligibility.
Respond ONLY with a JSON object: {"scheme": "...", "village": "...", "district": "...", "state": "..."}.
Use empty strings for anything not mentioned.

Question: %s`, query)
}

// CleanJSON trims an LLM reply down to the outermost JSON object and fixes
// the usual damage: smart quotes and trailing commas. It does not attempt
// to repair structurally broken output.
func CleanJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	s = s[start : end+1]
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	s = replacer.Replace(s)
	s = strings.ReplaceAll(s, ",}", "}")
	s = strings.ReplaceAll(s, ",]", "]")
	return s
}

// ParseFieldMap decodes a structuring reply into a label→value map.
func ParseFieldMap(reply string) (map[string]string, error) {
	cleaned := CleanJSON(reply)
	if cleaned == "" {
		return nil, errors.New("no JSON object in reply")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("decode field map: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}
	return out, nil
}

// ParseIntent decodes an intent-extraction reply.
func ParseIntent(reply string) (models.ParsedIntent, error) {
	cleaned := CleanJSON(reply)
	if cleaned == "" {
		return models.ParsedIntent{}, errors.New("no JSON object in reply")
	}
	var raw struct {
		Scheme   string `json:"scheme"`
		Village  string `json:"village"`
		District string `json:"district"`
		State    string `json:"state"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return models.ParsedIntent{}, fmt.Errorf("decode intent: %w", err)
	}
	return models.ParsedIntent{
		Scheme: strings.TrimSpace(raw.Scheme),
		Location: models.LocationFilter{
			Village:  strings.TrimSpace(raw.Village),
			District: strings.TrimSpace(raw.District),
			State:    strings.TrimSpace(raw.State),
		},
	}, nil
}
