// Package chat drives the conversational loop: user message in, tool calls
// against the book catalog, rendered reply out.
package chat

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/m-hoshino/libretto/pkg/adapter"
	"github.com/m-hoshino/libretto/pkg/render"
	"github.com/m-hoshino/libretto/pkg/tool"
	"github.com/m-hoshino/libretto/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

// Tool call limit per user message
const maxToolIterations = 8

// Session holds one conversation. History accumulates across Send calls and
// is never trimmed; the process lifetime bounds it.
type Session struct {
	gemini   adapter.Gemini
	registry *tool.Registry
	views    render.ViewReader
	archive  adapter.Storage

	id       string
	contents []*genai.Content
}

// NewInput contains parameters for creating a chat session
type NewInput struct {
	Gemini   adapter.Gemini
	Registry *tool.Registry
	Views    render.ViewReader
	Archive  adapter.Storage // optional, enables transcript archiving
}

func New(input NewInput) *Session {
	return &Session{
		gemini:   input.Gemini,
		registry: input.Registry,
		views:    input.Views,
		archive:  input.Archive,
		id:       uuid.New().String(),
	}
}

// ID returns the conversation identifier used for archived transcripts
func (s *Session) ID() string {
	return s.id
}

func (s *Session) systemPrompt(ctx context.Context) string {
	prompt := systemPromptRaw
	if extra := s.registry.Prompts(ctx); extra != "" {
		prompt += "\n\n" + extra
	}
	return prompt
}

// Send runs one conversation turn: the model may call tools up to the
// iteration limit, then its final text is returned with every view marker
// expanded into an HTML table. Tool failures are fed back to the model as
// function responses rather than ending the turn.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	logger := logging.From(ctx)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(s.systemPrompt(ctx), ""),
		Tools:             s.registry.Specs(),
	}

	s.contents = append(s.contents, genai.NewContentFromText(message, genai.RoleUser))

	var reply strings.Builder
	for i := 0; i < maxToolIterations; i++ {
		resp, err := s.gemini.GenerateContent(ctx, s.contents, config)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content")
		}

		hasFunctionCall := false
		var functionResponses []*genai.Part
		reply.Reset()

		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			s.contents = append(s.contents, candidate.Content)

			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					reply.WriteString(part.Text)
				}

				if part.FunctionCall != nil {
					hasFunctionCall = true
					funcResp, execErr := s.registry.Execute(ctx, *part.FunctionCall)
					if execErr != nil {
						logger.Warn("tool execution failed",
							"tool", part.FunctionCall.Name, "error", execErr)
						funcResp = &genai.FunctionResponse{
							Name:     part.FunctionCall.Name,
							Response: map[string]any{"error": execErr.Error()},
						}
					}
					functionResponses = append(functionResponses, &genai.Part{FunctionResponse: funcResp})
				}
			}
		}

		if len(functionResponses) > 0 {
			s.contents = append(s.contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: functionResponses,
			})
		}

		if !hasFunctionCall {
			break
		}
	}

	return render.ReplaceTokens(ctx, s.views, reply.String()), nil
}

// Archive writes the raw conversation history as JSON to the configured
// storage. No-op when the session has no archive backend.
func (s *Session) Archive(ctx context.Context) error {
	if s.archive == nil || len(s.contents) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(s.contents, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal conversation history")
	}

	key := fmt.Sprintf("transcripts/%s.json", s.id)
	w, err := s.archive.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open transcript object", goerr.V("key", key))
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write transcript", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize transcript", goerr.V("key", key))
	}

	logging.From(ctx).Info("archived conversation transcript", "key", key)
	return nil
}
