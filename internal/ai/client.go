// Package ai drafts new catalog questions with an OpenAI compatible chat completion API. Drafts are meant for
// review by whoever curates the catalog and are never stored directly.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myrjola/guesswho/internal/catalog"
	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
	"github.com/sashabaranov/go-openai"
)

var ErrNoSuggestions = errors.Wrap(errors.ErrUpstream, "model returned no usable questions")

type Client struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a client for the API at baseURL. An empty baseURL uses the OpenAI API and an empty model the
// default model.
func NewClient(apiKey, baseURL, model string, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo1106
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.With("source", "ai"),
	}
}

const MaxTokens = 1024

const systemPrompt = `You write yes/no questions for a Guess Who game played by members of a coworking space.
Each question checks one attribute of a member profile. Reply with a JSON object {"questions": [...]} where every
question has the fields "id" (kebab-case, prefixed with the category id), "prompt" (starts with "Does your person"
or "Is your person"), "attributePath" and "attributeValue".`

type suggestions struct {
	Questions []struct {
		ID             string  `json:"id"`
		Prompt         string  `json:"prompt"`
		AttributePath  string  `json:"attributePath"`
		AttributeValue *string `json:"attributeValue"`
	} `json:"questions"`
}

func userPrompt(category models.QuestionCategory, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category id: %s\nCategory name: %s\n", category.ID, category.Name)
	fmt.Fprintf(&b, "Allowed attributePath values: %s\n", strings.Join(models.AttributeNames, ", "))
	b.WriteString("Existing questions, don't repeat them:\n")
	for _, q := range category.Questions {
		fmt.Fprintf(&b, "- %s\n", q.Prompt)
	}
	fmt.Fprintf(&b, "Write %d new questions.", count)
	return b.String()
}

// SuggestQuestions asks the model for count new questions for category. Suggestions that don't pass catalog
// validation or clash with existing ids are dropped. Positions continue after the existing questions.
func (c *Client) SuggestQuestions(
	ctx context.Context,
	category models.QuestionCategory,
	count int,
) ([]models.Question, error) {
	completion, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{ //nolint:exhaustruct // readability
		Model:     c.model,
		MaxTokens: MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},              //nolint:exhaustruct // readability
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(category, count)}, //nolint:exhaustruct // readability
		},
	})
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", errors.ErrUpstream, err), "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.Wrap(ErrNoSuggestions, "no choices")
	}

	var parsed suggestions
	if err = json.Unmarshal([]byte(completion.Choices[0].Message.Content), &parsed); err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", ErrNoSuggestions, err), "decode suggestions")
	}

	taken := map[string]bool{}
	for _, q := range category.Questions {
		taken[q.ID] = true
	}
	var questions []models.Question
	for _, s := range parsed.Questions {
		q := models.Question{
			ID:             strings.TrimSpace(s.ID),
			CategoryID:     category.ID,
			Prompt:         strings.TrimSpace(s.Prompt),
			AttributePath:  strings.TrimSpace(s.AttributePath),
			AttributeValue: s.AttributeValue,
			Position:       len(category.Questions) + len(questions),
		}
		if err = catalog.Validate(q); err != nil || taken[q.ID] {
			c.logger.LogAttrs(ctx, slog.LevelDebug, "dropped suggestion",
				slog.String("question_id", q.ID), slog.String("prompt", q.Prompt))
			continue
		}
		taken[q.ID] = true
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errors.Wrap(ErrNoSuggestions, "suggest questions", slog.String("category_id", category.ID))
	}
	return questions, nil
}
