package utils

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// ContentGenerator produces warmup email subjects and bodies, using OpenAI
// when configured and canned templates otherwise. Generate never fails: any
// API problem falls back to a template.
type ContentGenerator struct {
	client *openai.Client
	rand   interface{ Intn(n int) int }
	log    *logrus.Logger
}

// NewContentGenerator builds a generator. An empty apiKey disables the API
// and every call uses fallback templates.
func NewContentGenerator(apiKey string, rand interface{ Intn(n int) int }, log *logrus.Logger) *ContentGenerator {
	g := &ContentGenerator{rand: rand, log: log}
	if apiKey != "" {
		g.client = openai.NewClient(apiKey)
	}
	return g
}

type emailTemplate struct {
	subject string
	body    string
}

var fallbackTemplates = map[string][]emailTemplate{
	"transactional": {
		{"Order Confirmation", "Your order has been confirmed and will be shipped soon."},
		{"Password Reset", "We received a request to reset your password."},
		{"Account Verification", "Please verify your email address to complete registration."},
	},
	"newsletter": {
		{"Monthly Update", "Here's what's new this month with our service."},
		{"Tips and Tricks", "Discover new ways to get the most out of our platform."},
		{"Community Highlights", "See what our community has been up to this week."},
	},
	"personal": {
		{"Quick Question", "I hope this email finds you well. I wanted to reach out about a thought I had."},
		{"Following Up", "Just wanted to follow up on our previous conversation."},
		{"Thank You", "I wanted to take a moment to thank you for your help."},
	},
}

var contentPrompts = map[string]string{
	"transactional": `Generate a professional transactional email.
Examples: order confirmation, password reset, account verification, shipping notification.
Keep it concise (2-3 sentences) and professional.
Return ONLY in this format:
SUBJECT: [subject line]
BODY: [email body]`,
	"newsletter": `Generate a friendly newsletter-style email.
Topics: product updates, tips, community news, feature announcements.
Keep it engaging but brief (3-4 sentences).
Return ONLY in this format:
SUBJECT: [subject line]
BODY: [email body]`,
	"personal": `Generate a casual, personal email.
Topics: quick questions, follow-ups, thank you notes, friendly check-ins.
Keep it warm and conversational (2-3 sentences).
Return ONLY in this format:
SUBJECT: [subject line]
BODY: [email body]`,
}

// Generate returns a subject and body for the given content type. "mixed"
// resolves to a random concrete type first.
func (g *ContentGenerator) Generate(ctx context.Context, contentType string) (string, string) {
	if contentType == "mixed" || fallbackTemplates[contentType] == nil {
		concrete := []string{"transactional", "newsletter", "personal"}
		contentType = concrete[g.rand.Intn(len(concrete))]
	}

	if g.client != nil {
		subject, body, err := g.generateWithOpenAI(ctx, contentType)
		if err == nil {
			return subject, body
		}
		g.log.WithError(err).Warn("OpenAI generation failed, using fallback template")
	}

	return g.fallback(contentType)
}

func (g *ContentGenerator) generateWithOpenAI(ctx context.Context, contentType string) (string, string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT3Dot5Turbo,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that generates realistic email content.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: contentPrompts[contentType],
			},
		},
		MaxTokens:   200,
		Temperature: 0.9,
	})
	if err != nil {
		return "", "", err
	}
	if len(resp.Choices) == 0 {
		return "", "", fmt.Errorf("empty completion response")
	}

	subject, body := parseGenerated(resp.Choices[0].Message.Content)
	if subject == "" || body == "" {
		sub, bod := g.fallback(contentType)
		return sub, bod, nil
	}
	return subject, body, nil
}

func (g *ContentGenerator) fallback(contentType string) (string, string) {
	templates := fallbackTemplates[contentType]
	t := templates[g.rand.Intn(len(templates))]
	return t.subject, t.body
}

// parseGenerated extracts the SUBJECT:/BODY: lines from a model response
func parseGenerated(content string) (string, string) {
	var subject string
	var bodyLines []string
	inBody := false

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "SUBJECT:"):
			subject = strings.TrimSpace(strings.TrimPrefix(trimmed, "SUBJECT:"))
			inBody = false
		case strings.HasPrefix(trimmed, "BODY:"):
			bodyLines = append(bodyLines, strings.TrimSpace(strings.TrimPrefix(trimmed, "BODY:")))
			inBody = true
		case inBody && trimmed != "":
			bodyLines = append(bodyLines, trimmed)
		}
	}

	return subject, strings.Join(bodyLines, "\n")
}
