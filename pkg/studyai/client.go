package studyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// File is an uploaded document sent inline to the provider.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Flashcard is a question/answer pair with a client-assigned id.
type Flashcard struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuizQuestion is a four-option multiple choice question.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// QuizOptions is the number of options every quiz question carries.
const QuizOptions = 4

// QuizResult is a completed quiz attempt.
type QuizResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// ChatRole is the author of a chat turn.
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatTurn is one message of chat history.
type ChatTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// StudyContext is what the chat assistant knows about the session.
type StudyContext struct {
	Notes       string
	Flashcards  []Flashcard
	QuizResults []QuizResult
}

// Client exposes the generation functions.
type Client struct {
	Resolver *Resolver
	Model    string
	Log      *slog.Logger
}

func NewClient(r *Resolver, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{Resolver: r, Model: DefaultModel, Log: log}
}

func (c *Client) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	t, err := c.Resolver.Transport()
	if err != nil {
		c.Log.Error("no transport available", "op", op, "err", err)
		return "", err
	}

	text, err := t.Generate(ctx, Request{Model: c.Model, Contents: contents, Config: cfg})
	if err != nil {
		c.Log.Error("generation failed", "op", op, "proxy", c.Resolver.UsesProxy(), "err", err)
		return "", err
	}
	return text, nil
}

// GenerateNotes returns Markdown study notes for files.
func (c *Client) GenerateNotes(ctx context.Context, files []File) (string, error) {
	text, err := c.generate(ctx, "notes", []*genai.Content{userContent(notesPrompt, files)}, nil)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateFlashcards returns new flashcards numbered from currentCount+1.
func (c *Client) GenerateFlashcards(ctx context.Context, files []File, notes string, currentCount int) ([]Flashcard, error) {
	prompt := flashcardsPrompt
	if n := strings.TrimSpace(notes); n != "" {
		prompt += "\n\nExisting notes:\n" + truncateRunes(n, chatNotesBudget)
	}

	text, err := c.generate(ctx, "flashcards", []*genai.Content{userContent(prompt, files)}, jsonConfig(flashcardsSchema))
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := decodeArrayField(text, "flashcards", &raw); err != nil {
		return nil, err
	}

	cards := make([]Flashcard, len(raw))
	for i, r := range raw {
		cards[i] = Flashcard{ID: currentCount + i + 1, Question: r.Question, Answer: r.Answer}
	}
	return cards, nil
}

// GenerateQuiz returns quiz questions at the given difficulty.
func (c *Client) GenerateQuiz(ctx context.Context, files []File, notes string, difficulty Difficulty) ([]QuizQuestion, error) {
	prompt := quizInstruction(difficulty)
	if n := strings.TrimSpace(notes); n != "" {
		prompt += "\n\nStudy notes:\n" + truncateRunes(n, chatNotesBudget)
	}

	text, err := c.generate(ctx, "quiz", []*genai.Content{userContent(prompt, files)}, jsonConfig(quizSchema))
	if err != nil {
		return nil, err
	}

	var questions []QuizQuestion
	if err := decodeArrayField(text, "questions", &questions); err != nil {
		return nil, err
	}
	for i, q := range questions {
		if len(q.Options) != QuizOptions || q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= QuizOptions {
			return nil, fmt.Errorf("%w: question %d malformed", ErrInvalidResponse, i+1)
		}
	}
	return questions, nil
}

// MotivationalMessage never fails: any problem yields MotivationFallback.
func (c *Client) MotivationalMessage(ctx context.Context, score, total int) string {
	prompt := fmt.Sprintf(motivationPrompt, score, total)
	text, err := c.generate(ctx, "motivation", []*genai.Content{userContent(prompt, nil)}, nil)
	if err != nil {
		return MotivationFallback
	}
	if text = strings.TrimSpace(text); text == "" {
		return MotivationFallback
	}
	return text
}

// Chat answers message given prior turns and the study context. Turns with
// any role other than user or model are dropped.
func (c *Client) Chat(ctx context.Context, message string, history []ChatTurn, sc StudyContext, attachment *File) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Role != RoleUser && turn.Role != RoleModel {
			continue
		}
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  string(turn.Role),
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}

	var files []File
	if attachment != nil {
		files = []File{*attachment}
	}
	contents = append(contents, userContent(message, files))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: buildChatSystem(sc)}}},
	}
	text, err := c.generate(ctx, "chat", contents, cfg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func userContent(text string, files []File) *genai.Content {
	parts := make([]*genai.Part, 0, len(files)+1)
	for _, f := range files {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: f.MIMEType, Data: f.Data}})
	}
	parts = append(parts, &genai.Part{Text: text})
	return &genai.Content{Role: string(RoleUser), Parts: parts}
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

// decodeArrayField parses text as a JSON object and decodes its field into
// out, which must be a pointer to a slice. The field must be an array.
func decodeArrayField(text, field string, out any) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFence(text)), &obj); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrInvalidResponse, err)
	}
	raw, ok := obj[field]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrInvalidResponse, field)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("%w: %q is not an array", ErrInvalidResponse, field)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// stripFence removes a surrounding ```json ... ``` block if the model added one.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

var flashcardsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"flashcards": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString},
					"answer":   {Type: genai.TypeString},
				},
				Required: []string{"question", "answer"},
			},
		},
	},
	Required: []string{"flashcards"},
}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question":           {Type: genai.TypeString},
					"options":            {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"correctAnswerIndex": {Type: genai.TypeInteger},
				},
				Required: []string{"question", "options", "correctAnswerIndex"},
			},
		},
	},
	Required: []string{"questions"},
}
