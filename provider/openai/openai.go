package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/telemetry"
)

const defaultBaseURL = "https://api.together.xyz/v1"

// client implements the provider interface against any endpoint speaking
// the OpenAI chat completions protocol.
type client struct {
	apiKey          string
	baseURL         string
	completionModel string
	temperature     float64
	maxTokens       int
	httpClient      *http.Client
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a chat completions request
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// response represents a chat completions response
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new chat completions client
func NewOpenAIClient(apiKey, baseURL, completionModel string, temperature float64, maxTokens int, timeout time.Duration) *client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &client{
		apiKey:          apiKey,
		baseURL:         strings.TrimRight(baseURL, "/"),
		completionModel: completionModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

const filterSystemPrompt = `You are an expert research assistant that helps analyze user queries to extract research filters.

Your task is to analyze the user's query and their CV (if provided) to extract relevant filters for academic research search.

You must extract:
1. **Topics**: One or two research topics, fields, or keywords (e.g., ["Machine Learning", "Robotics"])
   - Extract at most TWO topics, picking the ones most central to the query
2. **Geographical Areas**: Countries or regions mentioned, converted to ISO 3166-1 alpha-2 country codes (e.g., ["CH", "US", "FR", "DE"])
   - If a region is mentioned (e.g., "Europe"), expand it to all relevant country codes
   - If no specific location is mentioned, leave this as an empty array
   - Always use 2-letter uppercase ISO codes
3. **Institutions**: University or laboratory names mentioned, copied verbatim (e.g., ["ETH Zurich"])
   - If no institution is mentioned, leave this as an empty array

Only extract what the query actually states. If the CV is provided, use it to disambiguate the topics, not to invent new ones.

You MUST respond in valid JSON format with this exact structure:
{
    "topics": ["topic1", "topic2"],
    "geographical_areas": ["CH", "US", "FR"],
    "institutions": ["ETH Zurich"]
}

Example conversions:
- "Switzerland" → ["CH"]
- "United States" or "USA" → ["US"]
- "Europe" → ["AT", "BE", "BG", "HR", "CY", "CZ", "DK", "EE", "FI", "FR", "DE", "GR", "HU", "IE", "IT", "LV", "LT", "LU", "MT", "NL", "PL", "PT", "RO", "SK", "SI", "ES", "SE"]
- "France and Germany" → ["FR", "DE"]`

const filterUserTemplate = `User Query: %s

%s

Extract the research filters from this query and respond ONLY with valid JSON.`

const cvContextTemplate = `User's CV Context:
The user has expertise in: %s

Use this information to disambiguate the topic filters.`

// ExtractFilters implements the provider interface
func (c *client) ExtractFilters(ctx context.Context, query string, cvConcepts []string) (runs.Filter, error) {
	cvContext := ""
	if len(cvConcepts) > 0 {
		cvContext = fmt.Sprintf(cvContextTemplate, strings.Join(cvConcepts, ", "))
	}

	messages := []Message{
		{Role: "system", Content: filterSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(filterUserTemplate, query, cvContext)},
	}

	responseStr, err := c.sendRequest(ctx, messages)
	if err != nil {
		return runs.Filter{}, err
	}

	var parsed struct {
		Topics            []string `json:"topics"`
		GeographicalAreas []string `json:"geographical_areas"`
		Institutions      []string `json:"institutions"`
	}
	if err := json.Unmarshal([]byte(stripFences(responseStr)), &parsed); err != nil {
		return runs.Filter{}, fmt.Errorf("failed to parse filters: %w", err)
	}
	if len(parsed.Topics) == 0 {
		return runs.Filter{}, fmt.Errorf("no topics extracted from query")
	}
	if len(parsed.Topics) > 2 {
		parsed.Topics = parsed.Topics[:2]
	}

	return runs.Filter{
		Topics:            parsed.Topics,
		GeographicalAreas: emptyIfNil(parsed.GeographicalAreas),
		Institutions:      emptyIfNil(parsed.Institutions),
	}, nil
}

const cvConceptsTemplate = `
Analyze the following CV text and extract a list of 5-10 key research concepts, scientific topics, or technical skills relevant to academic research.
Return ONLY a JSON object with a "concepts" field containing an array of strings. Do not include any other text.

Example format:
{"concepts": ["Machine Learning", "Neural Networks", "Computer Vision"]}

CV Text:
%s
`

// ExtractCVConcepts implements the provider interface
func (c *client) ExtractCVConcepts(ctx context.Context, text string) ([]string, error) {
	messages := []Message{
		{Role: "system", Content: "You are an expert academic researcher helper. Output valid JSON only."},
		{Role: "user", Content: fmt.Sprintf(cvConceptsTemplate, text)},
	}

	responseStr, err := c.sendRequest(ctx, messages)
	if err != nil {
		return nil, err
	}
	return parseConceptList(stripFences(responseStr))
}

const colabEmailTemplate = `
Write a warm, personalized email from a motivated student to Professor %s asking about research collaboration opportunities.

STUDENT'S BACKGROUND (from their CV):
- Research interests and skills: %s
- Brief experience: %s

PROFESSOR'S WORK:
%s

INSTRUCTIONS:
- Start with a warm, genuine greeting (e.g., "Dear Professor %s")
- Express specific enthusiasm about their work based on the context provided
- Connect your background/interests to their research in a natural way
- Ask if they have any research opportunities or would be open to collaboration
- Keep it concise (3-4 short paragraphs)
- Use a friendly but professional tone - you're a motivated student, not overly formal
- DO NOT use placeholders like [Topic], [Your Name], or brackets
- End with a warm closing like "Best regards" or "Warm regards"
- Sign off with EXACTLY this signature: "%s"

Write the complete email now:
`

const reachOutEmailTemplate = `
Write a warm, friendly email from a curious student to Professor %s expressing interest in their work.

PROFESSOR'S WORK:
%s

STUDENT'S INTERESTS:
%s

INSTRUCTIONS:
- Start with a warm greeting (e.g., "Dear Professor %s")
- Mention something specific from their work that caught your attention
- Ask thoughtful questions or request learning resources related to their research
- Show genuine curiosity and enthusiasm
- Keep it brief (2-3 short paragraphs)
- Tone should be friendly, curious, and respectful - like reaching out to learn from an expert
- DO NOT use placeholders like [Topic], [Your Name], or brackets
- End with a friendly closing
- Sign off with EXACTLY this signature: "%s"

Write the complete email now:
`

// GenerateEmail implements the provider interface
func (c *client) GenerateEmail(ctx context.Context, emailType, professorName, professorContext, cvText string, cvConcepts []string, studentName string) (string, error) {
	concepts := strings.Join(cvConcepts, ", ")

	var prompt string
	if emailType == "colab" {
		signature := "\nA prospective collaborator"
		if studentName != "" {
			signature = "\n" + studentName
		}
		background := cvText
		if len(background) > 500 {
			background = background[:500]
		}
		if background == "" {
			background = "Early-career researcher"
		}
		prompt = fmt.Sprintf(colabEmailTemplate, professorName, concepts, background, professorContext, professorName, signature)
	} else {
		signature := "\nA curious student"
		if studentName != "" {
			signature = "\n" + studentName
		}
		prompt = fmt.Sprintf(reachOutEmailTemplate, professorName, professorContext, concepts, professorName, signature)
	}

	messages := []Message{
		{Role: "system", Content: "You are a helpful professional assistant writing academic emails."},
		{Role: "user", Content: prompt},
	}

	responseStr, err := c.sendRequest(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(responseStr), nil
}

// sendRequest sends a chat completions request
func (c *client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	requestBody := request{
		Model:       c.completionModel,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.LLMRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		telemetry.LLMRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var completion response
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		telemetry.LLMRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(completion.Choices) == 0 {
		telemetry.LLMRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("no choices in response")
	}

	telemetry.LLMRequests.WithLabelValues("ok").Inc()
	return completion.Choices[0].Message.Content, nil
}

// stripFences unwraps a reply the model wrapped in a Markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	s = strings.TrimPrefix(parts[1], "json")
	return strings.TrimSpace(s)
}

// parseConceptList accepts the shapes models actually produce: a bare array,
// a "concepts" or "topics" key, or any other object holding a string list.
func parseConceptList(content string) ([]string, error) {
	var bare []string
	if err := json.Unmarshal([]byte(content), &bare); err == nil {
		return bare, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse concepts: %w", err)
	}
	for _, key := range []string{"concepts", "topics"} {
		if raw, ok := obj[key]; ok {
			var list []string
			if err := json.Unmarshal(raw, &list); err == nil {
				return list, nil
			}
		}
	}
	for _, raw := range obj {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	return []string{}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
