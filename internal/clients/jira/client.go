package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/pkg/httpx"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
)

const defaultFields = "summary,description,priority,status,assignee,updated"

// Client is the issue-tracker client. Transition and Comment are idempotent
// from the core's perspective; the core only knows the start/complete codes it
// is configured with.
type Client interface {
	SearchIssues(ctx context.Context) ([]domain.Ticket, error)
	GetIssue(ctx context.Context, issueKey string) (domain.Ticket, error)
	Transition(ctx context.Context, issueID string, transitionCode string) error
	Comment(ctx context.Context, issueID string, text string) error
}

type client struct {
	log        *logger.Logger
	baseURL    string
	email      string
	apiToken   string
	jql        string
	maxResults int
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	baseURL := strings.TrimSpace(os.Getenv("JIRA_BASE_URL"))
	if baseURL == "" {
		return nil, fmt.Errorf("missing JIRA_BASE_URL")
	}
	email := strings.TrimSpace(os.Getenv("JIRA_EMAIL"))
	token := strings.TrimSpace(os.Getenv("JIRA_API_TOKEN"))
	if email == "" || token == "" {
		return nil, fmt.Errorf("missing JIRA_EMAIL or JIRA_API_TOKEN")
	}

	jql := strings.TrimSpace(os.Getenv("JIRA_DEFAULT_JQL"))
	if jql == "" {
		jql = `project = "DWOS" ORDER BY priority DESC`
	}

	return &client{
		log:        log.With("service", "JiraClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   token,
		jql:        jql,
		maxResults: 100,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type jiraHTTPError struct {
	StatusCode int
	Body       string
}

func (e *jiraHTTPError) Error() string {
	return fmt.Sprintf("jira http %d: %s", e.StatusCode, e.Body)
}

func (e *jiraHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &jiraHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if uErr := json.Unmarshal(raw, out); uErr != nil {
			return fmt.Errorf("jira decode error: %w", uErr)
		}
	}
	return nil
}

type issuePayload struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		Priority    struct {
			Name string `json:"name"`
		} `json:"priority"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Assignee struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Updated string `json:"updated"`
	} `json:"fields"`
}

func (p issuePayload) toTicket() domain.Ticket {
	return domain.Ticket{
		IssueID:     p.ID,
		Key:         p.Key,
		Summary:     p.Fields.Summary,
		Description: flattenDescription(p.Fields.Description),
		Priority:    p.Fields.Priority.Name,
		Status:      p.Fields.Status.Name,
		Assignee:    p.Fields.Assignee.DisplayName,
		UpdatedAt:   p.Fields.Updated,
	}
}

// flattenDescription accepts either a plain string or an Atlassian document
// (ADF) and reduces it to the concatenated text nodes.
func flattenDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var node struct {
		Text    string            `json:"text"`
		Content []json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &node); err != nil {
		return ""
	}
	var parts []string
	if strings.TrimSpace(node.Text) != "" {
		parts = append(parts, node.Text)
	}
	for _, child := range node.Content {
		if t := flattenDescription(child); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

func (c *client) SearchIssues(ctx context.Context) ([]domain.Ticket, error) {
	payload := map[string]any{
		"jql":        c.jql,
		"maxResults": c.maxResults,
		"fields":     defaultFields,
	}
	var resp struct {
		Issues []issuePayload `json:"issues"`
	}
	if err := c.do(ctx, "POST", "/rest/api/3/search/jql", payload, &resp); err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, 0, len(resp.Issues))
	for _, issue := range resp.Issues {
		tickets = append(tickets, issue.toTicket())
	}
	return tickets, nil
}

func (c *client) GetIssue(ctx context.Context, issueKey string) (domain.Ticket, error) {
	issueKey = strings.TrimSpace(issueKey)
	if issueKey == "" {
		return domain.Ticket{}, fmt.Errorf("issue key required")
	}
	var resp issuePayload
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=%s", issueKey, defaultFields)
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return domain.Ticket{}, err
	}
	return resp.toTicket(), nil
}

func (c *client) Transition(ctx context.Context, issueID string, transitionCode string) error {
	issueID = strings.TrimSpace(issueID)
	transitionCode = strings.TrimSpace(transitionCode)
	if issueID == "" || transitionCode == "" {
		return fmt.Errorf("issue id and transition code required")
	}
	payload := map[string]any{
		"transition": map[string]any{"id": transitionCode},
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/transitions", issueID)
	err := c.do(ctx, "POST", path, payload, nil)
	if err != nil && httpx.IsRetryableError(err) {
		// One retry for transient transport failures only.
		err = c.do(ctx, "POST", path, payload, nil)
	}
	return err
}

func (c *client) Comment(ctx context.Context, issueID string, text string) error {
	issueID = strings.TrimSpace(issueID)
	if issueID == "" {
		return fmt.Errorf("issue id required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text required")
	}
	payload := map[string]any{
		"body": map[string]any{
			"type":    "doc",
			"version": 1,
			"content": []map[string]any{
				{
					"type": "paragraph",
					"content": []map[string]any{
						{"type": "text", "text": text},
					},
				},
			},
		},
	}
	path := fmt.Sprintf("/rest/api/3/issue/%s/comment", issueID)
	return c.do(ctx, "POST", path, payload, nil)
}
