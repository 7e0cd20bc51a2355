// Package octave is the HTTP client for the Octave content generation
// service. Octave hosts per-play agents; a campaign's play code selects
// which agent writes its copy.
package octave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fractionalops/claire-backend/internal/domain"
	"github.com/fractionalops/claire-backend/internal/pkg/httpretry"
	"github.com/fractionalops/claire-backend/internal/pkg/logger"
)

const (
	agentPageSize = 50
	maxAgentPages = 20
)

// Agent is one generation agent registered in Octave.
type Agent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // "sequence" or "content"
	Channel  string `json:"channel,omitempty"`
	PlayCode string `json:"playCode,omitempty"`
}

// IsEmailSequence reports whether the agent produces a full email
// sequence rather than a single content block.
func (a Agent) IsEmailSequence() bool {
	return strings.EqualFold(a.Type, "sequence") && strings.EqualFold(a.Channel, "EMAIL")
}

// Client calls the Octave API. Generation runs are slow; callers bound
// them with the configured timeout, not the transport's.
type Client struct {
	baseURL string
	apiKey  string
	http    httpretry.HTTPDoer
	timeout time.Duration
}

// NewClient builds an Octave client. maxRetries applies to transient
// failures on each request; timeout bounds a whole generation run.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// The inner client carries no timeout of its own; the request
		// context set in GenerateCopy bounds every attempt.
		http:    httpretry.NewRetryClient(&http.Client{}, maxRetries),
		timeout: timeout,
	}
}

// GenerateCopy finds the agent for the campaign's play code and runs it,
// returning the generated outputs. The campaign itself is never mutated.
func (c *Client) GenerateCopy(ctx context.Context, campaign *domain.Campaign) (*domain.FinalOutputs, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	agent, err := c.FindAgent(ctx, campaign.PlayCode)
	if err != nil {
		return nil, err
	}

	logger.Info("running octave agent",
		"agent", agent.Name,
		"agent_type", agent.Type,
		"play_code", campaign.PlayCode,
		"campaign_id", campaign.ID)

	payload := map[string]any{
		"brief":               campaign.Brief,
		"additionalBrief":     campaign.AdditionalBrief,
		"intermediaryOutputs": campaign.IntermediaryOutputs,
	}

	var run runResponse
	if err := c.post(ctx, "/api/agents/"+url.PathEscape(agent.ID)+"/run", payload, &run); err != nil {
		return nil, err
	}

	out := &domain.FinalOutputs{
		AgentName:  agent.Name,
		Structured: run.Structured,
	}
	if agent.IsEmailSequence() {
		out.RawContent = flattenSequence(run)
	} else {
		out.RawContent = run.Content
	}
	if out.RawContent == "" {
		return nil, fmt.Errorf("octave: agent %s returned no content", agent.Name)
	}
	return out, nil
}

// FindAgent pages through the agent registry and picks the agent for a
// play code: an agent whose name or code starts with the play code wins;
// failing that, the first substring match.
func (c *Client) FindAgent(ctx context.Context, playCode string) (*Agent, error) {
	code := strings.ToLower(playCode)
	var substringMatch *Agent

	for page := 1; page <= maxAgentPages; page++ {
		resp, err := c.listAgents(ctx, page)
		if err != nil {
			return nil, err
		}
		for i := range resp.Agents {
			a := resp.Agents[i]
			name := strings.ToLower(a.Name)
			agentCode := strings.ToLower(a.PlayCode)
			if strings.HasPrefix(name, code) || agentCode == code {
				return &a, nil
			}
			if substringMatch == nil && strings.Contains(name, code) {
				substringMatch = &a
			}
		}
		if !resp.HasMore {
			break
		}
	}

	if substringMatch != nil {
		return substringMatch, nil
	}
	return nil, fmt.Errorf("octave: no agent matches play code %q", playCode)
}

type agentsResponse struct {
	Agents  []Agent `json:"agents"`
	HasMore bool    `json:"hasMore"`
}

type runResponse struct {
	Content    string         `json:"content"`
	Emails     []sequenceStep `json:"emails"`
	Structured map[string]any `json:"structured"`
}

type sequenceStep struct {
	Step    int    `json:"step"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// flattenSequence renders an email sequence as one reviewable document.
func flattenSequence(run runResponse) string {
	if len(run.Emails) == 0 {
		return run.Content
	}
	var b strings.Builder
	for i, e := range run.Emails {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		step := e.Step
		if step == 0 {
			step = i + 1
		}
		fmt.Fprintf(&b, "Email %d: %s\n\n%s", step, e.Subject, e.Body)
	}
	return b.String()
}

func (c *Client) listAgents(ctx context.Context, page int) (*agentsResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(agentPageSize))

	var resp agentsResponse
	if err := c.get(ctx, "/api/agents?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("octave: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("octave: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("octave: decode response: %w", err)
	}
	return nil
}
