/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikezilla14/fountain-flow/internal/storage"
)

// Client is a minimal HTTP client for the story registry API.
// The publish command uses it to push compiled artifacts; nothing in the
// compiler core depends on it.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new registry client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	var req *http.Request
	if rd != nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), rd)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	if err != nil {
		return err
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// MintToken asks the registry for a bearer token and stores it on the client.
func (c *Client) MintToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	req := map[string]any{"subject": subject}
	if ttl > 0 {
		req["ttl_seconds"] = int64(ttl / time.Second)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Token, nil
}

// Story is a minimal projection for listing.
type Story struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListStories returns published stories (read-only).
func (c *Client) ListStories(ctx context.Context) ([]Story, error) {
	var list []Story
	if err := c.doJSON(ctx, http.MethodGet, "/api/stories", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PublishRequest carries one compiled artifact to the registry.
// StableID keys the story across publishes; leave it empty on the first
// publish and reuse the returned value afterwards.
type PublishRequest struct {
	StableID string          `json:"stable_id,omitempty"`
	Name     string          `json:"name"`
	Backend  string          `json:"backend,omitempty"`
	Artifact json.RawMessage `json:"artifact"`
	Source   string          `json:"source,omitempty"`
}

// PublishReceipt is the server acknowledgement for a publish.
type PublishReceipt struct {
	StoryID  int64  `json:"story_id"`
	StableID string `json:"stable_id"`
	Version  int64  `json:"version"`
}

// Publish pushes a compiled artifact; each publish bumps the story version.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*PublishReceipt, error) {
	var rec PublishReceipt
	if err := c.doJSON(ctx, http.MethodPost, "/api/stories", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ArtifactEnvelope matches the server response for the latest artifact of a story.
type ArtifactEnvelope struct {
	StoryID   int64       `json:"story_id"`
	Version   int64       `json:"version"`
	Backend   string      `json:"backend"`
	CreatedAt string      `json:"created_at"`
	Artifact  interface{} `json:"artifact"`
}

// FetchArtifact fetches the latest artifact for a story, optionally pinned to
// one backend.
func (c *Client) FetchArtifact(ctx context.Context, storyID int64, backend string) (*ArtifactEnvelope, error) {
	var env ArtifactEnvelope
	path := fmt.Sprintf("/api/stories/%d", storyID)
	if b := strings.TrimSpace(backend); b != "" {
		path += "?backend=" + url.QueryEscape(b)
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// SearchStory runs a server-side search over a published story's documents.
func (c *Client) SearchStory(ctx context.Context, storyID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	vals := url.Values{}
	if q.Text != "" {
		vals.Set("q", q.Text)
	}
	if len(q.Kinds) > 0 {
		vals.Set("kind", strings.Join(q.Kinds, ","))
	}
	if q.Script != "" {
		vals.Set("script", q.Script)
	}
	if q.Speaker != "" {
		vals.Set("speaker", q.Speaker)
	}
	if q.Scene != "" {
		vals.Set("scene", q.Scene)
	}
	if q.LineFrom > 0 {
		vals.Set("from", fmt.Sprint(q.LineFrom))
	}
	if q.LineTo > 0 {
		vals.Set("to", fmt.Sprint(q.LineTo))
	}
	if q.Limit > 0 {
		vals.Set("limit", fmt.Sprint(q.Limit))
	}
	if q.Offset > 0 {
		vals.Set("offset", fmt.Sprint(q.Offset))
	}
	path := fmt.Sprintf("/api/stories/%d/search", storyID)
	if len(vals) > 0 {
		path += "?" + vals.Encode()
	}
	var out []storage.SearchResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
