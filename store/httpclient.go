package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lumaview/ivs-lounge/backend/comments"
)

// Client is the remote binding: it talks to a comment server exposing
// GET/PUT /api/comments/{channelId} and POST
// /api/comments/{channelId}/{commentId}/like. The sync engine works against
// it exactly as against a local binding.
type Client struct {
	base string
	http *http.Client
}

// NewClient targets a comment server at base (e.g. "http://localhost:8080").
func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) commentsURL(channelID string) string {
	return c.base + "/api/comments/" + url.PathEscape(channelID)
}

func (c *Client) Get(ctx context.Context, channelID string) ([]comments.Comment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.commentsURL(channelID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch comments: unexpected status %d", resp.StatusCode)
	}
	var seq []comments.Comment
	if err := json.NewDecoder(resp.Body).Decode(&seq); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return seq, nil
}

func (c *Client) Put(ctx context.Context, channelID string, seq []comments.Comment) error {
	body, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.commentsURL(channelID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("persist comments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("persist comments: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Like implements Liker against the server's like endpoint.
func (c *Client) Like(ctx context.Context, channelID, commentID string) (comments.Comment, error) {
	u := c.commentsURL(channelID) + "/" + url.PathEscape(commentID) + "/like"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return comments.Comment{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return comments.Comment{}, fmt.Errorf("like comment: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return comments.Comment{}, comments.ErrNotFound
	default:
		return comments.Comment{}, fmt.Errorf("like comment: unexpected status %d", resp.StatusCode)
	}
	var out comments.Comment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return comments.Comment{}, fmt.Errorf("decode like response: %w", err)
	}
	return out, nil
}
