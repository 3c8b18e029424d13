package backend

import (
	"context"
	"strconv"

	"github.com/tessro/riffcord/internal/core"
)

// Resume resumes playback in a server.
func (c *Client) Resume(ctx context.Context, guildID string) error {
	return c.post(ctx, guildPath(guildID, "resume"), nil, nil)
}

// Pause pauses playback in a server.
func (c *Client) Pause(ctx context.Context, guildID string) error {
	return c.post(ctx, guildPath(guildID, "pause"), nil, nil)
}

// Skip skips the current track.
func (c *Client) Skip(ctx context.Context, guildID string) error {
	return c.post(ctx, guildPath(guildID, "skip"), nil, nil)
}

// AddToQueue queues a URL, attributed to user when set.
func (c *Client) AddToQueue(ctx context.Context, guildID, trackURL string, user *core.User) error {
	return c.post(ctx, guildPath(guildID, "queue"), addRequest{URL: trackURL, User: user}, nil)
}

// ReorderQueue moves the entry at start to end. Both positions are 1-based.
func (c *Client) ReorderQueue(ctx context.Context, guildID string, start, end int) error {
	return c.post(ctx, guildPath(guildID, "queue", "reorder"), reorderRequest{Start: start, End: end}, nil)
}

// RemoveFromQueue removes the entry at index (0-based).
func (c *Client) RemoveFromQueue(ctx context.Context, guildID string, index int) error {
	return c.delete(ctx, guildPath(guildID, "queue", strconv.Itoa(index)))
}

// Search finds tracks matching query.
func (c *Client) Search(ctx context.Context, query string) ([]core.Track, error) {
	var resp SearchResponse
	if err := c.get(ctx, BuildURL("/api/search", map[string]string{"q": query}), &resp); err != nil {
		return nil, err
	}
	tracks := make([]core.Track, 0, len(resp.Results))
	for _, r := range resp.Results {
		tracks = append(tracks, r.ToCore())
	}
	return tracks, nil
}
