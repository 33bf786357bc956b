package dubclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Jeffail/gabs"
)

// RoomState получает снимок комнаты через REST: пользователи, текущий DJ и
// трек, elapsed, очередь. Использует ETag: на 304 отдаёт прошлый снимок.
func (c *Client) RoomState(ctx context.Context, room string) (*gabs.Container, error) {
	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/room/" + url.PathEscape(room) + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	c.etagMu.Lock()
	if c.etag != "" && c.lastRoom != nil {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.etagMu.Unlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("room state: %w", err)
	}
	defer resp.Body.Close()

	// 304 — ничего не изменилось, отдадим предыдущий снимок
	if resp.StatusCode == http.StatusNotModified {
		c.etagMu.Lock()
		prev := c.lastRoom
		c.etagMu.Unlock()
		c.log.Debug("room state not modified", "room", room)
		return prev, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("room state: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("room state: %w", err)
	}
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("room state: decode: %w", err)
	}
	// ответ обычно завёрнут в {"code": 200, "data": {...}}
	state := payload(parsed)

	c.etagMu.Lock()
	c.etag = resp.Header.Get("ETag")
	c.lastRoom = state
	c.etagMu.Unlock()
	return state, nil
}
