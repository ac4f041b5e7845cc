package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/telequiz/telequiz/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	ResultSaved struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Score    int    `json:"score"`
	}
)

// PublishResultSaved notifies the admin channel that a new result was stored.
// Live dashboards subscribe to pick up leaderboard changes without polling.
func (a *API) PublishResultSaved(ctx context.Context, e domain.EventResultSaved) error {
	r := e.Result

	data := ResultSaved{
		UserID:   r.UserID,
		Username: r.Username,
		Score:    r.Score,
	}

	n := Notification{
		Event: e.Name(),
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", e.Name(), err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:admin", a.prefix), b).Err()
}
