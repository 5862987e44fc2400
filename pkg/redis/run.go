package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunEvent announces a finished chain analysis on RunChannel and in RunStream.
type RunEvent struct {
	ID                    string    `json:"id"`
	Chain                 string    `json:"chain"`
	Kind                  string    `json:"kind"`
	Nodes                 int64     `json:"nodes"`
	Providers             int       `json:"providers"`
	UnidentifiedASNs      int       `json:"unidentified_asns"`
	UnidentifiedLocations int       `json:"unidentified_locations"`
	InvalidIPs            int       `json:"invalid_ips"`
	Files                 []string  `json:"files,omitempty"`
	FinishedAt            time.Time `json:"finished_at"`
	StreamID              string    `json:"stream_id,omitempty"`
}

// Values flattens the event into stream fields. The full event rides along as JSON.
func (e RunEvent) Values() (map[string]interface{}, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"run_id":      e.ID,
		"chain":       e.Chain,
		"nodes":       strconv.FormatInt(e.Nodes, 10),
		"finished_at": e.FinishedAt.UTC().Format(time.RFC3339),
		"payload":     string(payload),
	}, nil
}

// ParseRunEvent decodes a stream entry written from Values.
func ParseRunEvent(msg redis.XMessage) (RunEvent, error) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return RunEvent{}, fmt.Errorf("stream entry %s has no payload", msg.ID)
	}
	var e RunEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return RunEvent{}, fmt.Errorf("decode stream entry %s: %w", msg.ID, err)
	}
	e.StreamID = msg.ID
	return e, nil
}
