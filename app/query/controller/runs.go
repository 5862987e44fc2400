package controller

import (
	"net/http"

	"github.com/canopy-network/nodedist/pkg/redis"
	"github.com/canopy-network/nodedist/pkg/utils"
	"go.uber.org/zap"
)

// HandleRuns returns the latest analyzer runs from the run stream, newest first.
// ?chain= keeps one chain.
func (c *Controller) HandleRuns(w http.ResponseWriter, r *http.Request) {
	if c.App.Redis == nil {
		utils.WriteError(w, http.StatusNotImplemented, "run history is disabled")
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	chain := r.URL.Query().Get("chain")

	// filtering happens after the read, so fetch the whole window for one chain
	count := int64(limit)
	if chain != "" {
		count = redis.DefaultStreamMaxLen
	}
	msgs, err := c.App.Redis.XRevRange(r.Context(), redis.RunStream, count)
	if err != nil {
		c.App.Logger.Error("read run stream failed", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "query failed")
		return
	}

	runs := make([]redis.RunEvent, 0, len(msgs))
	for _, msg := range msgs {
		event, err := redis.ParseRunEvent(msg)
		if err != nil {
			c.App.Logger.Warn("skipping malformed run entry", zap.Error(err))
			continue
		}
		if chain != "" && event.Chain != chain {
			continue
		}
		runs = append(runs, event)
		if len(runs) == limit {
			break
		}
	}
	utils.WriteJSON(w, http.StatusOK, historyResponse[redis.RunEvent]{Data: runs, Limit: limit})
}
