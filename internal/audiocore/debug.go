package audiocore

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/voxgraph/internal/conf"
)

// StateDumpDoc is the JSON shape of spec.md §6's "State dump (debug)":
// pipeline state, init/running/streaming flags, last error, creation
// and last-execution time, and the full configuration.
type StateDumpDoc struct {
	State              string               `json:"state"`
	Initialized        bool                 `json:"initialized"`
	Running            bool                 `json:"running"`
	Streaming          bool                 `json:"streaming"`
	LastError          string               `json:"last_error,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	LastExecutionAt    time.Time            `json:"last_execution_at,omitempty"`
	LastExecutionTime  float64              `json:"last_execution_seconds"`
	Config             *conf.PipelineConfig `json:"config"`
}

// StateDump snapshots the pipeline's current state for the debug
// surface (HTTP /state, or a file written by WriteStateDump).
func (p *Pipeline) StateDump() StateDumpDoc {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc := StateDumpDoc{
		State:             p.state.String(),
		Initialized:       p.diagram != nil,
		Running:           p.state == PipelineRunning,
		Streaming:         p.streamingActive,
		CreatedAt:         p.createdAt,
		LastExecutionAt:   p.lastExecutionAt,
		LastExecutionTime: p.lastExecDuration.Seconds(),
		Config:            p.cfg,
	}
	if p.lastErr != nil {
		doc.LastError = p.lastErr.Error()
	}
	return doc
}

// NewDebugServer builds an echo server exposing the diagram's DOT
// export and the pipeline's state dump (spec.md §6 "Graph
// visualization" and "State dump"), for a host to mount at
// cfg.Debug.HTTPAddr.
func NewDebugServer(p *Pipeline) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/state", func(c echo.Context) error {
		enc := json.NewEncoder(c.Response())
		enc.SetIndent("", "  ")
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c.Response().WriteHeader(http.StatusOK)
		return enc.Encode(p.StateDump())
	})

	e.GET("/diagram.dot", func(c echo.Context) error {
		d := p.Diagram()
		if d == nil {
			return c.String(http.StatusNotFound, "pipeline has no diagram yet\n")
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/vnd.graphviz")
		c.Response().WriteHeader(http.StatusOK)
		return d.WriteDOT(c.Response())
	})

	return e
}
