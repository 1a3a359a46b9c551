package emserve

import (
	"strings"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/geo"
)

// LayoutRequest is one layout pass over the wire. The model travels in the
// serialized snapshot shape; requestId must increase within a connection
// for stale answers to be told apart from fresh ones.
type LayoutRequest struct {
	RequestID int64 `json:"requestId"`
	emgraph.SerializedSnapshot
	Options map[string]interface{} `json:"options,omitempty"`
}

const (
	TypeSuccess = "SUCCESS"
	TypeError   = "ERROR"
)

// LayoutResponse answers a LayoutRequest, echoing its requestId. Routes are
// flattened [x0,y0,x1,y1,...] polylines.
type LayoutResponse struct {
	Type       string                `json:"type"`
	RequestID  int64                 `json:"requestId"`
	Positions  map[string]*geo.Point `json:"positions,omitempty"`
	EdgeRoutes map[string][]float64  `json:"edgeRoutes,omitempty"`
	Message    string                `json:"message,omitempty"`
}

func successResponse(reqID int64, res *emlayout.Result) *LayoutResponse {
	out := &LayoutResponse{
		Type:       TypeSuccess,
		RequestID:  reqID,
		Positions:  res.Positions,
		EdgeRoutes: make(map[string][]float64, len(res.Routes)),
	}
	for id, route := range res.Routes {
		out.EdgeRoutes[id] = route.Flatten()
	}
	return out
}

func errorResponse(reqID int64, err error) *LayoutResponse {
	return &LayoutResponse{
		Type:      TypeError,
		RequestID: reqID,
		Message:   err.Error(),
	}
}

// parseOpts overlays wire options onto the server's base layout options.
// Unknown keys and malformed values are ignored, like any other boundary
// input.
func parseOpts(base *emlayout.Opts, raw map[string]interface{}) *emlayout.Opts {
	var opts emlayout.Opts
	if base != nil {
		opts = *base
	}
	for k, v := range raw {
		switch k {
		case "gridUnit":
			if f, ok := toFloat(v); ok {
				opts.GridUnit = f
			}
		case "direction":
			if s, ok := v.(string); ok {
				opts.Direction = emelk.Direction(strings.ToUpper(s))
			}
		case "nodeSpacing":
			if f, ok := toFloat(v); ok {
				opts.NodeSpacing = int(f)
			}
		case "edgeNodeSpacing":
			if f, ok := toFloat(v); ok {
				opts.EdgeNodeSpacing = int(f)
			}
		}
	}
	return &opts
}

func toFloat(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	}
	return 0, false
}
