package emserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"oss.terrastruct.com/diff"
	"oss.terrastruct.com/xjson"

	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/geo"
)

func TestParseOpts(t *testing.T) {
	t.Parallel()

	base := &emlayout.Opts{GridUnit: 20}

	opts := parseOpts(base, map[string]interface{}{
		"gridUnit":    float64(5),
		"direction":   "down",
		"nodeSpacing": float64(120),
		"bogus":       "ignored",
		"edgeNodeSpacing": "not a number",
	})
	assert.Equal(t, float64(5), opts.GridUnit)
	assert.Equal(t, emelk.Down, opts.Direction)
	assert.Equal(t, 120, opts.NodeSpacing)
	assert.Equal(t, 0, opts.EdgeNodeSpacing)

	// the base options are overlaid, never mutated
	assert.Equal(t, float64(20), base.GridUnit)

	opts = parseOpts(base, nil)
	assert.Equal(t, float64(20), opts.GridUnit)
}

func TestSuccessResponseFlattens(t *testing.T) {
	t.Parallel()

	res := &emlayout.Result{
		ID:        7,
		Positions: map[string]*geo.Point{"n1": geo.NewPoint(10, 20)},
		Routes: map[string]geo.Route{
			"l1": {geo.NewPoint(0, 0), geo.NewPoint(5, 0), geo.NewPoint(5, 5)},
		},
	}
	resp := successResponse(3, res)
	assert.Equal(t, TypeSuccess, resp.Type)
	assert.EqualValues(t, 3, resp.RequestID)
	assert.Equal(t, []float64{0, 0, 5, 0, 5, 5}, resp.EdgeRoutes["l1"])
	assert.Equal(t, float64(10), resp.Positions["n1"].X)

	exp := `{
  "type": "SUCCESS",
  "requestId": 3,
  "positions": {
    "n1": {
      "x": 10,
      "y": 20
    }
  },
  "edgeRoutes": {
    "l1": [
      0,
      0,
      5,
      0,
      5,
      5
    ]
  }
}`
	ds, err := diff.Strings(exp, string(xjson.Marshal(resp)))
	if err != nil {
		t.Fatal(err)
	}
	if ds != "" {
		t.Fatalf("unexpected response encoding: %s", ds)
	}
}
