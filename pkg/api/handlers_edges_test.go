package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdges(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, nil)
	base := "/v1/diagrams/" + d.ID
	top := d.Report.TopEventID

	rr := ts.do(t, "POST", base+"/nodes", map[string]any{"kind": "threat", "severity": 3, "likelihood": 3, "autoLink": false})
	require.Equal(t, http.StatusCreated, rr.Code)
	threatID := decode[MutationResponse](t, rr).CreatedID

	rr = ts.do(t, "POST", base+"/edges", map[string]any{"source": threatID, "target": top})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	edgeID := decode[MutationResponse](t, rr).CreatedID
	assert.NotEmpty(t, edgeID)

	rr = ts.do(t, "POST", base+"/edges", map[string]any{"source": threatID, "target": top})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, "POST", base+"/edges", map[string]any{"source": top, "target": top})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "POST", base+"/edges", map[string]any{"source": threatID, "target": "ghost"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, "DELETE", base+"/edges/"+edgeID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do(t, "DELETE", base+"/edges/"+edgeID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
