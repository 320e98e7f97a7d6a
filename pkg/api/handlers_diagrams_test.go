package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/timagonch/bowtie-diagram/pkg/audit"
)

func createDiagram(t *testing.T, ts *testServer, body any) DiagramResponse {
	t.Helper()
	rr := ts.do(t, "POST", "/v1/diagrams", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[DiagramResponse](t, rr)
}

func TestCreateDiagram_Empty(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, "POST", "/v1/diagrams", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	d := decode[DiagramResponse](t, rr)
	assert.Equal(t, "/v1/diagrams/"+d.ID, rr.Header().Get("Location"))
	assert.Len(t, d.Document.Nodes, 1)
	assert.NotEmpty(t, d.Report.TopEventID)
}

func TestCreateDiagram_Import(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, `{"document": `+refineryDocument+`}`)

	assert.Equal(t, "Refinery", d.Title)
	assert.Len(t, d.Document.Nodes, 5)
	assert.InDelta(t, 5.0, d.Report.TopEventResidual, 1e-9)
}

func TestCreateDiagram_Validation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, "POST", "/v1/diagrams", map[string]any{"title": strings.Repeat("x", 201)})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[ErrorResponse](t, rr).Message, "Title")

	rr = ts.do(t, "POST", "/v1/diagrams", `{"title": "a", "bogus": 1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "POST", "/v1/diagrams", `{"document": {"nodes": [{"id": "??"}]}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetListDeleteDiagram(t *testing.T) {
	ts := newTestServer(t)
	a := createDiagram(t, ts, map[string]any{"title": "A"})
	createDiagram(t, ts, map[string]any{"title": "B"})

	rr := ts.do(t, "GET", "/v1/diagrams", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[DiagramListResponse](t, rr)
	assert.Equal(t, 2, list.Count)

	rr = ts.do(t, "GET", "/v1/diagrams/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "A", decode[DiagramResponse](t, rr).Title)

	rr = ts.do(t, "DELETE", "/v1/diagrams/"+a.ID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, "GET", "/v1/diagrams/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, "DELETE", "/v1/diagrams/"+a.ID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetDiagram_YAML(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, `{"document": `+refineryDocument+`}`)

	rr := ts.do(t, "GET", "/v1/diagrams/"+d.ID+"?format=yaml", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Refinery", doc["title"])

	rr = ts.do(t, "GET", "/v1/diagrams/"+d.ID+"?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReplaceDiagram(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, nil)

	rr := ts.do(t, "PUT", "/v1/diagrams/"+d.ID, refineryDocument)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[DiagramResponse](t, rr)
	assert.Equal(t, "Refinery", got.Title)
	assert.InDelta(t, 30.0, got.Report.Nodes["conseq_1"].ResidualRisk, 1e-9)

	rr = ts.do(t, "PUT", "/v1/diagrams/missing", refineryDocument)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetReport(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, `{"document": `+refineryDocument+`}`)

	rr := ts.do(t, "GET", "/v1/diagrams/"+d.ID+"/report", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rep := decode[ReportResponse](t, rr)
	assert.Equal(t, d.ID, rep.DiagramID)
	assert.Equal(t, "Effectiveness: 50%", rep.Badges["barrier_p"])
	assert.Equal(t, "Base: 12 | Current(from Top): 60 → Residual: 30", rep.Badges["conseq_1"])
}

func TestArrangeDiagram(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, `{"document": `+refineryDocument+`}`)

	rr := ts.do(t, "POST", "/v1/diagrams/"+d.ID+"/layout", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[DiagramResponse](t, rr)

	positions := map[string]map[string]any{}
	for _, n := range got.Document.Nodes {
		pos, ok := n["position"].(map[string]any)
		require.True(t, ok, "node %v has no position", n["id"])
		positions[n["id"].(string)] = pos
	}
	assert.EqualValues(t, -350, positions["threat_1"]["x"])
	assert.EqualValues(t, -175, positions["barrier_p"]["x"])
	assert.EqualValues(t, 0, positions["center_1"]["x"])
	assert.EqualValues(t, 175, positions["barrier_m"]["x"])
	assert.EqualValues(t, 350, positions["conseq_1"]["x"])
	assert.InDelta(t, 30.0, got.Report.Nodes["conseq_1"].ResidualRisk, 1e-9)

	rr = ts.do(t, "POST", "/v1/diagrams/missing/layout", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDiagramHistory(t *testing.T) {
	ts := newTestServer(t)
	d := createDiagram(t, ts, `{"document": `+refineryDocument+`}`)
	base := "/v1/diagrams/" + d.ID

	rr := ts.do(t, "POST", base+"/layout", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = ts.do(t, "DELETE", base+"/edges/missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())

	rr = ts.do(t, "GET", base+"/history", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[HistoryResponse](t, rr)
	require.Equal(t, 3, got.Count)
	assert.Equal(t, "remove_edge", got.Events[0].Operation)
	assert.Equal(t, audit.StatusFailure, got.Events[0].Status)
	assert.Equal(t, "arrange", got.Events[1].Operation)
	assert.InDelta(t, 5.0, got.Events[1].TopEventResidual, 1e-9)
	assert.Equal(t, "create", got.Events[2].Operation)

	rr = ts.do(t, "GET", base+"/history?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[HistoryResponse](t, rr).Count)

	rr = ts.do(t, "GET", base+"/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, "GET", "/v1/diagrams/missing/history", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
