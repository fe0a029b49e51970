package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TokenFSM/internal/config"
	"TokenFSM/internal/pipeline"
	"TokenFSM/internal/testutil"
)

type testServer struct {
	mgr *StageManager
	mux *http.ServeMux
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	mgr, err := NewStageManager(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	mux := http.NewServeMux()
	NewHandler(mgr, nil).RegisterRoutes(mux)
	return &testServer{mgr: mgr, mux: mux}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type recognizeBody struct {
	Stage    string            `json:"stage"`
	Text     string            `json:"text"`
	Tokens   []string          `json:"tokens"`
	Entities []pipeline.Entity `json:"entities"`
}

func TestListStages(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodGet, "/stages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Stages []pipeline.Info `json:"stages"`
	}
	decode(t, w, &body)
	require.Len(t, body.Stages, 6)
	assert.Equal(t, "sbd", body.Stages[0].Name)
	assert.Equal(t, "cer", body.Stages[5].Name)
	assert.Equal(t, "ner", body.Stages[5].Compose)
}

func TestGetStage(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodGet, "/stages/ner", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info pipeline.Info
	decode(t, w, &info)
	assert.Equal(t, []string{"CITY", "DATE"}, info.Names)

	w = s.do(t, http.MethodGet, "/stages/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var e errorBody
	decode(t, w, &e)
	assert.Contains(t, e.Error.Message, "stage not found")
}

func TestRecognize_Text(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	req, err := json.Marshal(map[string]string{"text": testutil.SampleTexts()[0]})
	require.NoError(t, err)
	w := s.do(t, http.MethodPost, "/stages/cer/recognize", string(req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body recognizeBody
	decode(t, w, &body)
	assert.Equal(t, "cer", body.Stage)
	require.Len(t, body.Entities, 1)
	assert.Equal(t, "EVENT", body.Entities[0].Name)
	assert.Equal(t, "12 March in New York", body.Entities[0].Literal)
}

func TestRecognize_Tokens(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodPost, "/stages/cer/recognize", `{"tokens":["from","paris","to","london"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body recognizeBody
	decode(t, w, &body)
	assert.Equal(t, []string{"from", "paris", "to", "london"}, body.Tokens)
	require.Len(t, body.Entities, 1)
	assert.Equal(t, "TRIP", body.Entities[0].Name)
	assert.Equal(t, 0, body.Entities[0].Start)
	assert.Equal(t, 3, body.Entities[0].End)
}

func TestRecognize_NoMatches(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodPost, "/stages/ner/recognize", `{"text":"Nothing to see here"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entities":[]`)
}

func TestRecognize_BadRequests(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed", "/stages/ner/recognize", `{"text":`, http.StatusBadRequest},
		{"unknown field", "/stages/ner/recognize", `{"sentence":"x"}`, http.StatusBadRequest},
		{"text and tokens", "/stages/ner/recognize", `{"text":"x","tokens":["x"]}`, http.StatusBadRequest},
		{"missing stage", "/stages/lemma/recognize", `{"text":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestLearn(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodPost, "/stages/ner/learn", `{"patterns":[{"name":"ORG","pattern":["Acme","Corp"]}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Learned int `json:"learned"`
		Names   int `json:"names"`
	}
	decode(t, w, &body)
	assert.Equal(t, 1, body.Learned)
	assert.Equal(t, 3, body.Names)

	w = s.do(t, http.MethodPost, "/stages/ner/recognize", `{"text":"She joined ACME corp"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var rec recognizeBody
	decode(t, w, &rec)
	require.Len(t, rec.Entities, 1)
	assert.Equal(t, "ORG", rec.Entities[0].Name)

	tests := []struct {
		name string
		body string
	}{
		{"no patterns", `{"patterns":[]}`},
		{"no name", `{"patterns":[{"pattern":"x"}]}`},
		{"bad mark", `{"patterns":[{"name":"X","pattern":"a b","mark":[1]}]}`},
		{"empty pattern", `{"patterns":[{"name":"X","pattern":""}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/stages/ner/learn", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestModel_ExportImport(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	w := s.do(t, http.MethodGet, "/stages/pos/model", "")
	require.Equal(t, http.StatusOK, w.Code)
	model := w.Body.String()
	assert.True(t, json.Valid([]byte(model)))

	// The negation stage takes over the pos model.
	w = s.do(t, http.MethodPut, "/stages/negation/model", model)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info pipeline.Info
	decode(t, w, &info)
	assert.Equal(t, []string{"DET", "NOUN"}, info.Names)

	w = s.do(t, http.MethodPut, "/stages/negation/model", `{"not":"a model"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/stages/negation/model", `[100,4000000000,{},{},{},{}]`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestSave_RestoresOnRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.LoadSampleConfig(t, dir)

	s := newTestServer(t, cfg)
	w := s.do(t, http.MethodPost, "/stages/ner/learn", `{"patterns":[{"name":"ORG","pattern":["Acme","Corp"]}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/stages/ner/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	testutil.AssertFileExists(t, filepath.Join(dir, "models", "ner.json"))
	testutil.AssertFileExists(t, filepath.Join(dir, "models", "_lexicon.json"))

	w = s.do(t, http.MethodGet, "/models", "")
	require.Equal(t, http.StatusOK, w.Code)
	var models struct {
		Models []string `json:"models"`
	}
	decode(t, w, &models)
	assert.Equal(t, []string{"_lexicon", "ner"}, models.Models)
	require.NoError(t, s.mgr.Close())

	restarted := newTestServer(t, cfg)
	w = restarted.do(t, http.MethodPost, "/stages/ner/recognize", `{"text":"She joined ACME corp"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var rec recognizeBody
	decode(t, w, &rec)
	require.Len(t, rec.Entities, 1)
	assert.Equal(t, "ORG", rec.Entities[0].Name)
}

func TestSave_BoltStore(t *testing.T) {
	dir := t.TempDir()
	cfg := testutil.LoadSampleConfig(t, dir)
	cfg.Store.Kind = config.StoreBolt

	s := newTestServer(t, cfg)
	w := s.do(t, http.MethodPost, "/stages/sentiment/save", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	testutil.AssertFileExists(t, filepath.Join(dir, "models.db"))

	names, err := s.mgr.StoredModels()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"_lexicon", "sentiment"}, names)
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	req, err := json.Marshal(map[string]string{"text": testutil.SampleTexts()[0]})
	require.NoError(t, err)
	w := s.do(t, http.MethodPost, "/analyze", string(req))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Tokens    []string          `json:"tokens"`
		Entities  []pipeline.Entity `json:"entities"`
		Sentences []pipeline.Span   `json:"sentences"`
		Tags      []string          `json:"tags"`
		Sentiment float64           `json:"sentiment"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Tokens, 15)
	assert.Len(t, body.Tags, 15)
	assert.Equal(t, []pipeline.Span{{Start: 0, End: 8}, {Start: 9, End: 14}}, body.Sentences)
	assert.Equal(t, float64(-1), body.Sentiment)

	stages := map[string]bool{}
	for _, e := range body.Entities {
		stages[e.Stage] = true
	}
	for _, name := range []string{"sbd", "ner", "pos", "negation", "sentiment", "cer"} {
		assert.True(t, stages[name], name)
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, testutil.LoadSampleConfig(t, t.TempDir()))

	big := bytes.Repeat([]byte("a "), MaxBodyBytes)
	req, err := json.Marshal(map[string]string{"text": string(big)})
	require.NoError(t, err)
	w := s.do(t, http.MethodPost, "/analyze", string(req))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
