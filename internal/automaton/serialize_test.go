package automaton

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entityMeta struct {
	Preserve bool   `json:"preserve"`
	Kind     string `json:"kind"`
	Weight   int    `json:"weight"`
}

func trainedFixture(t *testing.T) *Automaton[string] {
	t.Helper()
	return newTextAutomaton(t,
		Pattern[string]{Name: "u", Tokens: tokens("united")},
		Pattern[string]{Name: "us", Tokens: tokens("united", "states")},
		Pattern[string]{Name: "usa", Tokens: tokens("united", "states", "of", "america")},
		Pattern[string]{Name: "person", Text: "[Mr.|Mrs.] [Barak|Michelle] [Obama]", Mark: &Mark{1, -1}},
		Pattern[string]{Name: DiscardName, Tokens: tokens("may", "be")},
		Pattern[string]{Name: "tagged", Tokens: tokens("<tag>"), Custom: entityMeta{Preserve: true, Kind: "literal", Weight: 3}},
		Pattern[string]{Name: "final", Tokens: tokens(".", DefaultEndOfStream)},
	)
}

func TestEmptyModelJSON(t *testing.T) {
	a := New(Options[string]{})
	exported, err := a.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, a.EmptyModelJSON(), exported)
	assert.Equal(t, `[100,0,{"0":{}},{},{},{}]`, exported)

	b := New(Options[string]{})
	require.NoError(t, b.ImportJSON(a.EmptyModelJSON()))
	assert.Equal(t, Root, b.LastUsedState())
}

func TestExportJSON_Shape(t *testing.T) {
	a := trainedFixture(t)
	exported, err := a.ExportJSON()
	require.NoError(t, err)

	var tuple []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(exported), &tuple))
	require.Len(t, tuple, 6)
	assert.Equal(t, "100", string(tuple[0]))

	var terminals map[string]string
	require.NoError(t, json.Unmarshal(tuple[3], &terminals))
	assert.NotEmpty(t, terminals)
	assert.Contains(t, valuesOf(terminals), DiscardName)

	assert.Contains(t, exported, `"`+OtherwiseKey+`"`)
	assert.Contains(t, exported, `"<EOS>"`, "sentinels are not HTML-escaped")
}

func valuesOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func TestExportImport_RoundTrip(t *testing.T) {
	a := trainedFixture(t)
	exported, err := a.ExportJSON()
	require.NoError(t, err)

	b := New(Options[string]{})
	require.NoError(t, b.ImportJSON(exported))

	again, err := b.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, exported, again)
	assert.Equal(t, a.LastUsedState(), b.LastUsedState())

	inputs := []string{
		"the united states of america",
		"united states of",
		"united kingdom",
		"Hello Mrs. Michelle Obama .",
		"it may be .",
		"<tag> <tag>",
		"",
	}
	for _, in := range inputs {
		assert.Equal(t, a.Recognize(words(in), nil, nil), b.Recognize(words(in), nil, nil), "input %q", in)
	}
}

func TestExportImport_CustomPropertyCanonical(t *testing.T) {
	a := trainedFixture(t)
	exported, err := a.ExportJSON()
	require.NoError(t, err)

	assert.Contains(t, exported, `{"kind":"literal","preserve":true,"weight":3}`)

	b := New(Options[string]{})
	require.NoError(t, b.ImportJSON(exported))

	var custom any
	b.SetOnPatternDetection(func(_ *Match, c any) { custom = c })
	b.Recognize(words("<tag>"), nil, nil)
	require.IsType(t, map[string]any{}, custom)
	assert.Equal(t, json.Number("3"), custom.(map[string]any)["weight"])
}

func TestExportImport_IntegerMode(t *testing.T) {
	a := New(Options[int]{})
	_, err := a.Learn([]Pattern[int]{
		{Name: "pair", Tokens: []int{10, 20}},
		{Name: "one", Tokens: []int{10}},
		{Name: "anchored", Tokens: []int{30, -1}, Mark: &Mark{0, 0}},
	})
	require.NoError(t, err)

	exported, err := a.ExportJSON()
	require.NoError(t, err)

	b := New(Options[int]{})
	require.NoError(t, b.ImportJSON(exported))
	again, err := b.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, exported, again)

	input := []int{10, 20, 10, 5, 30}
	want := []Match{
		{Start: 0, End: 1, Name: "pair"},
		{Start: 2, End: 2, Name: "one"},
		{Start: 4, End: 4, Name: "anchored"},
	}
	assert.Equal(t, want, a.Recognize(input, nil, nil))
	assert.Equal(t, want, b.Recognize(input, nil, nil))
}

func TestImportJSON_ReplacesTables(t *testing.T) {
	a := trainedFixture(t)
	require.NoError(t, a.ImportJSON(a.EmptyModelJSON()))
	assert.Equal(t, Root, a.LastUsedState())
	assert.Empty(t, a.Recognize(words("united states"), nil, nil))
}

func TestImportJSON_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "this is not json"},
		{"object", `{"a":1}`},
		{"too short", `[100,0,{},{},{}]`},
		{"wrong version", `[101,0,{"0":{}},{},{},{}]`},
		{"bad state count", `[100,"x",{"0":{}},{},{},{}]`},
		{"target out of range", `[100,1,{"0":{"a":5}},{"1":"x"},{},{}]`},
		{"state out of range", `[100,1,{"7":{"a":1}},{"1":"x"},{},{}]`},
		{"non-numeric state key", `[100,2,{"0":{"a":1}," 1":{}},{"2":"x"},{},{}]`},
		{"otherwise target not terminal", `[100,2,{"0":{"a":1},"1":{" otherwise":2}},{},{},{}]`},
		{"root terminal", `[100,0,{"0":{}},{"0":"x"},{},{}]`},
		{"mark on non-terminal", `[100,1,{"0":{"a":1}},{},{"1":[0,0]},{}]`},
		{"negative mark", `[100,1,{"0":{"a":1}},{"1":"x"},{"1":[-1,0]},{}]`},
		{"custom out of range", `[100,0,{"0":{}},{},{},{"3":true}]`},
		{"state count beyond rows", `[100,20000000,{},{},{},{}]`},
		{"missing rows", `[100,3,{"0":{"a":1},"1":{}},{"1":"x"},{},{}]`},
		{"extra rows", `[100,0,{"0":{},"1":{}},{},{},{}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := trainedFixture(t)
			before, err := a.ExportJSON()
			require.NoError(t, err)

			err = a.ImportJSON(tt.data)
			require.ErrorIs(t, err, ErrMalformedModel)

			after, err := a.ExportJSON()
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed import must leave the model untouched")
		})
	}
}

func TestImportJSON_IntegerModeRejectsTextKeys(t *testing.T) {
	a := New(Options[int]{})
	err := a.ImportJSON(`[100,1,{"0":{"abc":1}},{"1":"x"},{},{}]`)
	require.ErrorIs(t, err, ErrMalformedModel)
}

func TestPrintModel(t *testing.T) {
	a := trainedFixture(t)

	var buf bytes.Buffer
	a.PrintModel(&buf)
	out := buf.String()

	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "<otherwise>")
	assert.Contains(t, out, "<eos>")
	assert.Contains(t, out, "(discard)")
	assert.Contains(t, out, `"united"`)
	assert.Contains(t, out, "custom ")
	assert.Contains(t, out, "mark ")
}
