package testutil

import (
	"os"
	"testing"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/config"
	"TokenFSM/internal/lexicon"
)

// SampleConfig configures one stage of every kind.
const SampleConfig = `
[store]
kind = "file"
dir = "data"

[[stage]]
name = "sbd"
kind = "sbd"

[[stage.pattern]]
name = "BOUNDARY"
pattern = "[.|!|?]"

[[stage]]
name = "ner"
kind = "ner"
transform = "hint+lower"

[[stage.hint]]
kind = "number"
class = "NUM"

[[stage.hint]]
kind = "fuzzy"
pattern = "september"
distance = 1
class = "SEPTEMBER"
ignore-case = true

[[stage.pattern]]
name = "DATE"
pattern = "[NUM] [january|march|SEPTEMBER]"

[[stage.pattern]]
name = "DATE"
pattern = "[january|march|SEPTEMBER] [NUM]"

[[stage.pattern]]
name = "CITY"
pattern = ["new", "york"]
custom = { country = "US" }

[[stage.pattern]]
name = "CITY"
pattern = "[paris|london]"

[[stage]]
name = "pos"
kind = "pos"
transform = "lower"

[[stage.pattern]]
name = "DET"
pattern = "[the|a|an]"

[[stage.pattern]]
name = "NOUN"
pattern = "[food|view|city|cat]"

[[stage]]
name = "negation"
kind = "negation"
transform = "lower"

[[stage.pattern]]
name = "NOT"
pattern = "[not|never|no]"

[[stage]]
name = "sentiment"
kind = "sentiment"
transform = "lower"

[[stage.pattern]]
name = "POSITIVE"
pattern = "[good|great|lovely]"
custom = 1

[[stage.pattern]]
name = "NEGATIVE"
pattern = "[bad|awful]"
custom = -1

[[stage]]
name = "cer"
kind = "cer"
compose = "ner"

[[stage.pattern]]
name = "EVENT"
pattern = "DATE in CITY"

[[stage.pattern]]
name = "TRIP"
pattern = "[from] CITY to CITY"
`

// SampleTexts returns short texts exercising every sample stage.
func SampleTexts() []string {
	return []string{
		"We met on 12 March in New York. The food was not good!",
		"She flew from Paris to London on Septmber 3.",
		"The view was great and the city was lovely.\nA cat sat.",
		"Nothing to see here",
	}
}

// SamplePatterns returns text-mode patterns used by automaton tests and
// benchmarks.
func SamplePatterns() []automaton.Pattern[string] {
	return []automaton.Pattern[string]{
		{Name: "GREETING", Text: "[hello|hi|hey] [there|world]"},
		{Name: "FAREWELL", Text: "[good] [bye|night]"},
		{Name: "FAREWELL", Text: "bye <EOS>"},
		{Name: "CITY", Text: "new [york|delhi]"},
		{Name: "CITY", Text: "[paris|london|tokyo]"},
		{Name: "0", Text: "new york times"},
	}
}

// LoadSampleConfig parses SampleConfig with the store rooted at dir.
func LoadSampleConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	c, err := config.Parse(SampleConfig)
	if err != nil {
		t.Fatalf("parse sample config: %v", err)
	}
	c.Store.Dir = dir
	return c
}

// NewLexicon returns an empty English lexicon.
func NewLexicon(t *testing.T) *lexicon.Lexicon {
	t.Helper()
	lex, err := lexicon.New(lexicon.Options{})
	if err != nil {
		t.Fatalf("lexicon: %v", err)
	}
	return lex
}

// WithTempDir creates a temporary directory, calls fn with its path,
// and cleans up afterwards.
func WithTempDir(t *testing.T, fn func(dir string)) {
	t.Helper()
	fn(t.TempDir())
}

// AssertFileExists checks that a file exists at the given path.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

// AssertDirExists checks that a directory exists at the given path.
func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("expected directory to exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}
