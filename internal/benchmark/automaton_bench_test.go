package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/testutil"
)

func trainedAutomaton(b *testing.B, n int) *automaton.Automaton[string] {
	b.Helper()
	a := automaton.New(automaton.Options[string]{})
	patterns := testutil.SamplePatterns()
	for i := 0; i < n; i++ {
		patterns = append(patterns, automaton.Pattern[string]{
			Name:   fmt.Sprintf("P%d", i%16),
			Tokens: []string{fmt.Sprintf("w%d", i), fmt.Sprintf("w%d", i+1), fmt.Sprintf("w%d", i+2)},
		})
	}
	if _, err := a.Learn(patterns); err != nil {
		b.Fatal(err)
	}
	return a
}

func BenchmarkAutomaton_Learn_Sample(b *testing.B) {
	patterns := testutil.SamplePatterns()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := automaton.New(automaton.Options[string]{})
		if _, err := a.Learn(patterns); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutomaton_Learn_1000(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		trainedAutomaton(b, 1000)
	}
}

func BenchmarkAutomaton_CompilePattern(b *testing.B) {
	pattern := "[the|a|an] [big|small|red|green] [cat|dog|bird] [sat|ran|flew]"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = automaton.CompilePattern(pattern)
	}
}

func BenchmarkAutomaton_Recognize(b *testing.B) {
	a := trainedAutomaton(b, 1000)
	tokens := strings.Fields(strings.Repeat("w10 w11 w12 new york noise w500 w501 w502 ", 100))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Recognize(tokens, nil, nil)
	}
}

func BenchmarkAutomaton_Recognize_Transform(b *testing.B) {
	a := trainedAutomaton(b, 1000)
	tokens := strings.Fields(strings.Repeat("W10 W11 W12 New York Noise ", 100))
	lower := func(t string, _ any, _ int) string { return strings.ToLower(t) }
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Recognize(tokens, lower, nil)
	}
}

func BenchmarkAutomaton_ExportJSON(b *testing.B) {
	a := trainedAutomaton(b, 1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.ExportJSON(); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAutomaton_ImportJSON(b *testing.B) {
	model, err := trainedAutomaton(b, 1000).ExportJSON()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := automaton.New(automaton.Options[string]{})
		if err := a.ImportJSON(model); err != nil {
			b.Fatal(err)
		}
	}
}
