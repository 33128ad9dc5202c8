package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/repcheck/internal/corpus"
	"github.com/ppiankov/repcheck/internal/model"
	"github.com/ppiankov/repcheck/internal/repeats"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		in   string
		want Model
	}{
		{"1", Frequency},
		{"F", Frequency},
		{"4", InverseWordFrequency},
		{"FL/wf", InverseWordFrequency},
		{"7", EntropyLogLength},
		{"FL/wfP", CountReduced},
		{"9", Likelihood2005},
		{"2005", Likelihood2005},
		{"2005b", Likelihood2005b},
		{"10", Likelihood2005b},
	}
	for _, tt := range tests {
		got, err := ParseModel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"0", "11", "fl", ""} {
		_, err := ParseModel(bad)
		assert.ErrorIs(t, err, ErrUnknownModel, bad)
	}

	assert.Equal(t, "FLElogL", EntropyLogLength.String())
	assert.NotEmpty(t, Likelihood2005b.Description())
}

func TestModel_AcceptsEveryConfigName(t *testing.T) {
	for _, name := range model.WeightModelNames {
		_, err := ParseModel(name)
		assert.NoError(t, err, name)
	}
}

func TestModel_Weight(t *testing.T) {
	in := Input{Count: 3, RealCount: 2, Freqs: []int{2, 4}, Words: []bool{true, false}}
	env := Env{Tokens: 20, AverageTypeFrequency: 2.0, LogFac: NewLogFactorial()}

	entropy := -0.5*math.Log(0.5) - 0.25*math.Log(0.25)

	tests := []struct {
		model Model
		want  float64
	}{
		{Frequency, 3},
		{Length, 2},
		{FrequencyLength, 6},
		{InverseWordFrequency, 3 * 0.75},
		{FrequencyRatio, 1 * 3 * 2},
		{Entropy, 3 * entropy},
		{EntropyLogLength, 3 * entropy * math.Log(2)},
		{CountReduced, 2 * 0.75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.model.Weight(in, env), 1e-9, tt.model.String())
	}
}

func TestModel_Weight2005(t *testing.T) {
	in := Input{Count: 3, RealCount: 2, Freqs: []int{2, 4}, Words: []bool{true, true}}
	env := Env{Tokens: 20, LogFac: NewLogFactorial()}

	logP := -math.Log(2) +
		math.Log(19) + math.Log(17) +
		2*(math.Log(2)+math.Log(4)-2*math.Log(20)) +
		16*math.Log(1-8.0/400)
	assert.InDelta(t, -logP, Likelihood2005.Weight(in, env), 1e-9)
}

func TestModel_Weight2005b(t *testing.T) {
	in := Input{Count: 3, RealCount: 2, Freqs: []int{2, 4}, Words: []bool{true, true}}
	env := Env{Tokens: 20, LogFac: NewLogFactorial()}

	sum := 0.0
	// first occurrence: both words still have their full frequency
	sum += math.Log(19) + math.Log(2) + math.Log(4)
	// second occurrence: one of each word already used
	sum += math.Log(17) + math.Log(1) + math.Log(3)
	sum -= 4 * math.Log(20)
	sum -= math.Log(2)

	assert.InDelta(t, -sum, Likelihood2005b.Weight(in, env), 1e-9)
}

func TestModel_Weight2005bIntegerProbability(t *testing.T) {
	in := Input{Count: 3, RealCount: 3, Freqs: []int{3, 3, 3}, Words: []bool{true, true, true}}
	env := Env{Tokens: 12, LogFac: NewLogFactorial()}

	// (f-j)/n truncates to 0, so no log(1-p) term contributes
	assert.InDelta(t, 13.145851, Likelihood2005b.Weight(in, env), 1e-6)
	assert.NotEqual(t, Likelihood2005.Weight(in, env), Likelihood2005b.Weight(in, env))
}

func TestLogFactorial(t *testing.T) {
	lf := NewLogFactorial()
	assert.Equal(t, 0.0, lf.At(0))
	assert.Equal(t, 0.0, lf.At(1))
	assert.InDelta(t, math.Log(120), lf.At(5), 1e-9)

	want, _ := math.Lgamma(1501)
	assert.InDelta(t, want, lf.At(1500), 1e-6)
}

func TestEngine_RankStable(t *testing.T) {
	phrases := []repeats.Phrase{{Weight: 1}, {Weight: 3}, {Weight: 1}, {Weight: 3}}
	e := NewEngine(Frequency, nil)

	order := e.Rank(phrases, []int{0, 1, 2, 3})
	assert.Equal(t, []int{1, 3, 0, 2}, order)

	order = e.Rank(phrases, []int{3, 2, 1, 0})
	assert.Equal(t, []int{3, 1, 2, 0}, order)
}

func TestEngine_Weigh(t *testing.T) {
	c, err := corpus.Tokenize([]corpus.Source{{Name: "a", Data: []byte("a b . a b .")}}, nil)
	require.NoError(t, err)
	corpus.BuildTypes(c, nil, false)

	phrases := []repeats.Phrase{{Start: 0, Length: 2, Count: 2, RealCount: 2}}
	NewEngine(InverseWordFrequency, nil).Weigh(c, phrases)
	assert.InDelta(t, 2*(0.5+0.5), phrases[0].Weight, 1e-9)
}

func TestAggregate(t *testing.T) {
	a := Aggregate([]repeats.Phrase{
		{Length: 3, RealCount: 3},
		{Length: 2, RealCount: 0},
	}, 0)
	assert.Equal(t, 9, a.Fiducial)
	assert.Equal(t, 3, a.Reduced)
	assert.InDelta(t, 3.0, a.Repetitiveness, 1e-9)

	a = Aggregate(nil, 3)
	assert.Equal(t, 3, a.Fiducial)
	assert.InDelta(t, 1.0, a.Repetitiveness, 1e-9)

	a = Aggregate(nil, 0)
	assert.InDelta(t, 1.0, a.Repetitiveness, 1e-9)
}

func TestAlikeness(t *testing.T) {
	assert.InDelta(t, 0.75, Alikeness(corpus.FileData{Unmatched: 1}, 4), 1e-9)
	assert.Equal(t, 0.0, Alikeness(corpus.FileData{}, 0))
}

func TestAccumulate(t *testing.T) {
	c := &corpus.Corpus{Tokens: make([]corpus.Token, 14), Separators: 3}
	phrases := []repeats.Phrase{
		{Length: 2, RealCount: 2},
		{Length: 3, RealCount: 2},
		{Length: 4, RealCount: 0},
	}
	order := []int{1, 0, 2}
	Accumulate(c, phrases, order, 1)

	assert.Equal(t, 4, phrases[1].WorseLength)
	assert.Equal(t, 0, phrases[0].WorseLength)
	assert.InDelta(t, 11.0/8.0, phrases[1].AccumulatedRepetitiveness, 1e-9)
	assert.InDelta(t, 11.0/6.0, phrases[0].AccumulatedRepetitiveness, 1e-9)
	assert.Equal(t, 0.0, phrases[2].AccumulatedRepetitiveness)
}

func TestFit(t *testing.T) {
	phrases := []repeats.Phrase{
		{Length: 5, RealCount: 2},
		{Length: 2, RealCount: 4}, // too short to count
		{Length: 4, RealCount: 2},
		{Length: 3, RealCount: 2},
	}
	reg := Fit(phrases, []int{0, 1, 2, 3})
	require.True(t, reg.Defined)
	assert.Equal(t, 3, reg.Points)
	assert.Less(t, reg.Slope, 0.0)
	assert.InDelta(t, 5.0, reg.Intercept+reg.Slope*math.Log(1), 0.2)
	assert.Equal(t, RegressionFormula, reg.Formula)

	reg = Fit(phrases[:1], []int{0})
	assert.False(t, reg.Defined)
}

func TestEngine_Signals(t *testing.T) {
	rep := &model.Report{
		Repetitiveness: 2.5,
		Files: []model.FileStats{
			{Name: "a", Tokens: 10, Unmatched: 1, Alikeness: 0.9},
			{Name: "b", Tokens: 10, Unmatched: 8, Alikeness: 0.2},
		},
		Phrases: []model.PhraseRow{{Text: "the cat sat", Length: 3, RealCount: 3}},
		Diagnostics: model.Diagnostics{
			Tokens:             20,
			SentenceSeparators: 2,
		},
	}

	signals := NewEngine(Likelihood2005, nil).Signals(rep)
	types := make(map[model.SignalType]model.SignalSeverity)
	for _, s := range signals {
		types[s.Type] = s.Severity
		assert.Contains(t, s.Data, "formula")
	}
	assert.Equal(t, model.SeverityCritical, types[model.SignalRepetitiveness])
	assert.Equal(t, model.SeverityCritical, types[model.SignalDominantPhrase])
	assert.Equal(t, model.SeverityWarning, types[model.SignalLowAlikeness])
	_, ok := types[model.SignalRankLength]
	assert.False(t, ok)
}
