package repeats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/repcheck/internal/corpus"
)

func build(t *testing.T, docs ...string) *corpus.Corpus {
	t.Helper()
	sources := make([]corpus.Source, len(docs))
	for i, d := range docs {
		sources[i] = corpus.Source{Name: string(rune('a' + i)), Data: []byte(d)}
	}
	c, err := corpus.Tokenize(sources, nil)
	require.NoError(t, err)
	corpus.BuildTypes(c, nil, false)
	return c
}

func find(t *testing.T, c *corpus.Corpus, fuzziness, minLen, maxLen int, overlap bool) []Phrase {
	t.Helper()
	policy, err := NewPolicy(fuzziness)
	require.NoError(t, err)
	return NewFinder(c, Options{
		MinLength:     minLen,
		MaxLength:     maxLen,
		OverlapSearch: overlap,
		Policy:        policy,
	}, nil).Find()
}

func phraseTexts(c *corpus.Corpus, phrases []Phrase) []string {
	out := make([]string, len(phrases))
	for i := range phrases {
		out[i] = phrases[i].Text(c, " ")
	}
	return out
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		fuzziness int
		mode      Mode
		label     string
		max       float64
	}{
		{100, SentenceExact, "sentence", 0},
		{0, Unrestricted, "no limit", 0},
		{50, Bounded, "50%", 1},
		{25, Bounded, "25%", 3},
	}
	for _, tt := range tests {
		p, err := NewPolicy(tt.fuzziness)
		require.NoError(t, err)
		assert.Equal(t, tt.mode, p.Mode)
		assert.Equal(t, tt.label, p.Label())
		assert.InDelta(t, tt.max, p.MaxUncovered, 1e-9)
	}

	_, err := NewPolicy(101)
	assert.ErrorIs(t, err, ErrFuzziness)
	_, err = NewPolicy(-1)
	assert.ErrorIs(t, err, ErrFuzziness)
}

func TestPolicy_GoodSizeBounded(t *testing.T) {
	// tokens: a b c d e f .
	c := build(t, "a b c d e f .")
	p, err := NewPolicy(50)
	require.NoError(t, err)
	first, end := c.FileRange(0)

	// length 2 allows int(1*2.5) = 2 uncovered tokens
	assert.False(t, p.GoodSize(c, 0, 2, first, end))
	assert.True(t, p.GoodSize(c, 1, 4, first, end))
	assert.True(t, p.GoodSize(c, 2, 4, first, end))
	assert.False(t, p.GoodSize(c, 2, 1, first, end))
}

func TestPolicy_GoodSizeSentence(t *testing.T) {
	c := build(t, "a b . a b c .")
	p, err := NewPolicy(100)
	require.NoError(t, err)
	first, end := c.FileRange(0)

	assert.True(t, p.GoodSize(c, 0, 2, first, end))
	assert.False(t, p.GoodSize(c, 3, 2, first, end))
	assert.True(t, p.GoodSize(c, 3, 3, first, end))
}

func TestFinder_CrossFileRepeat(t *testing.T) {
	c := build(t, "the cat sat . the cat sat .", "the cat sat .")
	phrases := find(t, c, 0, 2, 0, false)

	require.Len(t, phrases, 1)
	assert.Equal(t, "the cat sat", phrases[0].Text(c, " "))

	k := NewCounter(c, Policy{}, phrases, nil)
	assert.Equal(t, 3, k.CountRaw())
	assert.Equal(t, 3, phrases[0].Count)

	total, err := k.CountCrossDocument(identity(len(phrases)))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 3, phrases[0].RealCount)
	assert.Equal(t, 0, k.Unmatched())
}

func TestFinder_BoundedFuzziness(t *testing.T) {
	// "a b" repeats with one uncovered word on each side of both occurrences
	const text = "x a b y . p a b q ."

	// 75%: budget int((100/75 - 1) * 2.5) = 0, so the lone words reject it
	c := build(t, text)
	assert.Empty(t, find(t, c, 75, 2, 0, false))

	// 50%: budget int(1 * 2.5) = 2 covers one word before and one after
	c = build(t, text)
	phrases := find(t, c, 50, 2, 0, false)
	require.Len(t, phrases, 1)
	assert.Equal(t, "a b", phrases[0].Text(c, " "))

	policy, err := NewPolicy(50)
	require.NoError(t, err)
	k := NewCounter(c, policy, phrases, nil)
	assert.Equal(t, 2, k.CountRaw())
	assert.Equal(t, 2, k.CountSingle(identity(len(phrases))))
	assert.Equal(t, 2, phrases[0].RealCount)
	assert.Equal(t, 4, k.Unmatched())
}

func TestFinder_BoundedFuzzinessLongerSentence(t *testing.T) {
	// at 50% "a b" may leave two words uncovered but always has "u v w" beside
	// it; "u v w" may leave three and has only "a b"
	c := build(t, "a b u v w . u v w a b .")
	phrases := find(t, c, 50, 2, 0, false)
	assert.Equal(t, []string{"u v w"}, phraseTexts(c, phrases))
}

func TestFinder_NoRepeat(t *testing.T) {
	c := build(t, "the cat sat .")
	assert.Empty(t, find(t, c, 0, 2, 0, false))
}

func TestFinder_UniquePivot(t *testing.T) {
	c := build(t, "alpha beta gamma unique alpha beta gamma .")
	phrases := find(t, c, 0, 2, 0, false)

	require.Len(t, phrases, 1)
	assert.Equal(t, "alpha beta gamma", phrases[0].Text(c, " "))

	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()
	assert.Equal(t, 2, k.CountSingle(identity(1)))
	assert.Equal(t, 2, phrases[0].RealCount)
	// only the pivot stays free
	assert.Equal(t, 1, k.Unmatched())
}

func TestFinder_FixedLength(t *testing.T) {
	c := build(t, "one two three . one two three .")
	phrases := find(t, c, 0, 2, 2, false)

	require.NotEmpty(t, phrases)
	for _, p := range phrases {
		assert.Equal(t, 2, p.Length)
	}
	assert.Equal(t, []string{"one two"}, phraseTexts(c, phrases))
}

func TestFinder_OverlapSearch(t *testing.T) {
	c := build(t, "one two three . one two three .")
	phrases := find(t, c, 0, 2, 0, true)

	assert.ElementsMatch(t, []string{"one two three", "one two", "two three"}, phraseTexts(c, phrases))
}

func TestFinder_WholeSentenceUnlimited(t *testing.T) {
	c := build(t, "the quick brown fox . the quick brown fox .")
	phrases := find(t, c, 0, 2, 0, false)

	require.Len(t, phrases, 1)
	assert.Equal(t, 4, phrases[0].Length)
}

func TestFinder_SentenceExact(t *testing.T) {
	c := build(t, "red green blue . red green blue violet . red green blue .")
	phrases := find(t, c, 100, 2, 0, false)

	require.Len(t, phrases, 1)
	assert.Equal(t, "red green blue", phrases[0].Text(c, " "))

	policy, err := NewPolicy(100)
	require.NoError(t, err)
	k := NewCounter(c, policy, phrases, nil)
	assert.Equal(t, 2, k.CountRaw())
}

func TestFinder_WordBoundaries(t *testing.T) {
	// a phrase may not start on punctuation inside a sentence
	c := build(t, "x , big dog . y , big dog .")
	phrases := find(t, c, 0, 2, 0, false)

	assert.Equal(t, []string{"big dog"}, phraseTexts(c, phrases))
}

func TestCounter_CrossDocumentAbsent(t *testing.T) {
	c := build(t, "red green blue .", "yellow purple orange .", "red green blue .")
	phrases := find(t, c, 0, 2, 0, false)
	require.Len(t, phrases, 1)

	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()
	assert.Equal(t, 2, phrases[0].Count)

	total, err := k.CountCrossDocument(identity(1))
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, phrases[0].RealCount)
	for i := range c.Tokens {
		assert.True(t, c.Tokens[i].Mark.Free(), "token %d", i)
	}
	assert.Equal(t, 9, k.Unmatched())
}

func TestCounter_OverlapDemotion(t *testing.T) {
	// "a b c" claims two occurrences, leaving "b c d" a single free one
	c := build(t, "a b c d . a b c . b c d .")
	phrases := find(t, c, 0, 2, 0, true)
	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()

	order := identity(len(phrases))
	// longest first
	for i := range order {
		for j := i + 1; j < len(order); j++ {
			if phrases[order[j]].Length > phrases[order[i]].Length {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	k.CountSingle(order)

	for _, p := range phrases {
		assert.True(t, p.RealCount == 0 || (p.RealCount >= 2 && p.RealCount <= p.Count),
			"%s real %d count %d", p.Text(c, " "), p.RealCount, p.Count)
	}
}

func TestCounter_Idempotent(t *testing.T) {
	c := build(t, "the cat sat on the mat . the cat sat on the mat . the cat ran .")
	phrases := find(t, c, 0, 2, 0, false)
	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()
	order := identity(len(phrases))

	first := k.CountSingle(order)
	firstUnmatched := k.Unmatched()
	second := k.CountSingle(order)

	assert.Equal(t, first, second)
	assert.Equal(t, firstUnmatched, k.Unmatched())
}

func TestCounter_Remark(t *testing.T) {
	c := build(t, "the cat sat . the cat sat .")
	phrases := find(t, c, 0, 2, 0, false)
	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()
	k.CountSingle(identity(len(phrases)))
	c.ResetMarks()

	k.Remark(identity(len(phrases)))
	assert.Equal(t, corpus.MarkBegin, c.Tokens[0].Mark)
	assert.Equal(t, corpus.MarkMiddle, c.Tokens[1].Mark)
	assert.Equal(t, corpus.MarkMiddle|corpus.MarkEnd, c.Tokens[2].Mark)
	assert.Equal(t, 2, phrases[0].RealCount)
	assert.Equal(t, 0, k.Unmatched())
}

func TestCounter_RollbackInconsistency(t *testing.T) {
	c := build(t, "red green blue .", "yellow purple orange .", "red green blue .")
	phrases := find(t, c, 0, 2, 0, false)
	k := NewCounter(c, Policy{}, phrases, nil)
	k.CountRaw()

	p := &phrases[0]
	k.claim(p, 0, corpus.MarkTentative)
	c.Tokens[1].Mark = corpus.MarkBegin
	assert.False(t, k.release(p, 0, corpus.MarkTentative))
	assert.False(t, c.Tokens[0].Mark.Free())
}
