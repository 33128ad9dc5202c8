package score

import "math"

const logFactorialSize = 1000

// LogFactorial caches ln(n!) and grows on demand. It is not safe for
// concurrent use; each analysis owns one.
type LogFactorial struct {
	table []float64
}

// NewLogFactorial precomputes ln(0!) .. ln(999!)
func NewLogFactorial() *LogFactorial {
	l := &LogFactorial{table: make([]float64, 1, logFactorialSize)}
	l.grow(logFactorialSize - 1)
	return l
}

func (l *LogFactorial) grow(n int) {
	for i := len(l.table); i <= n; i++ {
		l.table = append(l.table, l.table[i-1]+math.Log(float64(i)))
	}
}

// At returns ln(n!). Negative n yields 0.
func (l *LogFactorial) At(n int) float64 {
	if n <= 0 {
		return 0
	}
	if n >= len(l.table) {
		l.grow(n)
	}
	return l.table[n]
}
