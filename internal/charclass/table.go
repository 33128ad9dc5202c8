package charclass

// Category classifies a single input byte for the tokenizer
type Category uint8

const (
	// Constituent extends the current token
	Constituent Category = iota + 1
	// Replace is a constituent remapped to another byte; unmapped it breaks the token
	Replace
	// TokenDelimiter breaks the current token and emits nothing
	TokenDelimiter
	// SentenceDelimiter breaks the current token and emits itself as a token
	SentenceDelimiter
	// Atomic bytes always form a one-byte token
	Atomic
	// Ignored bytes are dropped and break the current token
	Ignored
)

func (c Category) String() string {
	switch c {
	case Constituent:
		return "constituent"
	case Replace:
		return "replace"
	case TokenDelimiter:
		return "token-delimiter"
	case SentenceDelimiter:
		return "sentence-delimiter"
	case Atomic:
		return "atomic"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Table maps every byte value to a Category
type Table struct {
	cats [256]Category
	repl [256]byte
}

// Default returns the byte table used for plain-text documents.
//
// Letters, digits, every byte with the high bit set (UTF-8 continuation and
// lead bytes) and & ' * + - / < > _ are constituents. The escapes \a \b \f \r \v
// and backslash are ignored, space, tab, newline and NUL delimit tokens and
// . ! ? ; end sentences. Everything else is atomic.
func Default() *Table {
	t := &Table{}
	for i := range t.cats {
		t.cats[i] = Atomic
	}

	for i := 0; i < 256; i++ {
		b := byte(i)
		if (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b&0x80 != 0 {
			t.cats[i] = Constituent
		}
	}
	for _, b := range []byte("&'*+-/<>_") {
		t.cats[b] = Constituent
	}

	for _, b := range []byte{'\a', '\b', '\f', '\r', '\v', '\\'} {
		t.cats[b] = Ignored
	}

	for _, b := range []byte{0, ' ', '\n', '\t'} {
		t.cats[b] = TokenDelimiter
	}
	for _, b := range []byte(".!?;") {
		t.cats[b] = SentenceDelimiter
	}
	return t
}

// Classify returns the category of b
func (t *Table) Classify(b byte) Category {
	return t.cats[b]
}

// Set assigns a category to b. Assigning Replace without a replacement makes b
// break tokens.
func (t *Table) Set(b byte, c Category) {
	t.cats[b] = c
	if c != Replace {
		t.repl[b] = 0
	}
}

// SetReplacement makes b a constituent that is written as r
func (t *Table) SetReplacement(b, r byte) {
	t.cats[b] = Replace
	t.repl[b] = r
}

// Replacement returns the byte b is remapped to, if any
func (t *Table) Replacement(b byte) (byte, bool) {
	r := t.repl[b]
	return r, r != 0
}

// IsSentenceDelimiter reports whether b ends a sentence
func (t *Table) IsSentenceDelimiter(b byte) bool {
	return t.cats[b] == SentenceDelimiter
}
