package corpus

import (
	"errors"
	"fmt"

	"github.com/ppiankov/repcheck/internal/charclass"
)

// ErrSizeMismatch is returned when the materializing pass disagrees with the sizing pass
var ErrSizeMismatch = errors.New("tokenizer passes disagree")

// sink receives the transitions of the byte state machine
type sink interface {
	open(pos int64)
	put(b byte)
	close(pos int64)
	single(pos int64, b byte)
}

// walk runs the byte state machine over data. Both tokenizer passes share it.
func walk(data []byte, table *charclass.Table, s sink) {
	pending := false
	for i, b := range data {
		pos := int64(i)
		switch table.Classify(b) {
		case charclass.Constituent:
			if !pending {
				s.open(pos)
				pending = true
			}
			s.put(b)
		case charclass.Replace:
			if r, ok := table.Replacement(b); ok {
				if !pending {
					s.open(pos)
					pending = true
				}
				s.put(r)
			} else if pending {
				s.close(pos)
				pending = false
			}
		case charclass.SentenceDelimiter, charclass.Atomic:
			if pending {
				s.close(pos)
				pending = false
			}
			s.single(pos, b)
		default:
			if pending {
				s.close(pos)
				pending = false
			}
		}
	}
	if pending {
		s.close(int64(len(data)))
	}
}

type sizer struct {
	tokens int
	bytes  int
}

func (s *sizer) open(int64)         {}
func (s *sizer) put(byte)           { s.bytes++ }
func (s *sizer) close(int64)        { s.tokens++ }
func (s *sizer) single(int64, byte) { s.tokens++; s.bytes++ }

type writer struct {
	c     *Corpus
	start int64
	off   int
}

func (w *writer) open(pos int64) {
	w.start = pos
	w.off = len(w.c.Text)
}

func (w *writer) put(b byte) { w.c.Text = append(w.c.Text, b) }

func (w *writer) close(pos int64) {
	w.c.Tokens = append(w.c.Tokens, Token{
		Start:   w.start,
		End:     pos,
		textOff: int32(w.off),
		textLen: int32(len(w.c.Text) - w.off),
	})
}

func (w *writer) single(pos int64, b byte) {
	off := len(w.c.Text)
	w.c.Text = append(w.c.Text, b)
	w.c.Tokens = append(w.c.Tokens, Token{Start: pos, End: pos + 1, textOff: int32(off), textLen: 1})
}

// Tokenize splits the sources into tokens. The first pass sizes the buffers,
// the second fills them. Types are not assigned; call BuildTypes next.
func Tokenize(sources []Source, table *charclass.Table) (*Corpus, error) {
	if table == nil {
		table = charclass.Default()
	}

	var size sizer
	for _, src := range sources {
		walk(src.Data, table, &size)
	}

	c := &Corpus{
		Sources: sources,
		Tokens:  make([]Token, 0, size.tokens),
		Text:    make([]byte, 0, size.bytes),
		Files:   make([]FileData, 0, len(sources)+1),
	}
	w := &writer{c: c}
	for _, src := range sources {
		c.Files = append(c.Files, FileData{Name: src.Name, First: len(c.Tokens)})
		walk(src.Data, table, w)
	}
	c.Files = append(c.Files, FileData{First: len(c.Tokens)})

	if len(c.Tokens) != size.tokens || len(c.Text) != size.bytes {
		return nil, fmt.Errorf("%w: sized %d tokens/%d bytes, wrote %d/%d",
			ErrSizeMismatch, size.tokens, size.bytes, len(c.Tokens), len(c.Text))
	}
	return c, nil
}
