package corpus

import (
	"bytes"

	"github.com/ppiankov/repcheck/internal/charclass"
)

// MorphemeName is the source name of the synthetic letter corpus
const MorphemeName = "morphemes"

// MorphemeSource rewrites every type of c as one sentence of its letters,
// framed by ^ and $, so repeated letter sequences inside words can be found:
//
//	^ c a t $ .
func MorphemeSource(c *Corpus) Source {
	var buf bytes.Buffer
	for t := range c.Types {
		buf.WriteString("^ ")
		for _, r := range charclass.Runes(c.Types[t].Text) {
			buf.WriteString(r)
			buf.WriteByte(' ')
		}
		buf.WriteString("$ .\n")
	}
	return Source{Name: MorphemeName, Data: buf.Bytes()}
}
