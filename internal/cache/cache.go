package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Cache holds extracted document text so repeated analyses in one process
// (batch and watch runs) skip re-reading and re-extracting unchanged inputs.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, text []byte)
	Delete(key string)
	Stats() Stats
}

// Stats counts cache lookups
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// FileKey identifies a local file by path, size and modification time, so
// an edited file misses the cache.
func FileKey(path string, size int64, modTime time.Time) string {
	return key("file", path, strconv.FormatInt(size, 10), strconv.FormatInt(modTime.UnixNano(), 10))
}

// URLKey identifies a fetched document
func URLKey(url string) string {
	return key("url", url)
}

func key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "repcheck:v1:" + parts[0] + ":" + hex.EncodeToString(h.Sum(nil))
}
