package requests

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	idPrefix    = "req_"
	idSuffixLen = 9
)

// 36^9, the number of distinct suffixes
const idSuffixSpace = 101559956668416

// NewID returns an id of the form req_<unix millis>_<9 base-36 chars>, the
// suffix drawn from a random UUID.
func NewID(now time.Time) string {
	u := uuid.New()
	var n uint64
	for _, b := range u[:8] {
		n = n<<8 | uint64(b)
	}
	suffix := strconv.FormatUint(n%idSuffixSpace, 36)
	if len(suffix) < idSuffixLen {
		suffix = strings.Repeat("0", idSuffixLen-len(suffix)) + suffix
	}
	return idPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
