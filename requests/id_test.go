package requests

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^req_\d+_[0-9a-z]{9}$`)

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1709294400123)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID(now)
		assert.Regexp(t, idPattern, id)
		assert.Contains(t, id, "_1709294400123_")
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
