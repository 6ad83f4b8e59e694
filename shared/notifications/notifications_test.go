package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", EscapeMarkdown("plain text"))
	assert.Equal(t, "a\\_b\\*c\\`d\\[e", EscapeMarkdown("a_b*c`d[e"))
}
