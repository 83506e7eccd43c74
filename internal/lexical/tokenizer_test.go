package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCamelCase(t *testing.T) {
	assert.Equal(t, []string{"get", "User", "Name"}, SplitCamelCase("getUserName"))
	assert.Equal(t, []string{"HTTP", "Client"}, SplitCamelCase("HTTPClient"))
	assert.Equal(t, []string{}, SplitCamelCase(""))
}

func TestSplitCodeToken(t *testing.T) {
	assert.Equal(t, []string{"max", "Batch", "Size"}, SplitCodeToken("max_BatchSize"))
}

func TestTokenizeCodeFiltersShortTokens(t *testing.T) {
	tokens := TokenizeCode("a getUserById x")
	assert.Contains(t, tokens, "get")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "by")
	assert.Contains(t, tokens, "id")
	assert.NotContains(t, tokens, "a")
	assert.NotContains(t, tokens, "x")
}

func TestTokenizeCodeLowercases(t *testing.T) {
	tokens := TokenizeCode("HTTPServer")
	assert.Equal(t, []string{"http", "server"}, tokens)
}

func TestFilterStopWords(t *testing.T) {
	stopWords := BuildStopWordMap([]string{"func", "return"})
	result := FilterStopWords([]string{"func", "search", "return", "index"}, stopWords)
	assert.Equal(t, []string{"search", "index"}, result)
}

func TestBuildStopWordMapLowercases(t *testing.T) {
	m := BuildStopWordMap([]string{"Func", "RETURN"})
	_, hasFunc := m["func"]
	_, hasReturn := m["return"]
	assert.True(t, hasFunc)
	assert.True(t, hasReturn)
}
