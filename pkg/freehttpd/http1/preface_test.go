package http1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesH2Preface(t *testing.T) {
	assert.True(t, MatchesH2Preface([]byte(H2Preface)))
	assert.False(t, MatchesH2Preface([]byte("GET / HTTP/1.1\r\n\r\n")))
}

func TestIsH2PrefacePrefix(t *testing.T) {
	assert.True(t, IsH2PrefacePrefix([]byte("PRI * HTTP")))
	assert.False(t, IsH2PrefacePrefix([]byte("GET /")))
	assert.False(t, IsH2PrefacePrefix([]byte(H2Preface+"extra")))
}
