package http1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethodKnownVerbs(t *testing.T) {
	cases := map[string]Method{
		"GET":     MethodGET,
		"POST":    MethodPOST,
		"PUT":     MethodPUT,
		"DELETE":  MethodDELETE,
		"PATCH":   MethodPATCH,
		"HEAD":    MethodHEAD,
		"OPTIONS": MethodOPTIONS,
		"CONNECT": MethodCONNECT,
		"TRACE":   MethodTRACE,
	}
	for raw, want := range cases {
		got := ParseMethod([]byte(raw))
		assert.Equal(t, want, got, raw)
		assert.Equal(t, raw, got.String())
	}
}

func TestParseMethodUnknown(t *testing.T) {
	assert.Equal(t, MethodUnknown, ParseMethod([]byte("FOOBAR")))
	assert.Equal(t, MethodUnknown, ParseMethod([]byte("")))
}

func TestMethodSkipsBody(t *testing.T) {
	assert.True(t, MethodGET.SkipsBody())
	assert.True(t, MethodHEAD.SkipsBody())
	assert.True(t, MethodTRACE.SkipsBody())
	assert.False(t, MethodPOST.SkipsBody())
	assert.False(t, MethodPUT.SkipsBody())
}
