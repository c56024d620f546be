package gateway

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMessagePrefersErrorsMap(t *testing.T) {
	body := []byte(`{"message":"Validation failed","errors":{"username":"Username is required","email":"Email is invalid"}}`)
	got := extractMessage(body, "fallback")
	assert.Equal(t, "Email is invalid. Username is required", got)
}

func TestExtractMessageSkipsBlankErrorValues(t *testing.T) {
	body := []byte(`{"errors":{"a":"  ","b":""},"message":"Bad request"}`)
	assert.Equal(t, "Bad request", extractMessage(body, "fallback"))
}

func TestExtractMessageFallsBackToMessage(t *testing.T) {
	body := []byte(`{"message":"Invalid username or password"}`)
	assert.Equal(t, "Invalid username or password", extractMessage(body, "fallback"))
}

func TestExtractMessageRendersNonStringValues(t *testing.T) {
	body := []byte(`{"message":{"code":42}}`)
	assert.Equal(t, `{"code":42}`, extractMessage(body, "fallback"))
}

func TestExtractMessageFallback(t *testing.T) {
	assert.Equal(t, "fallback", extractMessage([]byte(`{}`), "fallback"))
	assert.Equal(t, "fallback", extractMessage([]byte(`not json`), "fallback"))
	assert.Equal(t, "fallback", extractMessage(nil, "fallback"))
}

func TestExtractMessageDeterministic(t *testing.T) {
	body := []byte(`{"errors":{"z":"last","a":"first","m":"middle"}}`)
	want := "first. middle. last"
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, extractMessage(body, "fallback"))
	}
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNetwork(&NetworkError{Err: errors.New("refused")}))
	assert.False(t, IsNetwork(&ServerError{Status: 500, Message: "boom"}))
	assert.True(t, IsNotFound(&NotFoundError{Message: "gone"}))
	assert.False(t, IsNotFound(&AuthError{Message: "nope"}))
}
