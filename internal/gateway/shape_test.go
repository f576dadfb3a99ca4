package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDig(t *testing.T) {
	raw := json.RawMessage(`{"data":{"task_info":{"tasks":[1,2]},"empty":null},"list":[{"a":1}]}`)

	value, ok := Dig(raw, "data", "task_info", "tasks")
	assert.True(t, ok)
	assert.JSONEq(t, `[1,2]`, string(value))
	assert.True(t, IsArray(value))

	_, ok = Dig(raw, "data", "empty")
	assert.False(t, ok)

	_, ok = Dig(raw, "list", "a")
	assert.False(t, ok)

	_, ok = Dig(raw, "missing")
	assert.False(t, ok)

	_, ok = Dig(json.RawMessage(`not json`), "data")
	assert.False(t, ok)

	root, ok := Dig(raw)
	assert.True(t, ok)
	assert.True(t, IsObject(root))
}

func TestExtractMessage(t *testing.T) {
	cases := map[string]string{
		`{"message":"bad comment"}`:            "bad comment",
		`{"msg":"short"}`:                      "short",
		`{"error":"boom"}`:                     "boom",
		`{"error":{"message":"nested"}}`:       "nested",
		`{"detail":"not found"}`:               "not found",
		`{"data":{"message":"  padded  "}}`:    "padded",
		`{"message":""}`:                       "",
		`[]`:                                   "",
		``:                                     "",
		`{"success":false,"data":{"error":"x"}}`: "x",
	}
	for body, expected := range cases {
		assert.Equal(t, expected, ExtractMessage([]byte(body)), body)
	}
}
