package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                                  "",
		"short":                             "****",
		"eyJhbGciOiJIUzI1NiJ9.payload.sig9": "****sig9",
		"data:image/png;base64,AAAABBBB":    "data:image/png;base64,****",
		"data:nocomma":                      "****",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskSecret(in), in)
	}
}

func TestMaskKeysNested(t *testing.T) {
	out := MaskKeys(map[string]any{
		"customer_name": "Acme Steel",
		"Signature":     "data:image/png;base64,AAAA",
		"approval": map[string]any{
			"token": "abcdefghijklmnop",
			"by":    "Jane",
		},
		"items": []any{map[string]any{"token": 12345}},
		" ":     "dropped",
	}, "signature", "token")

	assert.Equal(t, "Acme Steel", out["customer_name"])
	assert.Equal(t, "data:image/png;base64,****", out["Signature"])
	assert.Equal(t, map[string]any{"token": "****mnop", "by": "Jane"}, out["approval"])
	assert.Equal(t, []any{map[string]any{"token": "****"}}, out["items"])
	assert.NotContains(t, out, " ")
	assert.NotNil(t, MaskKeys(nil))
}
