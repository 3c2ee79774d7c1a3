package zimage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultPayloadUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantKind PayloadKind
		wantURLs []string
	}{
		{"missing field", `{}`, PayloadAbsent, nil},
		{"null", `{"response":null}`, PayloadAbsent, nil},
		{"native list", `{"response":["http://x/a.png","http://x/b.png"]}`, PayloadList, []string{"http://x/a.png", "http://x/b.png"}},
		{"empty native list", `{"response":[]}`, PayloadList, []string{}},
		{"encoded list", `{"response":"[\"http://x/a.png\"]"}`, PayloadEncoded, []string{"http://x/a.png"}},
		{"encoded empty list", `{"response":"[]"}`, PayloadEncoded, []string{}},
		{"encoded garbage", `{"response":"not-json"}`, PayloadMalformed, nil},
		{"encoded object", `{"response":"{\"url\":\"x\"}"}`, PayloadMalformed, nil},
		{"list of numbers", `{"response":[1,2]}`, PayloadMalformed, nil},
		{"number", `{"response":42}`, PayloadAbsent, nil},
		{"boolean", `{"response":true}`, PayloadAbsent, nil},
		{"object", `{"response":{"url":"x"}}`, PayloadAbsent, nil},
		{"empty object", `{"response":{}}`, PayloadAbsent, nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var wrapper struct {
				Response ResultPayload `json:"response"`
			}
			require.NoError(t, json.Unmarshal([]byte(tc.body), &wrapper), "payload shape must never fail the outer decode")
			assert.Equal(t, tc.wantKind, wrapper.Response.Kind)
			assert.Equal(t, tc.wantURLs, wrapper.Response.URLs)
		})
	}
}

func TestResultPayloadDoesNotBreakSurroundingFields(t *testing.T) {
	t.Parallel()

	body := `{"code":200,"data":{"status":"SUCCESS","task_id":"t1","response":"not-json","error_message":null}}`

	var resp statusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.NotNil(t, resp.Data)
	assert.Equal(t, "t1", resp.Data.TaskID)
	assert.Equal(t, statusSuccess, resp.Data.Status)
	assert.Equal(t, PayloadMalformed, resp.Data.Response.Kind)
	assert.Nil(t, resp.Data.ErrorMessage)
}

func TestResultPayloadMarshal(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(ResultPayload{Kind: PayloadEncoded, URLs: []string{"http://x/a.png"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["http://x/a.png"]`, string(out))

	out, err = json.Marshal(ResultPayload{Kind: PayloadMalformed})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestPayloadKindString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "absent", PayloadAbsent.String())
	assert.Equal(t, "encoded", PayloadEncoded.String())
	assert.Equal(t, "unknown", PayloadKind(99).String())
}
