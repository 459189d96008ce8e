package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "LLM key", body: `{"LLM":"hello"}`, want: "hello"},
		{name: "first string field", body: `{"foo":"bar"}`, want: "bar"},
		{name: "empty object", body: `{}`, want: "{}"},
		{name: "empty array", body: `[]`, want: "[]"},
		{name: "plain text body", body: "backend says hi", want: "backend says hi"},
		{name: "JSON string", body: `"quoted answer"`, want: "quoted answer"},
		{name: "known key priority", body: `{"answer":"second","response":"first"}`, want: "first"},
		{name: "falsy known key skipped", body: `{"LLM":"","message":"fallback"}`, want: "fallback"},
		{name: "zero known key skipped", body: `{"result":0,"note":"text"}`, want: "text"},
		{name: "numeric known key encoded", body: `{"result":42}`, want: "42"},
		{name: "object known key encoded", body: `{"result":{"rows": 3}}`, want: `{"rows":3}`},
		{name: "blank strings skipped", body: `{"a":"   ","b":7,"c":"value"}`, want: "value"},
		{name: "document order", body: `{"z":"last","a":"first"}`, want: "last"},
		{name: "index keys first", body: `{"note":"a","1":"b"}`, want: "b"},
		{name: "index keys ascending", body: `{"b":"x","10":"ten","2":"two"}`, want: "two"},
		{name: "non-canonical index", body: `{"01":"lead","x":"y"}`, want: "lead"},
		{name: "repeated key keeps first position", body: `{"a":"first","b":"other","a":"  "}`, want: "other"},
		{name: "known key object ordered", body: `{"result":{"z":1,"0":2}}`, want: `{"0":2,"z":1}`},
		{name: "indented in property order", body: `{"b":1,"2":true}`, want: "{\n  \"2\": true,\n  \"b\": 1\n}"},
		{name: "array elements", body: `[1, "", "item"]`, want: "item"},
		{name: "no strings indented", body: `{"count":1,"ok":false}`, want: "{\n  \"count\": 1,\n  \"ok\": false\n}"},
		{name: "null", body: `null`, want: UnprocessableContent},
		{name: "number", body: `12`, want: UnprocessableContent},
		{name: "boolean", body: `true`, want: UnprocessableContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContent([]byte(tt.body)))
		})
	}
}

func TestParseAnswer(t *testing.T) {
	ans := ParseAnswer([]byte(`{"LLM":"5 projects delayed","message_id":"m-1","sql_query":"SELECT 1","execution_time":0.25,"affected_rows":5}`))

	assert.Equal(t, "5 projects delayed", ans.Content)
	assert.Equal(t, "m-1", ans.MessageID)
	assert.Equal(t, "SELECT 1", ans.SQLQuery)
	assert.Equal(t, 0.25, ans.ExecutionTime)
	assert.Equal(t, float64(5), ans.AffectedRows)
	assert.JSONEq(t, `{"LLM":"5 projects delayed","message_id":"m-1","sql_query":"SELECT 1","execution_time":0.25,"affected_rows":5}`, string(ans.Raw))
}

func TestParseAnswer_PlainText(t *testing.T) {
	ans := ParseAnswer([]byte("just text"))

	assert.Equal(t, "just text", ans.Content)
	assert.Empty(t, ans.MessageID)
	assert.Nil(t, ans.SQLQuery)
	assert.Equal(t, `"just text"`, string(ans.Raw))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(Normalize([]byte(" {\"a\":1}\n"))))
	assert.Equal(t, `"<html>oops</html>"`, string(Normalize([]byte("<html>oops</html>"))))
	assert.Equal(t, `""`, string(Normalize(nil)))
}
