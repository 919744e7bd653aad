package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/filings-tracker/constants"
	"github.com/joseph-ayodele/filings-tracker/internal/common"
)

func fineSchema(t *testing.T) (Request, string) {
	t.Helper()
	return Request{Stage: constants.StageFineAmount, FileNames: []string{"a.pdf", "b.pdf", "c.pdf"}}, "response"
}

func TestParseResults(t *testing.T) {
	req, key := fineSchema(t)
	schema, err := CompileSchema(BuildResultsJSONSchema(key))
	require.NoError(t, err)

	raw := []byte(`{"results":[
		{"fileName":"a.pdf","response":"新臺幣24萬元"},
		{"fileName":"b.pdf","response":""},
		{"fileName":"c.pdf","response":null},
		{"fileName":"a.pdf","response":"ignored"}
	]}`)
	res, err := ParseResults(req, key, schema, raw)
	require.NoError(t, err)

	v, ok := res.Lookup("a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "新臺幣24萬元", v)

	v, ok = res.Lookup("b.pdf")
	assert.True(t, ok, "explicit empty string is a value")
	assert.Equal(t, "", v)

	_, ok = res.Lookup("c.pdf")
	assert.False(t, ok, "null is absence")
	assert.Equal(t, constants.StageFineAmount, res.Stage)
}

func TestParseResultsRejectsMalformed(t *testing.T) {
	req, key := fineSchema(t)
	schema, err := CompileSchema(BuildResultsJSONSchema(key))
	require.NoError(t, err)

	cases := map[string]string{
		"not json":         `{"results":`,
		"missing results":  `{"items":[]}`,
		"results not list": `{"results":{"a.pdf":"1"}}`,
		"numeric value":    `{"results":[{"fileName":"a.pdf","response":12}]}`,
		"missing fileName": `{"results":[{"response":"1"}]}`,
		"unrequested file": `{"results":[{"fileName":"z.pdf","response":"1"}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResults(req, key, schema, []byte(raw))
			assert.ErrorIs(t, err, common.ErrMalformedResponse)
		})
	}
}
