package ulid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	id := Generate()
	assert.False(t, id.IsZero())
	assert.Empty(t, id.Prefix())
	assert.Len(t, id.String(), 26)
}

func TestGenerateWithPrefix(t *testing.T) {
	id := GenerateWithPrefix(PrefixEvent)
	assert.Equal(t, PrefixEvent, id.Prefix())
	assert.True(t, len(id.String()) > 26)
	assert.Contains(t, id.String(), PrefixEvent+PrefixSeparator)
}

func TestParseRoundTrip(t *testing.T) {
	original := GenerateWithPrefix(PrefixRequest)
	parsed, err := Parse(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
	assert.Equal(t, PrefixRequest, parsed.Prefix())
}

func TestParsePlain(t *testing.T) {
	original := Generate()
	parsed, err := Parse(original.String())
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
	assert.Empty(t, parsed.Prefix())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-ulid")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate(Generate().String()))
	assert.True(t, Validate(EventID()))
	assert.False(t, Validate("garbage"))
	assert.False(t, Validate(""))
}

func TestMonotonicOrdering(t *testing.T) {
	first := Generate()
	second := Generate()
	assert.True(t, first.RawString() < second.RawString())
}

func TestTimeComponent(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := Generate()
	after := time.Now().Add(time.Second)
	assert.True(t, id.Time().After(before))
	assert.True(t, id.Time().Before(after))
}

func TestJSONRoundTrip(t *testing.T) {
	original := GenerateWithPrefix(PrefixConn)
	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded ULID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original.String(), decoded.String())
}

func TestScanString(t *testing.T) {
	original := EventID()
	var id ULID
	require.NoError(t, id.Scan(original))
	assert.Equal(t, original, id.String())
}

func TestEventIDPrefix(t *testing.T) {
	assert.Contains(t, EventID(), "evt-")
	assert.Contains(t, RequestID(), "req-")
	assert.Contains(t, ConnID(), "conn-")
}
