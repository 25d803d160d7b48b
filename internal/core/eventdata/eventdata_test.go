package eventdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) Payload {
	t.Helper()

	var p Payload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return p
}

func TestPayload_NeverPanicsOnShape(t *testing.T) {
	p := decode(t, `{
		"name": 42,
		"flag": "yes",
		"when": "not-a-time",
		"id": "not-a-uuid",
		"contacts": "oops",
		"tags": [1, "a", null],
		"nested": null
	}`)
	def := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "", p.Text("name"))
	assert.Nil(t, p.OptionalText("name"))
	assert.Equal(t, true, p.Bool("flag", true))
	assert.Equal(t, def, p.Time("when", def))
	assert.Nil(t, p.OptionalTime("when"))
	assert.Equal(t, "", p.UUIDString("id"))
	assert.Equal(t, "not-a-uuid", p.ID("id"))
	assert.Nil(t, p.Objects("contacts"))
	assert.Equal(t, []string{"a"}, p.Strings("tags"))
	assert.Nil(t, p.Object("nested"))
	assert.False(t, p.Has("nested"))
	assert.Equal(t, int64(7), p.Int("missing", 7))
}

func TestPayload_NilIsEmpty(t *testing.T) {
	var p Payload

	assert.Equal(t, "fallback", p.TextOr("name", "fallback"))
	assert.False(t, p.Has("anything"))
	assert.Nil(t, p.Objects("contacts"))
}

func TestPayload_TypedValues(t *testing.T) {
	p := decode(t, `{
		"grant_id": "8C1B4C4E-54C2-4D0B-8E52-2F1E3C6B9A10",
		"expires_at": "2026-03-01T10:00:00.123Z",
		"count": 3,
		"active": false,
		"empty": "",
		"contacts": [{"label": "billing", "email": "a@b.c"}, "skip", {"label": "primary"}]
	}`)

	assert.Equal(t, "8c1b4c4e-54c2-4d0b-8e52-2f1e3c6b9a10", p.UUIDString("grant_id"))
	require.NotNil(t, p.OptionalTime("expires_at"))
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 123000000, time.UTC), *p.OptionalTime("expires_at"))
	assert.Equal(t, int64(3), p.Int("count", 0))
	assert.False(t, p.Bool("active", true))

	empty := p.OptionalText("empty")
	require.NotNil(t, empty)
	assert.Equal(t, "", *empty)
	assert.Equal(t, "default", p.TextOr("empty", "default"))

	contacts := p.Objects("contacts")
	require.Len(t, contacts, 2)
	assert.Equal(t, "billing", contacts[0].Text("label"))
	assert.Equal(t, "primary", contacts[1].Text("label"))
}
