package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpenTime(t *testing.T) {
	got, err := ParseOpenTime("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-10-01T12:30", time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-10-01T12:30:15", time.Date(2025, 10, 1, 12, 30, 15, 0, time.UTC)},
		{"2025-10-01T12:30:00+02:00", time.Date(2025, 10, 1, 10, 30, 0, 0, time.UTC)},
		{"2025-10-01T12:30:00.5Z", time.Date(2025, 10, 1, 12, 30, 0, 500_000_000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseOpenTime(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.True(t, got.Equal(tt.want), tt.raw)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err = ParseOpenTime("soon")
	assert.ErrorIs(t, err, ErrInvalidOpenTime)
}

func TestMintUnmarshal_DatetimeLocalOpenTime(t *testing.T) {
	data := `{
		"id": "1727697600000",
		"creatorWallet": "So11111111111111111111111111111111111111112",
		"mintPrice": 0.75,
		"title": "Night Drive",
		"openTime": "2025-09-30T12:00",
		"keypair": [1, 2, 3, 255],
		"minted": false,
		"createdAt": "2025-09-30T10:00:00.000Z"
	}`

	var m Mint
	require.NoError(t, json.Unmarshal([]byte(data), &m))
	assert.Equal(t, "1727697600000", m.ID)
	assert.Equal(t, "0.75", m.MintPrice.String())
	assert.Equal(t, []byte{1, 2, 3, 255}, m.Keypair)
	require.NotNil(t, m.OpenTime)
	assert.True(t, m.OpenTime.Equal(time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)))
}

func TestMintUnmarshal_OpenTimeAbsentOrNull(t *testing.T) {
	for _, data := range []string{`{"id":"1"}`, `{"id":"1","openTime":null}`, `{"id":"1","openTime":""}`} {
		m := Mint{OpenTime: new(time.Time)}
		require.NoError(t, json.Unmarshal([]byte(data), &m), data)
		assert.Nil(t, m.OpenTime, data)
	}
}

func TestMintUnmarshal_RoundTrip(t *testing.T) {
	open := time.Date(2025, 10, 2, 8, 15, 0, 0, time.UTC)
	in := &Mint{ID: "42", Title: "Loop", OpenTime: &open, Keypair: []byte{9, 8, 7}}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Mint
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Keypair, out.Keypair)
	require.NotNil(t, out.OpenTime)
	assert.True(t, open.Equal(*out.OpenTime))
}

func TestMintUnmarshal_BadOpenTime(t *testing.T) {
	var m Mint
	err := json.Unmarshal([]byte(`{"id":"1","openTime":"next tuesday"}`), &m)
	assert.ErrorIs(t, err, ErrInvalidOpenTime)
}
