package callbacks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		min     int
		want    []string
		short   bool
		wantErr bool
	}{
		{name: "exact", payload: `["banner-1","50"]`, min: 2, want: []string{"banner-1", "50"}},
		{name: "extra args kept", payload: `["a","b","c"]`, min: 1, want: []string{"a", "b", "c"}},
		{name: "numbers keep literal form", payload: `["a",50.0,true]`, min: 3, want: []string{"a", "50.0", "true"}},
		{name: "null becomes empty", payload: `["a",null]`, min: 2, want: []string{"a", ""}},
		{name: "short is padded", payload: `["a"]`, min: 3, want: []string{"a", "", ""}, short: true, wantErr: true},
		{name: "empty payload", payload: "", min: 1, want: []string{""}, short: true, wantErr: true},
		{name: "not json", payload: `oops`, min: 2, want: []string{"", ""}, short: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeArgs(tt.payload, tt.min)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.short, errors.Is(err, ErrShortPayload))
		})
	}
}

func TestEncodeArgs(t *testing.T) {
	assert.Equal(t, `[]`, EncodeArgs())
	assert.Equal(t, `["banner-1","say \"hi\""]`, EncodeArgs("banner-1", `say "hi"`))

	msg := NewMessage(OnAdLoaded, "banner-1", "50")
	assert.Equal(t, OnAdLoaded, msg.Name)
	args, err := DecodeArgs(msg.Payload, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"banner-1", "50"}, args)
}
