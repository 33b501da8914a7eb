package rag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventMarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "token",
			event: TokenEvent("Glacier "),
			want:  `{"type":"token","content":"Glacier "}`,
		},
		{
			name: "done with sources",
			event: DoneEvent([]Source{
				{ParkName: "Zion National Park", ParkCode: "zion", URL: "https://www.nps.gov/zion", Score: 0.5},
			}),
			want: `{"type":"done","sources":[{"park_name":"Zion National Park","park_code":"zion","url":"https://www.nps.gov/zion","score":0.5}],"num_sources":1}`,
		},
		{
			name:  "done without sources keeps empty array",
			event: DoneEvent(nil),
			want:  `{"type":"done","sources":[],"num_sources":0}`,
		},
		{
			name:  "error",
			event: ErrorEvent("store unavailable"),
			want:  `{"type":"error","message":"store unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
