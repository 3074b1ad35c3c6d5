package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryBody struct {
	Vector []float32 `json:"vector,omitempty"`
	Filter string    `json:"filter,omitempty"`
	K      int       `json:"k"`
}

func TestCodecsAgree(t *testing.T) {
	in := queryBody{Vector: []float32{1, 0.5}, Filter: "region = 'west'", K: 3}

	for _, name := range []string{"json", "go-json"} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			data, err := c.Marshal(in)
			require.NoError(t, err)
			assert.JSONEq(t, `{"vector":[1,0.5],"filter":"region = 'west'","k":3}`, string(data))

			var out queryBody
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, Default, c)

	_, err = ByName("protobuf")
	assert.Error(t, err)

	assert.Equal(t, Default, OrDefault(nil))
	assert.Equal(t, JSON{}, OrDefault(JSON{}))
}
