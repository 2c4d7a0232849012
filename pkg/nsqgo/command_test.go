package nsqgo

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicBytes(t *testing.T) {
	assert.Equal(t, []byte(MagicV2), magicBytes())
	assert.Len(t, magicBytes(), 4)
}

func TestSubCommand(t *testing.T) {
	assert.Equal(t, []byte("SUB t c\n"), subCommand("t", "c"))
}

func TestPubCommandEncodesLengthPrefixedBody(t *testing.T) {
	cmd := pubCommand("t", []byte("hello"))
	assert.Equal(t, []byte("PUB t\n"), cmd[:6])
	assert.Equal(t, uint32(5), binary.BigEndian.Uint32(cmd[6:10]))
	assert.Equal(t, []byte("hello"), cmd[10:])
}

func TestRdyFinReqNopCls(t *testing.T) {
	assert.Equal(t, []byte("RDY 1\n"), rdyCommand(1))
	assert.Equal(t, []byte("FIN 0123456789abcdef\n"), finCommand("0123456789abcdef"))
	assert.Equal(t, []byte("REQ 0123456789abcdef 500\n"), reqCommand("0123456789abcdef", 500))
	assert.Equal(t, []byte("NOP\n"), nopCommand())
	assert.Equal(t, []byte("CLS\n"), clsCommand())
}

func TestIdentifyCommandEncodesJSONLengthPrefixedBody(t *testing.T) {
	params := map[string]interface{}{"long_id": "host.example.com", "feature_negotiation": true}
	cmd, err := identifyCommand(params)
	require.NoError(t, err)

	assert.Equal(t, []byte("IDENTIFY\n"), cmd[:9])
	bodyLen := binary.BigEndian.Uint32(cmd[9:13])
	body := cmd[13:]
	assert.Equal(t, int(bodyLen), len(body))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "host.example.com", decoded["long_id"])
	assert.Equal(t, true, decoded["feature_negotiation"])
}
