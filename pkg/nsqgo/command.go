package nsqgo

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// MagicV2 is the fixed byte sequence every new connection must send before
// any other command, and again immediately after every reconnect.
const MagicV2 = "  V2"

func magicBytes() []byte { return []byte(MagicV2) }

func identifyCommand(params map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("IDENTIFY\n")
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
	return buf.Bytes(), nil
}

func subCommand(topic, channel string) []byte {
	return []byte(fmt.Sprintf("SUB %s %s\n", topic, channel))
}

func pubCommand(topic string, body []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PUB %s\n", topic)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	buf.Write(lenBuf[:])
	buf.Write(body)
	return buf.Bytes()
}

func rdyCommand(n int) []byte { return []byte(fmt.Sprintf("RDY %d\n", n)) }

func finCommand(id string) []byte { return []byte(fmt.Sprintf("FIN %s\n", id)) }

func reqCommand(id string, delayMs int64) []byte {
	return []byte(fmt.Sprintf("REQ %s %d\n", id, delayMs))
}

func nopCommand() []byte { return []byte("NOP\n") }

func clsCommand() []byte { return []byte("CLS\n") }
