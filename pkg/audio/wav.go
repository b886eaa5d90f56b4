package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serialises a chunk as a mono 16-bit PCM WAV file. Float samples
// are clamped to [-1, 1] before conversion. Used when shipping audio to HTTP
// inference sidecars that expect a self-describing container.
func EncodeWAV(c Chunk) []byte {
	const (
		bitsPerSample = 16
		channels      = 1
	)
	dataLen := len(c.Samples) * 2
	byteRate := c.SampleRate * channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(c.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}
	return buf.Bytes()
}
