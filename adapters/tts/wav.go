package tts

import "encoding/binary"

// EncodeWAV wraps raw little-endian PCM samples in a RIFF/WAVE
// container so the bytes are playable as-is.
func EncodeWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	bytesPerSample := bitsPerSample / 8
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample
	dataSize := len(pcm)

	buf := make([]byte, 0, 44+dataSize)
	le := binary.LittleEndian

	appendU32 := func(b []byte, v uint32) []byte {
		var tmp [4]byte
		le.PutUint32(tmp[:], v)
		return append(b, tmp[:]...)
	}
	appendU16 := func(b []byte, v uint16) []byte {
		var tmp [2]byte
		le.PutUint16(tmp[:], v)
		return append(b, tmp[:]...)
	}

	buf = append(buf, "RIFF"...)
	buf = appendU32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = appendU32(buf, 16)
	buf = appendU16(buf, 1) // PCM format
	buf = appendU16(buf, uint16(channels))
	buf = appendU32(buf, uint32(sampleRate))
	buf = appendU32(buf, uint32(byteRate))
	buf = appendU16(buf, uint16(blockAlign))
	buf = appendU16(buf, uint16(bitsPerSample))

	buf = append(buf, "data"...)
	buf = appendU32(buf, uint32(dataSize))
	buf = append(buf, pcm...)

	return buf
}
