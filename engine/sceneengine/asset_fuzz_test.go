package sceneengine

import (
	"testing"
)

func FuzzDecodeAudio(f *testing.F) {
	// Add a well-formed stream as seed
	f.Add(wavBytes(2, 44100, 16))

	// Add an odd-size chunk that exactly fills the stream
	f.Add([]byte("RIFF\x0d\x00\x00\x00WAVEJUNK\x01\x00\x00\x00\x00"))

	// Add truncated and non-WAVE data
	f.Add([]byte("RIFF"))
	f.Add([]byte("RIFFxxxxMP3 "))
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		// Fuzzing should not panic
		eng := New()
		eng.DecodeAudio(data)
	})
}
