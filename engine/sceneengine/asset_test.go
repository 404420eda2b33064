package sceneengine

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"testing"

	scenebridge "github.com/sceneforge/scene-bridge"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func wavBytes(channels uint16, sampleRate uint32, bits uint16) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, sampleRate*uint32(channels)*uint32(bits)/8)
	binary.Write(&buf, binary.LittleEndian, channels*bits/8)
	binary.Write(&buf, binary.LittleEndian, bits)
	return buf.Bytes()
}

func TestDecodeImage(t *testing.T) {
	eng := New()
	asset, err := eng.DecodeImage(pngBytes(t, 8, 4))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}
	if asset.Kind() != scenebridge.KindImage {
		t.Fatalf("Expected image kind, got %v", asset.Kind())
	}
	img := asset.(*imageAsset)
	if img.format != "png" || img.width != 8 || img.height != 4 {
		t.Fatalf("Unexpected decode: %+v", img)
	}

	if _, err := eng.DecodeImage([]byte("not an image")); err == nil {
		t.Fatal("Expected error for bad image data")
	}
}

func TestDecodeAudio(t *testing.T) {
	eng := New()
	asset, err := eng.DecodeAudio(wavBytes(2, 44100, 16))
	if err != nil {
		t.Fatalf("DecodeAudio failed: %v", err)
	}
	wav := asset.(*audioAsset)
	if wav.channels != 2 || wav.sampleRate != 44100 || wav.bits != 16 {
		t.Fatalf("Unexpected decode: %+v", wav)
	}

	if _, err := eng.DecodeAudio([]byte("RIFFxxxxMP3 ")); err == nil {
		t.Fatal("Expected error for non-WAVE stream")
	}
	if _, err := eng.DecodeAudio([]byte("tiny")); err == nil {
		t.Fatal("Expected error for truncated stream")
	}
}

func TestDecodeAudio_OddChunkSizes(t *testing.T) {
	eng := New()

	// An odd-size chunk whose declared body exactly fills the stream: the
	// word-alignment padding points past the end, which must read as a
	// truncated stream rather than a panic.
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(13))
	buf.WriteString("WAVE")
	buf.WriteString("JUNK")
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	buf.WriteByte(0)
	if _, err := eng.DecodeAudio(buf.Bytes()); err == nil {
		t.Fatal("Expected error for truncated odd-size chunk")
	}

	// An odd-size chunk with its padding byte present skips cleanly to the
	// fmt chunk behind it.
	buf.Reset()
	fmtChunk := wavBytes(1, 8000, 8)[12:]
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(14+len(fmtChunk)))
	buf.WriteString("WAVE")
	buf.WriteString("JUNK")
	binary.Write(&buf, binary.LittleEndian, uint32(1))
	buf.WriteByte(0) // body
	buf.WriteByte(0) // pad
	buf.Write(fmtChunk)
	asset, err := eng.DecodeAudio(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeAudio failed: %v", err)
	}
	if wav := asset.(*audioAsset); wav.sampleRate != 8000 {
		t.Fatalf("Unexpected decode: %+v", wav)
	}
}

func TestDecodeFont_Invalid(t *testing.T) {
	eng := New()
	if _, err := eng.DecodeFont([]byte("definitely not a font")); err == nil {
		t.Fatal("Expected error for bad font data")
	}
}

func TestRegisterAsset(t *testing.T) {
	eng := New()
	asset, err := eng.DecodeImage(pngBytes(t, 2, 2))
	if err != nil {
		t.Fatalf("DecodeImage failed: %v", err)
	}

	if err := eng.RegisterAsset("logo", asset); err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}
	if err := eng.RegisterAsset("logo", asset); err == nil {
		t.Fatal("Expected error for duplicate registration")
	}
	if err := eng.RegisterAsset("", asset); err == nil {
		t.Fatal("Expected error for empty name")
	}

	if err := eng.UnregisterAsset("logo"); err != nil {
		t.Fatalf("UnregisterAsset failed: %v", err)
	}
	if err := eng.UnregisterAsset("logo"); err == nil {
		t.Fatal("Expected error for unknown name")
	}
}

func TestEngine_ClosedRejects(t *testing.T) {
	eng := New()
	if err := eng.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := eng.ImportFile([]byte(minimalScene)); err == nil {
		t.Fatal("Expected error after Close")
	}
	if _, err := eng.DecodeImage(nil); err == nil {
		t.Fatal("Expected error after Close")
	}
	// Closing twice is fine.
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
