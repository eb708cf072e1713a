// Package audio provides WAV container helpers for the voice pipeline.
// Everything in the pipeline speaks 16-bit PCM; these helpers frame and
// inspect the RIFF container around it.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// HeaderSize is the size of a canonical PCM WAV header in bytes.
const HeaderSize = 44

// Header is the fixed 44-byte header of a PCM WAV file.
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// Format describes decoded WAV parameters.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	DataBytes  int
}

// Encode frames mono PCM-16 samples as a WAV file.
func Encode(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("audio: cannot encode empty sample slice")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}

	numChannels := uint16(1)
	bitsPerSample := uint16(16)
	dataSize := uint32(len(samples) * 2)

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("audio: write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("audio: write sample data: %w", err)
	}

	return buf.Bytes(), nil
}

// Info parses and validates a WAV header, returning its format parameters.
func Info(data []byte) (Format, error) {
	if len(data) < HeaderSize {
		return Format{}, fmt.Errorf("audio: WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	var header Header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return Format{}, fmt.Errorf("audio: read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" {
		return Format{}, fmt.Errorf("audio: missing RIFF header")
	}
	if string(header.Format[:]) != "WAVE" {
		return Format{}, fmt.Errorf("audio: missing WAVE format marker")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return Format{}, fmt.Errorf("audio: missing fmt chunk")
	}
	if header.AudioFormat != 1 {
		return Format{}, fmt.Errorf("audio: unsupported audio format %d (want PCM)", header.AudioFormat)
	}

	return Format{
		SampleRate: int(header.SampleRate),
		Channels:   int(header.NumChannels),
		BitDepth:   int(header.BitsPerSample),
		DataBytes:  len(data) - HeaderSize,
	}, nil
}

// IsWAV reports whether data starts with a plausible RIFF/WAVE header.
func IsWAV(data []byte) bool {
	_, err := Info(data)
	return err == nil
}
