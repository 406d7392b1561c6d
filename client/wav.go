package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// only the first 16 bytes of fmt are read; extensible headers stay under this
	maxFmtChunk = 64
)

var ErrInvalidWAV = errors.New("invalid wav file")

// WAVFormat is the fmt chunk of a PCM WAV file.
type WAVFormat struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// FrameSize is the byte size of one sample across all channels.
func (f WAVFormat) FrameSize() int {
	return f.Channels * ((f.BitsPerSample + 7) / 8)
}

// WAVReader reads the PCM data of a RIFF/WAVE file frame by frame.
type WAVReader struct {
	Format WAVFormat

	file *os.File
	data io.Reader
	size int64
}

// OpenWAV opens path and positions the reader at the start of its data chunk.
func OpenWAV(path string) (*WAVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := newWAVReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.file = f
	return r, nil
}

func newWAVReader(r io.Reader) (*WAVReader, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrInvalidWAV)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidWAV)
	}

	wav := &WAVReader{}
	haveFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return nil, fmt.Errorf("%w: data chunk not found", ErrInvalidWAV)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small", ErrInvalidWAV)
			}
			body := make([]byte, min(size, maxFmtChunk))
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != wavFormatPCM && format != wavFormatExtensible {
				return nil, fmt.Errorf("%w: unsupported format %d", ErrInvalidWAV, format)
			}
			wav.Format = WAVFormat{
				Channels:      int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
			}
			if wav.Format.FrameSize() == 0 {
				return nil, fmt.Errorf("%w: zero frame size", ErrInvalidWAV)
			}
			haveFormat = true
			// skip the rest of the chunk and its pad byte
			if rest := size - int64(len(body)) + size%2; rest > 0 {
				if _, err := io.CopyN(io.Discard, r, rest); err != nil {
					return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
				}
			}

		case "data":
			if !haveFormat {
				return nil, fmt.Errorf("%w: data before fmt chunk", ErrInvalidWAV)
			}
			wav.size = size
			wav.data = io.LimitReader(r, size)
			return wav, nil

		default:
			// chunks are padded to even sizes
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("%w: truncated %q chunk", ErrInvalidWAV, id)
			}
		}
	}
}

// DataSize is the byte length of the PCM data as declared by the file.
func (r *WAVReader) DataSize() int64 {
	return r.size
}

// ReadFrames returns up to n frames of PCM data, io.EOF once the data is exhausted.
func (r *WAVReader) ReadFrames(n int) ([]byte, error) {
	buf := make([]byte, n*r.Format.FrameSize())
	read, err := io.ReadFull(r.data, buf)
	if read > 0 {
		return buf[:read], nil
	}
	return nil, err
}

func (r *WAVReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
