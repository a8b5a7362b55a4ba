package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// probeDuration calculates the duration of an audio file in seconds.
func (e *Extractor) probeDuration(filePath string) (int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	case ".m4a":
		return e.durationM4A(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(filePath))
	}
}

// MP3 duration by summing decoded frame durations. Falls back to a bitrate
// estimate only when not a single frame decodes.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// FLAC duration via the STREAMINFO metadata block.
func (e *Extractor) durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, fmt.Errorf("flac stream missing sample info")
	}
	secs := float64(si.NSamples) / float64(si.SampleRate)
	return int(secs + 0.5), nil
}

// WAV duration from the header plus PCM byte count.
func (e *Extractor) durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	// Approximate using file size; exact sample count would require decoding.
	pcmBytes := st.Size() - 44
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	frameSize := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frameSize <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	secs := float64(pcmBytes/frameSize) / float64(dec.SampleRate)
	return int(secs + 0.5), nil
}

// M4A (AAC in MP4) duration from the mvhd atom's timescale and duration
// fields. Best-effort manual atom scan.
func (e *Extractor) durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) == "moov" {
			return e.scanMoovAtom(f, int64(size)-8)
		}
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

// scanMoovAtom walks the children of a moov atom looking for mvhd.
func (e *Extractor) scanMoovAtom(f *os.File, limit int64) (int, error) {
	head := make([]byte, 8)
	for read := int64(0); read < limit; {
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		if size < 8 {
			return 0, fmt.Errorf("invalid sub-atom size")
		}
		if string(head[4:8]) == "mvhd" {
			return readMvhd(f)
		}
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return 0, err
		}
		read += int64(size)
	}
	return 0, fmt.Errorf("mvhd atom not found")
}

// readMvhd parses timescale and duration out of an mvhd atom body.
func readMvhd(f *os.File) (int, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(f, version); err != nil {
		return 0, err
	}
	// flags + creation/modification times, widths depend on version
	skip := int64(3 + 4 + 4)
	if version[0] == 1 {
		skip = 3 + 8 + 8
	}
	if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}

	buf := make([]byte, 12)
	if _, err := io.ReadFull(f, buf); err != nil {
		return 0, err
	}
	timescale := binary.BigEndian.Uint32(buf[0:4])
	durUnits := uint64(binary.BigEndian.Uint32(buf[4:8]))
	if version[0] == 1 {
		durUnits = binary.BigEndian.Uint64(buf[4:12])
	}
	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}
	return int(float64(durUnits)/float64(timescale) + 0.5), nil
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}
