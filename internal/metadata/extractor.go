package metadata

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"

	"sonata/pkg/models"
)

// Extractor reads tags and durations from uploaded audio files.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(supportedFormats []string) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// ExtractFromFile reads tags and duration from an audio file. Missing tags
// fall back to the filename; a failed duration probe yields 0 rather than an
// error so a badly encoded file still enters the catalog.
func (e *Extractor) ExtractFromFile(filePath string) (models.Track, error) {
	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("filePath", filePath).Error("Failed to open audio file")
		return models.Track{}, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return models.Track{}, err
	}

	duration, err := e.probeDuration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("filePath", filePath).Warn("Failed to calculate duration, setting to 0")
		duration = 0
	}

	track := models.Track{
		Title:     strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
		Artist:    "Unknown Artist",
		Album:     "Unknown Album",
		Duration:  duration,
		AudioPath: filePath,
		FileSize:  stat.Size(),
	}

	meta, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("filePath", filePath).Warn("Failed to extract metadata, using filename")
		return track, nil
	}

	if title := meta.Title(); title != "" {
		track.Title = title
	}
	if artist := meta.Artist(); artist != "" {
		track.Artist = artist
	}
	if album := meta.Album(); album != "" {
		track.Album = album
	}
	track.TrackNumber, _ = meta.Track()

	e.logger.WithFields(logrus.Fields{
		"filePath": filePath,
		"title":    track.Title,
		"artist":   track.Artist,
		"album":    track.Album,
		"duration": track.Duration,
	}).Debug("Successfully extracted metadata")

	return track, nil
}

// ExtractArtwork returns the embedded picture bytes from an audio file, or
// false when the file carries none.
func (e *Extractor) ExtractArtwork(filePath string) ([]byte, bool) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, false
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return nil, false
	}

	picture := meta.Picture()
	if picture == nil || len(picture.Data) == 0 {
		return nil, false
	}
	return picture.Data, true
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetContentType returns the MIME type for an audio file
func (e *Extractor) GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

// ImageMimeType guesses the MIME type of raw image bytes.
func ImageMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
