package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"sonata/internal/metadata"
)

// storeCoverBytes writes raw image bytes into the cover directory under a
// generated ID and returns that ID.
func (ms *MusicServer) storeCoverBytes(data []byte) (string, error) {
	if err := os.MkdirAll(ms.config.Media.CoverDir, 0755); err != nil {
		return "", err
	}

	ext := ".jpg"
	if metadata.ImageMimeType(data) == "image/png" {
		ext = ".png"
	}

	coverID := uuid.NewString() + ext
	path := filepath.Join(ms.config.Media.CoverDir, coverID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return coverID, nil
}

// storeUploadedCover saves a multipart cover image part, returning its ID.
func (ms *MusicServer) storeUploadedCover(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		return "", fmt.Errorf("unsupported image type: %s", ext)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	return ms.storeCoverBytes(data)
}

// storeUploadedAudio saves a multipart audio part into the audio directory
// under a generated name, preserving the original extension. Returns the
// stored path.
func (ms *MusicServer) storeUploadedAudio(file multipart.File, header *multipart.FileHeader) (string, error) {
	if !ms.extractor.IsAudioFile(header.Filename) {
		return "", fmt.Errorf("unsupported audio type: %s", filepath.Ext(header.Filename))
	}

	if err := os.MkdirAll(ms.config.Media.AudioDir, 0755); err != nil {
		return "", err
	}

	destPath := filepath.Join(ms.config.Media.AudioDir,
		uuid.NewString()+strings.ToLower(filepath.Ext(header.Filename)))

	destFile, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		os.Remove(destPath) // Clean up on error
		return "", err
	}
	return destPath, nil
}

// removeStoredCover deletes a cover asset best-effort: failures are logged,
// not surfaced.
func (ms *MusicServer) removeStoredCover(coverID string) {
	if coverID == "" {
		return
	}
	ms.covers.Delete(coverID)
	path := filepath.Join(ms.config.Media.CoverDir, filepath.Base(coverID))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ms.logger.WithError(err).WithField("cover_id", coverID).Warn("Failed to remove cover asset")
	}
}

// removeStoredAudio deletes an audio asset best-effort.
func (ms *MusicServer) removeStoredAudio(audioPath string) {
	if audioPath == "" {
		return
	}
	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		ms.logger.WithError(err).WithField("audio_path", audioPath).Warn("Failed to remove audio asset")
	}
}
