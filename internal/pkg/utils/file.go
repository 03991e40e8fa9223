package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
)

//WriteFile write file to disk
func WriteFile(name string, data []byte) error {
	goapp.Log.Info().Str("name", name).Msg("Save")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

//SupportMediaExt checks if media ext is accepted for upload
func SupportMediaExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a"
}

//IsAudioExt returns true for audio only formats
func IsAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".m4a"
}

//SupportMimeType checks if upload content type is accepted
func SupportMimeType(mime string) bool {
	switch strings.ToLower(mime) {
	case "video/mp4", "audio/mp3", "audio/mpeg", "audio/wav", "audio/x-wav", "audio/m4a", "audio/x-m4a", "audio/mp4":
		return true
	}
	return false
}

// MakeValidateFileName sanitizes file name and prepends ID as a dir
func MakeValidateFileName(ID, fileName string) (string, error) {
	fn := filepath.Base(filepath.Clean(fileName))
	if fn == "." || fn == string(filepath.Separator) || fn == "" {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	ext := filepath.Ext(fn)
	fn = strings.TrimSuffix(fn, ext) + strings.ToLower(ext)
	fn = strings.ReplaceAll(fn, " ", "_")
	if ID == "" {
		return fn, nil
	}
	return MakeFileName(ID, fn), nil
}

// MakeFileName joins ID and name into a storage key
func MakeFileName(ID, fileName string) string {
	return ID + "/" + fileName
}

