package dev

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/vango-dev/pagefiles/internal/config"
	pferrors "github.com/vango-dev/pagefiles/internal/errors"
)

// WriteGeneration writes the routes module, and the manifest when one is
// configured.
func WriteGeneration(cfg *config.Config, gen Generation) error {
	if _, err := WriteFileIfChanged(cfg.OutputPath(), gen.Output); err != nil {
		return err
	}
	if path := cfg.ManifestPath(); path != "" {
		if _, err := WriteFileIfChanged(path, gen.Manifest); err != nil {
			return err
		}
	}
	return nil
}

// WriteFileIfChanged writes data to path unless the file already holds
// exactly data. It reports whether the file was written.
func WriteFileIfChanged(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, pferrors.Unknown(err).WithFile(path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, pferrors.Unknown(err).WithFile(path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, pferrors.Unknown(err).WithFile(path)
	}
	return true, nil
}
