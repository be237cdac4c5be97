package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nostrlang/coderunner"
)

func loadKeyHolder(path string) (*coderunner.KeyHolder, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("key file not found: %s", path)
		}
		return nil, err
	}
	return coderunner.Load(b)
}

func savePEM(path string, pemBytes []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	if _, err := f.Write(pemBytes); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// defaultKeyPath returns key.pem under os.UserConfigDir, like
//
//	Linux: $XDG_CONFIG_HOME/coderunner/key.pem (or ~/.config/coderunner/key.pem)
//	macOS: ~/Library/Application Support/coderunner/key.pem
func defaultKeyPath() (string, error) {
	return configDirFilePath("key.pem")
}
