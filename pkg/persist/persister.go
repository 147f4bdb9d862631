package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

const outputPerm = 0o644

// Save writes document to path with the codec its extension selects. The
// file is replaced atomically, so readers never see a partial document.
func Save(path, document string) error {
	return SaveWith(path, CodecFor(path), document)
}

// SaveWith writes document to path with an explicit codec.
func SaveWith(path string, codec Codec, document string) error {
	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	err = codec.Encode(tmp, []byte(document))
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("close output file: %w", err)
	}

	err = os.Chmod(tmpName, outputPerm)
	if err != nil {
		return fmt.Errorf("chmod output file: %w", err)
	}

	err = os.Rename(tmpName, path)
	if err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}

// Load reads a document written by Save.
func Load(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	data, err := CodecFor(path).Decode(file)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	return string(data), nil
}
