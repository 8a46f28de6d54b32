package arch

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/archflow/pkg/errors"
)

// =============================================================================
// Architecture Serialization API
// =============================================================================

// Marshal converts an architecture to indented JSON bytes.
func Marshal(a *Architecture) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(a, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes an architecture as JSON to an io.Writer.
func Write(a *Architecture, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes an architecture to a file. Paths ending in .yaml or .yml
// are written as YAML, everything else as JSON.
// The file is created with 0644 permissions.
func WriteFile(a *Architecture, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if IsYAML(path) {
		return WriteYAML(a, f)
	}
	return Write(a, f)
}

// WriteYAML encodes an architecture as YAML to an io.Writer.
func WriteYAML(a *Architecture, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// Read decodes an architecture from an io.Reader.
// A JSON null decodes to a nil architecture, which callers treat as empty.
func Read(r io.Reader) (*Architecture, error) {
	var a *Architecture
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchitecture, err, "decode architecture")
	}
	return a, nil
}

// ReadYAML decodes an architecture from YAML. An empty document decodes to
// a nil architecture, like JSON null.
func ReadYAML(r io.Reader) (*Architecture, error) {
	var a *Architecture
	if err := yaml.NewDecoder(r).Decode(&a); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(errors.ErrCodeInvalidArchitecture, err, "decode architecture")
	}
	return a, nil
}

// ReadFile reads an architecture from a JSON or YAML file, chosen by
// extension as in WriteFile.
func ReadFile(path string) (*Architecture, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "architecture file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if IsYAML(path) {
		return ReadYAML(f)
	}
	return Read(f)
}

// IsYAML reports whether path has a YAML extension.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Unmarshal decodes architecture JSON bytes.
func Unmarshal(data []byte) (*Architecture, error) {
	return Read(bytes.NewReader(data))
}
