package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/content.yml
var embeddedFixture []byte

// LoadFixture decodes main sections from a YAML document.
func LoadFixture(r io.Reader) ([]MainSection, error) {
	var f fixture
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("yaml.NewDecoder().Decode() > %w", err)
	}
	return f.MainSections, nil
}

// Default builds the tree from the fixture embedded in the binary.
func Default() (*Tree, error) {
	mainSections, err := LoadFixture(bytes.NewReader(embeddedFixture))
	if err != nil {
		return nil, fmt.Errorf("LoadFixture(embedded) > %w", err)
	}
	return NewTree(mainSections)
}

// LoadFile builds the tree from a YAML fixture file.
func LoadFile(path string) (*Tree, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s) > %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	mainSections, err := LoadFixture(file)
	if err != nil {
		return nil, fmt.Errorf("LoadFixture(%s) > %w", path, err)
	}
	return NewTree(mainSections)
}

// Open returns the tree from path, or the embedded tree when path is empty.
func Open(path string) (*Tree, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}
