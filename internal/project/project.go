// Package project provides session file handling and persistence.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Extension is the session file suffix.
const Extension = ".lsproj"

// FileVersion is written to new session files.
const FileVersion = 1

// File represents a saved session (.lsproj).
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Field location shared by every image of the session
	Field Field `json:"field"`

	Images []Image `json:"images"`
}

// Field is the empresa/fundo/sector/lote selection.
type Field struct {
	Empresa string `json:"empresa,omitempty"`
	Fundo   string `json:"fundo,omitempty"`
	Sector  string `json:"sector,omitempty"`
	Lote    string `json:"lote,omitempty"`
}

// Image is one photograph of the session. Path is relative to the session
// file when possible.
type Image struct {
	Path  string `json:"path"`
	Row   string `json:"row,omitempty"`
	Plant string `json:"plant,omitempty"`

	// Last classification, for reference
	LightPercentage  *float64 `json:"porcentaje_luz,omitempty"`
	ShadowPercentage *float64 `json:"porcentaje_sombra,omitempty"`
}

// New creates an empty session file.
func New(name string) *File {
	now := time.Now()
	return &File{
		Version:  FileVersion,
		Name:     name,
		Created:  now,
		Modified: now,
	}
}

// Load loads a session from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", filepath.Base(path), err)
	}
	if proj.Version > FileVersion {
		return nil, fmt.Errorf("session %s has version %d, newest supported is %d", filepath.Base(path), proj.Version, FileVersion)
	}

	return &proj, nil
}

// Save saves the session to path.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// AddImage records an image, storing its path relative to the session file.
func (p *File) AddImage(projectPath string, img Image) {
	if rel, err := filepath.Rel(filepath.Dir(projectPath), img.Path); err == nil {
		img.Path = rel
	}
	p.Images = append(p.Images, img)
	p.Modified = time.Now()
}

// ImagePath returns the absolute path of an image entry.
func (p *File) ImagePath(projectPath string, img Image) string {
	if filepath.IsAbs(img.Path) {
		return img.Path
	}
	return filepath.Join(filepath.Dir(projectPath), img.Path)
}
