package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"lightshade/internal/project"

	log "github.com/sirupsen/logrus"
)

// SaveSession writes the images, their tags and the field selection to path.
func (s *State) SaveSession(path string, field project.Field) error {
	if filepath.Ext(path) != project.Extension {
		path += project.Extension
	}
	proj := project.New(strings.TrimSuffix(filepath.Base(path), project.Extension))
	proj.Field = field

	for _, img := range s.Images() {
		entry := project.Image{Path: img.Path, Row: img.Row, Plant: img.Plant}
		if light, shadow, ok := img.Percentages(); ok {
			entry.LightPercentage, entry.ShadowPercentage = &light, &shadow
		}
		proj.AddImage(path, entry)
	}

	if err := proj.Save(path); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	log.Infof("Saved session %s (%d images)", path, len(proj.Images))
	return nil
}

// LoadSession replaces the current images with those of the session at path
// and returns its field selection. Saved percentages come back as
// ImageFile.Saved. Images that fail to load are skipped and reported in
// skipped.
func (s *State) LoadSession(path string) (field project.Field, skipped []error, err error) {
	proj, err := project.Load(path)
	if err != nil {
		return project.Field{}, nil, err
	}

	s.Clear()
	for _, entry := range proj.Images {
		img, err := s.AddImage(proj.ImagePath(path, entry))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		if entry.Row != "" || entry.Plant != "" {
			_ = s.SetTags(img.ID, entry.Row, entry.Plant)
		}
		if entry.LightPercentage != nil && entry.ShadowPercentage != nil {
			_ = s.setSaved(img.ID, &SavedResult{
				LightPercentage:  *entry.LightPercentage,
				ShadowPercentage: *entry.ShadowPercentage,
			})
		}
	}
	if len(skipped) > 0 {
		log.Warnf("Session %s: %d of %d images could not be loaded", path, len(skipped), len(proj.Images))
	}
	return proj.Field, skipped, nil
}
