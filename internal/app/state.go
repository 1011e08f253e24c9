// Package app holds the desktop session: the loaded plot images, their field
// tags and GPS lookups, and the events the UI listens to.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"lightshade/internal/geotag"
	"lightshade/internal/image"
	"lightshade/internal/render"
	"lightshade/internal/segment"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PreviewSize is the edge length of the square preview stored per image.
const PreviewSize = 160

// GPSStatus is the state of an image's coordinate lookup.
type GPSStatus string

const (
	GPSExtracting GPSStatus = "extracting"
	GPSFound      GPSStatus = "found"
	GPSNotFound   GPSStatus = "not-found"
)

// ImageFile is one photograph in the session.
type ImageFile struct {
	ID             string              `json:"id"`
	Path           string              `json:"path"`
	Name           string              `json:"name"`
	PreviewDataURL string              `json:"preview"`
	GPS            *geotag.Coordinates `json:"gps,omitempty"`
	GPSStatus      GPSStatus           `json:"gps_status"`
	Row            string              `json:"row"`
	Plant          string              `json:"plant"`
	Layer          *image.Layer        `json:"-"`
	Result         *segment.Result     `json:"-"`

	// Percentages from a saved session, until the image is classified again
	Saved *SavedResult `json:"saved,omitempty"`
}

// SavedResult is a light/shadow split restored from a session file.
type SavedResult struct {
	LightPercentage  float64 `json:"porcentaje_luz"`
	ShadowPercentage float64 `json:"porcentaje_sombra"`
}

// Percentages returns the current light/shadow split: the classification
// when present, else the saved one.
func (f ImageFile) Percentages() (light, shadow float64, ok bool) {
	switch {
	case f.Result != nil:
		return f.Result.LightPercentage, f.Result.ShadowPercentage, true
	case f.Saved != nil:
		return f.Saved.LightPercentage, f.Saved.ShadowPercentage, true
	default:
		return 0, 0, false
	}
}

// Locator resolves the coordinates of the image at path. A nil result with
// no error means the image carries no position.
type Locator func(path string) (*geotag.Coordinates, error)

// EventType identifies different application events.
type EventType int

const (
	EventImageAdded EventType = iota
	EventImageRemoved
	EventImageUpdated
	EventGPSResolved
	EventSelectionChanged
	EventTrainingProgress
	EventModelReady
	EventClassified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the images of the session and dispatches events about them.
type State struct {
	mu sync.RWMutex

	images   []*ImageFile
	selected string

	// Pending GPS lookups by image ID
	tasks   map[string]context.CancelFunc
	tasksWG sync.WaitGroup
	locate  Locator

	loadOpts image.LoadOptions

	listeners map[EventType][]EventListener
}

// NewState creates a session that reads coordinates from EXIF metadata.
func NewState(opts image.LoadOptions) *State {
	return NewStateWithLocator(opts, geotag.ExtractFile)
}

// NewStateWithLocator creates a session that resolves coordinates with locate.
func NewStateWithLocator(opts image.LoadOptions, locate Locator) *State {
	return &State{
		tasks:     make(map[string]context.CancelFunc),
		locate:    locate,
		loadOpts:  opts,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// AddImage decodes the image at path, registers it and starts its GPS lookup.
func (s *State) AddImage(path string) (ImageFile, error) {
	layer, err := image.Load(path, s.loadOpts)
	if err != nil {
		return ImageFile{}, err
	}

	preview, err := render.DataURL(layer.Thumbnail(PreviewSize))
	if err != nil {
		return ImageFile{}, fmt.Errorf("failed to render preview: %w", err)
	}

	img := &ImageFile{
		ID:             uuid.NewString(),
		Path:           path,
		Name:           filepath.Base(path),
		PreviewDataURL: preview,
		GPSStatus:      GPSExtracting,
		Layer:          layer,
	}

	s.mu.Lock()
	s.images = append(s.images, img)
	if s.selected == "" {
		s.selected = img.ID
	}
	added := *img
	s.startLookupLocked(img.ID, path)
	s.mu.Unlock()

	log.Infof("Added image %s (%dx%d)", added.Name, layer.Width(), layer.Height())
	s.Emit(EventImageAdded, added)
	return added, nil
}

func (s *State) startLookupLocked(id, path string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.tasks[id] = cancel
	s.tasksWG.Add(1)

	go func() {
		defer s.tasksWG.Done()
		coords, err := s.locate(path)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warnf("GPS lookup for %s failed: %v", path, err)
		}
		s.resolveGPS(id, coords)
	}()
}

// resolveGPS records a finished lookup. It does nothing when the image has
// been removed in the meantime.
func (s *State) resolveGPS(id string, coords *geotag.Coordinates) {
	s.mu.Lock()
	delete(s.tasks, id)
	img := s.findLocked(id)
	if img == nil {
		s.mu.Unlock()
		return
	}
	img.GPS = coords
	if coords != nil {
		img.GPSStatus = GPSFound
	} else {
		img.GPSStatus = GPSNotFound
	}
	updated := *img
	s.mu.Unlock()

	s.Emit(EventGPSResolved, updated)
}

// WaitLookups blocks until every started GPS lookup has returned.
func (s *State) WaitLookups() {
	s.tasksWG.Wait()
}

// RemoveImage drops the image and cancels its pending lookup.
func (s *State) RemoveImage(id string) error {
	s.mu.Lock()
	idx := -1
	for i, img := range s.images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	removed := *s.images[idx]
	s.images = append(s.images[:idx], s.images[idx+1:]...)
	if cancel, ok := s.tasks[id]; ok {
		cancel()
		delete(s.tasks, id)
	}
	reselect := s.selected == id
	if reselect {
		s.selected = ""
		if len(s.images) > 0 {
			s.selected = s.images[0].ID
		}
	}
	selected := s.selected
	s.mu.Unlock()

	s.Emit(EventImageRemoved, removed)
	if reselect {
		s.Emit(EventSelectionChanged, selected)
	}
	return nil
}

// Clear removes every image.
func (s *State) Clear() {
	for _, img := range s.Images() {
		_ = s.RemoveImage(img.ID)
	}
}

// Images returns a snapshot of the session in insertion order.
func (s *State) Images() []ImageFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ImageFile, len(s.images))
	for i, img := range s.images {
		out[i] = *img
	}
	return out
}

// Image returns a snapshot of one image.
func (s *State) Image(id string) (ImageFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if img := s.findLocked(id); img != nil {
		return *img, true
	}
	return ImageFile{}, false
}

// Len returns the number of images.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// SetTags records the row and plant number of an image.
func (s *State) SetTags(id, row, plant string) error {
	return s.update(id, func(img *ImageFile) {
		img.Row = row
		img.Plant = plant
	})
}

// SetResult attaches a classification to an image, replacing any saved
// percentages.
func (s *State) SetResult(id string, res *segment.Result) error {
	if err := s.update(id, func(img *ImageFile) {
		img.Result = res
		img.Saved = nil
	}); err != nil {
		return err
	}
	s.Emit(EventClassified, id)
	return nil
}

// setSaved restores percentages read from a session.
func (s *State) setSaved(id string, saved *SavedResult) error {
	return s.update(id, func(img *ImageFile) { img.Saved = saved })
}

func (s *State) update(id string, fn func(*ImageFile)) error {
	s.mu.Lock()
	img := s.findLocked(id)
	if img == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	fn(img)
	updated := *img
	s.mu.Unlock()

	s.Emit(EventImageUpdated, updated)
	return nil
}

// Select makes id the current image.
func (s *State) Select(id string) error {
	s.mu.Lock()
	if s.findLocked(id) == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrImageNotFound, id)
	}
	s.selected = id
	s.mu.Unlock()

	s.Emit(EventSelectionChanged, id)
	return nil
}

// Selected returns the current image, if any.
func (s *State) Selected() (ImageFile, bool) {
	s.mu.RLock()
	id := s.selected
	s.mu.RUnlock()
	if id == "" {
		return ImageFile{}, false
	}
	return s.Image(id)
}

func (s *State) findLocked(id string) *ImageFile {
	for _, img := range s.images {
		if img.ID == id {
			return img
		}
	}
	return nil
}
