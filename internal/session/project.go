package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"maskstudio/internal/imageset"
	"maskstudio/internal/mask"
)

// ProjectFile is the JSON structure of a .maskproj file. Image paths are
// stored relative to the project file so a project directory can be moved.
type ProjectFile struct {
	Version int            `json:"version"`
	GroupID string         `json:"group_id,omitempty"`
	Images  []ProjectImage `json:"images"`
}

// ProjectImage is one image entry in a project file.
type ProjectImage struct {
	Path        string        `json:"path"`
	TargetCount int           `json:"target_count"`
	Regions     []mask.Region `json:"regions,omitempty"`
}

// Save writes the session to a project file. Images that were downloaded
// rather than picked from disk have no path and cannot be saved.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	proj := ProjectFile{
		Version: 1,
		GroupID: s.groupID,
	}
	projectDir := filepath.Dir(path)
	for i, slot := range s.slots {
		if slot.Source.Path == "" {
			s.mu.Unlock()
			return fmt.Errorf("image %d (%s) has no file path and cannot be saved", i, slot.Source.Name)
		}
		rel, err := filepath.Rel(projectDir, slot.Source.Path)
		if err != nil {
			rel = slot.Source.Path
		}
		proj.Images = append(proj.Images, ProjectImage{
			Path:        rel,
			TargetCount: slot.TargetCount,
			Regions:     slot.Regions,
		})
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(proj, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// LoadProject reads a project file, reloads its images from disk, and
// reconstructs a session with the saved regions. The workflow phase and
// cursor are recomputed from the region counts rather than trusted from
// the file.
func LoadProject(path string, maxDisplayW, maxDisplayH float64) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var proj ProjectFile
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("failed to parse project file: %w", err)
	}

	s := New(maxDisplayW, maxDisplayH)
	if proj.GroupID != "" {
		s.groupID = proj.GroupID
	}

	projectDir := filepath.Dir(path)
	for _, entry := range proj.Images {
		imgPath := entry.Path
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(projectDir, imgPath)
		}
		src, err := imageset.Load(imgPath)
		if err != nil {
			return nil, err
		}
		if err := s.AddImage(src); err != nil {
			return nil, err
		}
		i := len(s.slots) - 1
		if entry.TargetCount > 0 {
			if err := s.SetTargetCount(i, entry.TargetCount); err != nil {
				return nil, err
			}
		}
		for _, r := range entry.Regions {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("image %d: %w", i, err)
			}
		}
		s.slots[i].Regions = append(s.slots[i].Regions, entry.Regions...)
	}

	s.restoreCursor()
	return s, nil
}

// restoreCursor derives phase and cursor from the committed region counts
// after a project load.
func (s *Session) restoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.slots) == 0 {
		return
	}
	for i, slot := range s.slots {
		if len(slot.Regions) < slot.TargetCount {
			s.phase = PhaseDefiningRegions
			s.imageIdx = i
			s.regionIdx = len(slot.Regions)
			return
		}
	}
	s.phase = PhaseReadyToFinalize
	s.imageIdx = len(s.slots) - 1
	s.regionIdx = 0
}
