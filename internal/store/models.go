// Package store persists clip exports and cached most-replayed markers.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// Export is one labeled clip submitted from the panel.
type Export struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"videoId"`
	Start     float64   `json:"start"`
	End       float64   `json:"end"`
	AudioSets []string  `json:"audioSets"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClipName is the file stem of the cut clip, also the dataset entry id.
func (e *Export) ClipName() string {
	return fmt.Sprintf("%s_%d", FileStem(e.VideoID), e.ID)
}

// ClipFile is the cut clip's file name inside the clips directory.
func (e *Export) ClipFile() string {
	return e.ClipName() + ".flac"
}

// Labels is the comma-joined tag list as stored and as written to the dataset.
func (e *Export) Labels() string {
	return strings.Join(e.AudioSets, ",")
}

// Validate checks an export before it is stored.
func (e *Export) Validate() error {
	if strings.TrimSpace(e.VideoID) == "" {
		return errors.New("videoId is required")
	}
	if e.Start < 0 {
		return errors.New("start must not be negative")
	}
	if e.End <= e.Start {
		return errors.New("end must be greater than start")
	}
	return nil
}

// Marker is one point of a video's most-replayed heat map.
type Marker struct {
	StartMillis              int64   `json:"startMillis"`
	IntensityScoreNormalized float64 `json:"intensityScoreNormalized"`
}

func splitLabels(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
