// Package audioset holds the fixed registry of audio-event labels and the
// operator's current tag selection.
package audioset

// AudioSet is one audio-event label. ID is the ontology code sent to the backend.
type AudioSet struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Registry entries, in display order.
var registry = []AudioSet{
	{ID: "/m/02k7j", DisplayName: "Audience Cheer"},
	{ID: "/m/01d2x", DisplayName: "Audience Laugh"},
	{ID: "/m/09r45", DisplayName: "Audience Applause"},
}

// All returns a copy of the registry in display order.
func All() []AudioSet {
	out := make([]AudioSet, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a registry entry by id.
func Lookup(id string) (AudioSet, bool) {
	for _, s := range registry {
		if s.ID == id {
			return s, true
		}
	}
	return AudioSet{}, false
}

// Known reports whether id is in the registry.
func Known(id string) bool {
	_, ok := Lookup(id)
	return ok
}
