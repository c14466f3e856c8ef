package biblio

import (
	"encoding/json"
)

// Snapshot is the serializable form of the bibliography, keyed by document
// location. Downstream tooling (and other documents' compilations, via
// ImportExternal) consume this.
type Snapshot struct {
	Location  string   `json:"location"`
	SessionID string   `json:"session_id,omitempty"`
	Entries   []*Entry `json:"entries"`
}

// Snapshot captures the locally defined entries under the given document
// location. Imported external entries are excluded: re-exporting another
// document's entries would let stale copies shadow the originals.
func (b *Biblio) Snapshot(location, sessionID string) *Snapshot {
	entries := make([]*Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.Location == "" {
			entries = append(entries, e)
		}
	}
	return &Snapshot{Location: location, SessionID: sessionID, Entries: entries}
}

// Marshal renders the snapshot as indented JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalSnapshot parses a serialized snapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// entryJSON mirrors Entry for (de)serialization of the kind enum as a name.
type entryJSON struct {
	Kind           string   `json:"kind"`
	ID             string   `json:"id,omitempty"`
	Namespace      string   `json:"namespace"`
	Key            string   `json:"key"`
	Aliases        []string `json:"aliases,omitempty"`
	Location       string   `json:"location,omitempty"`
	ReferencingIDs []string `json:"referencing_ids,omitempty"`
	Number         string   `json:"number,omitempty"`
	Title          string   `json:"title,omitempty"`
	Path           []int    `json:"path,omitempty"`
}

// MarshalJSON implements json.Marshaler with the kind as its string name.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Kind:           e.Kind.String(),
		ID:             e.ID,
		Namespace:      e.Namespace,
		Key:            e.Key,
		Aliases:        e.Aliases,
		Location:       e.Location,
		ReferencingIDs: e.ReferencingIDs,
		Number:         e.Number,
		Title:          e.Title,
		Path:           e.Path,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var j entryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	kind, _ := KindFromString(j.Kind)
	*e = Entry{
		Kind:           kind,
		ID:             j.ID,
		Namespace:      j.Namespace,
		Key:            j.Key,
		Aliases:        j.Aliases,
		Location:       j.Location,
		ReferencingIDs: j.ReferencingIDs,
		Number:         j.Number,
		Title:          j.Title,
		Path:           j.Path,
		PathKnown:      len(j.Path) > 0,
	}
	return nil
}
