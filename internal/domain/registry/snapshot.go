package registry

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable, per-run view of the registry: officials, their
// authoritative service intervals, and the tag taxonomy. It is built once at
// the start of a run and passed explicitly to anything that needs lookups;
// nothing caches registry data at package scope.
type Snapshot struct {
	takenAt             time.Time
	officialsByID       map[uuid.UUID]Official
	tagsByID            map[uuid.UUID]Tag
	intervalsByOfficial map[uuid.UUID][]ServiceInterval
}

func NewSnapshot(takenAt time.Time, officials []Official, intervals []ServiceInterval, tags []Tag) *Snapshot {
	s := &Snapshot{
		takenAt:             takenAt,
		officialsByID:       make(map[uuid.UUID]Official, len(officials)),
		tagsByID:            make(map[uuid.UUID]Tag, len(tags)),
		intervalsByOfficial: make(map[uuid.UUID][]ServiceInterval, len(officials)),
	}
	for _, o := range officials {
		s.officialsByID[o.ID] = o
	}
	for _, t := range tags {
		s.tagsByID[t.ID] = t
	}
	for _, iv := range intervals {
		s.intervalsByOfficial[iv.OfficialID] = append(s.intervalsByOfficial[iv.OfficialID], iv)
	}
	return s
}

func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

func (s *Snapshot) Official(id uuid.UUID) (Official, bool) {
	o, ok := s.officialsByID[id]
	return o, ok
}

func (s *Snapshot) Officials() []Official {
	out := make([]Official, 0, len(s.officialsByID))
	for _, o := range s.officialsByID {
		out = append(out, o)
	}
	return out
}

func (s *Snapshot) Tag(id uuid.UUID) (Tag, bool) {
	t, ok := s.tagsByID[id]
	return t, ok
}

func (s *Snapshot) Tags() []Tag {
	out := make([]Tag, 0, len(s.tagsByID))
	for _, t := range s.tagsByID {
		out = append(out, t)
	}
	return out
}

func (s *Snapshot) Intervals(officialID uuid.UUID) []ServiceInterval {
	return s.intervalsByOfficial[officialID]
}

// Document is the JSON-serializable form of a Snapshot, used for the optional
// Redis snapshot cache.
type Document struct {
	TakenAt   time.Time         `json:"taken_at"`
	Officials []Official        `json:"officials"`
	Intervals []ServiceInterval `json:"intervals"`
	Tags      []Tag             `json:"tags"`
}

func (s *Snapshot) ToDocument() Document {
	doc := Document{TakenAt: s.takenAt, Officials: s.Officials(), Tags: s.Tags()}
	for _, ivs := range s.intervalsByOfficial {
		doc.Intervals = append(doc.Intervals, ivs...)
	}
	return doc
}

func FromDocument(doc Document) *Snapshot {
	return NewSnapshot(doc.TakenAt, doc.Officials, doc.Intervals, doc.Tags)
}
