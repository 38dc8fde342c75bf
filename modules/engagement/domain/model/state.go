package model

import (
	"time"

	"github.com/pkg/errors"

	"github.com/google/uuid"
)

// State holds the live collections the import pipeline operates on. The
// holder is the single writer; State provides no internal locking.
type State struct {
	People     []Person   `json:"people"`
	Activities []Activity `json:"activities"`
	Families   []Family   `json:"families"`
}

// ErrPersonNotFound is returned by connection ops when an endpoint is missing.
var ErrPersonNotFound = errors.New("person not found")

// PersonByID returns a pointer into the People slice, or nil. The pointer is
// invalidated by appends to the slice.
func (s *State) PersonByID(id uuid.UUID) *Person {
	for i := range s.People {
		if s.People[i].ID == id {
			return &s.People[i]
		}
	}
	return nil
}

func (s *State) ActivityByID(id uuid.UUID) *Activity {
	for i := range s.Activities {
		if s.Activities[i].ID == id {
			return &s.Activities[i]
		}
	}
	return nil
}

func (s *State) FamilyByID(id uuid.UUID) *Family {
	for i := range s.Families {
		if s.Families[i].ID == id {
			return &s.Families[i]
		}
	}
	return nil
}

// FamilyMemberIndexes returns indexes into People of everyone linked to the family.
func (s *State) FamilyMemberIndexes(familyID uuid.UUID) []int {
	var out []int
	for i := range s.People {
		if s.People[i].FamilyID != nil && *s.People[i].FamilyID == familyID {
			out = append(out, i)
		}
	}
	return out
}

// ActivityParticipants derives the participant list by scanning people; the
// activity itself is not the source of truth for membership.
func (s *State) ActivityParticipants(activityID uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for i := range s.People {
		if s.People[i].HasActivity(activityID) {
			out = append(out, s.People[i].ID)
		}
	}
	return out
}

// RemoveFamily deletes the family and unlinks every referencing person. It
// never cascade-deletes people. Returns how many people were unlinked.
func (s *State) RemoveFamily(familyID uuid.UUID) int {
	idx := -1
	for i := range s.Families {
		if s.Families[i].ID == familyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0
	}
	s.Families = append(s.Families[:idx], s.Families[idx+1:]...)

	unlinked := 0
	for i := range s.People {
		if s.People[i].FamilyID != nil && *s.People[i].FamilyID == familyID {
			s.People[i].FamilyID = nil
			unlinked++
		}
	}
	return unlinked
}

// AddConnection writes both sides of a relationship edge atomically. The
// import pipeline never calls this; connections belong to the surrounding app.
func (s *State) AddConnection(a, b uuid.UUID, connType ConnectionType, strength ConnectionStrength, description string) error {
	pa := s.PersonByID(a)
	pb := s.PersonByID(b)
	if pa == nil || pb == nil {
		return errors.Wrap(ErrPersonNotFound, "add connection")
	}
	now := time.Now().UTC()
	pa.Connections = append(pa.Connections, PersonConnection{
		PersonID:    b,
		Type:        connType,
		Strength:    strength,
		Description: description,
		DateAdded:   now,
	})
	pb.Connections = append(pb.Connections, PersonConnection{
		PersonID:    a,
		Type:        connType,
		Strength:    strength,
		Description: description,
		DateAdded:   now,
	})
	return nil
}

// RemoveConnection removes both sides of the edge between a and b.
func (s *State) RemoveConnection(a, b uuid.UUID) error {
	pa := s.PersonByID(a)
	pb := s.PersonByID(b)
	if pa == nil || pb == nil {
		return errors.Wrap(ErrPersonNotFound, "remove connection")
	}
	pa.Connections = dropConnection(pa.Connections, b)
	pb.Connections = dropConnection(pb.Connections, a)
	return nil
}

func dropConnection(conns []PersonConnection, otherID uuid.UUID) []PersonConnection {
	out := conns[:0]
	for _, c := range conns {
		if c.PersonID != otherID {
			out = append(out, c)
		}
	}
	return out
}
