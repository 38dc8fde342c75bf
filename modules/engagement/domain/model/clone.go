package model

import "github.com/google/uuid"

// Clone returns a deep copy of the state. Backups rely on this being a full
// copy: no slice or pointer may be shared with the original, and nil slices
// stay nil so a restored snapshot compares deep-equal to the source.
func (s *State) Clone() *State {
	out := &State{}
	if s.People != nil {
		out.People = make([]Person, len(s.People))
		for i := range s.People {
			out.People[i] = s.People[i].Clone()
		}
	}
	if s.Activities != nil {
		out.Activities = make([]Activity, len(s.Activities))
		copy(out.Activities, s.Activities)
	}
	if s.Families != nil {
		out.Families = make([]Family, len(s.Families))
		copy(out.Families, s.Families)
	}
	return out
}

func (p Person) Clone() Person {
	out := p
	if p.FamilyID != nil {
		id := *p.FamilyID
		out.FamilyID = &id
	}
	out.Categories = append([]Category(nil), p.Categories...)
	out.ConnectedActivities = append([]uuid.UUID(nil), p.ConnectedActivities...)
	out.JYTexts = append([]JYTextCompletion(nil), p.JYTexts...)
	out.StudyCircleBooks = append([]RuhiBookCompletion(nil), p.StudyCircleBooks...)
	out.CCGrades = append([]CCGradeCompletion(nil), p.CCGrades...)
	if p.HomeVisits != nil {
		out.HomeVisits = make([]HomeVisit, len(p.HomeVisits))
		for i, v := range p.HomeVisits {
			out.HomeVisits[i] = v.Clone()
		}
	}
	out.Conversations = append([]Conversation(nil), p.Conversations...)
	out.Connections = append([]PersonConnection(nil), p.Connections...)
	return out
}

func (v HomeVisit) Clone() HomeVisit {
	out := v
	out.Visitors = append([]string(nil), v.Visitors...)
	return out
}
