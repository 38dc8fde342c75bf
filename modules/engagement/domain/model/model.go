package model

import (
	"time"

	"github.com/google/uuid"
)

type AgeGroup string

const (
	AgeGroupChild AgeGroup = "child"
	AgeGroupJY    AgeGroup = "JY"
	AgeGroupYouth AgeGroup = "youth"
	AgeGroupAdult AgeGroup = "adult"
	AgeGroupElder AgeGroup = "elder"
)

func AgeGroups() []AgeGroup {
	return []AgeGroup{AgeGroupChild, AgeGroupJY, AgeGroupYouth, AgeGroupAdult, AgeGroupElder}
}

type EmploymentStatus string

const (
	EmploymentStudent    EmploymentStatus = "student"
	EmploymentEmployed   EmploymentStatus = "employed"
	EmploymentUnemployed EmploymentStatus = "unemployed"
	EmploymentRetired    EmploymentStatus = "retired"
)

func EmploymentStatuses() []EmploymentStatus {
	return []EmploymentStatus{EmploymentStudent, EmploymentEmployed, EmploymentUnemployed, EmploymentRetired}
}

type ParticipationStatus string

const (
	ParticipationActive     ParticipationStatus = "active"
	ParticipationOccasional ParticipationStatus = "occasional"
	ParticipationLapsed     ParticipationStatus = "lapsed"
	ParticipationNew        ParticipationStatus = "new"
)

type Category string

const (
	CategoryJY      Category = "JY"
	CategoryCC      Category = "CC"
	CategoryYouth   Category = "Youth"
	CategoryParents Category = "Parents"
)

func Categories() []Category {
	return []Category{CategoryJY, CategoryCC, CategoryYouth, CategoryParents}
}

type ActivityType string

const (
	ActivityJY          ActivityType = "JY"
	ActivityCC          ActivityType = "CC"
	ActivityStudyCircle ActivityType = "Study Circle"
	ActivityDevotional  ActivityType = "Devotional"
)

func ActivityTypes() []ActivityType {
	return []ActivityType{ActivityJY, ActivityCC, ActivityStudyCircle, ActivityDevotional}
}

type VisitPurpose string

const (
	PurposeIntroduction VisitPurpose = "Introduction"
	PurposeFollowUp     VisitPurpose = "Follow-up"
	PurposeSocial       VisitPurpose = "Social"
	PurposeTeaching     VisitPurpose = "Teaching"
)

func VisitPurposes() []VisitPurpose {
	return []VisitPurpose{PurposeIntroduction, PurposeFollowUp, PurposeSocial, PurposeTeaching}
}

type ConnectionType string

const (
	ConnectionFamily       ConnectionType = "family"
	ConnectionSchool       ConnectionType = "school"
	ConnectionWork         ConnectionType = "work"
	ConnectionNeighborhood ConnectionType = "neighborhood"
	ConnectionActivity     ConnectionType = "activity"
	ConnectionFriendship   ConnectionType = "friendship"
)

// ConnectionStrength grades a relationship edge: 1=weak, 2=medium, 3=strong.
type ConnectionStrength int

const (
	StrengthWeak   ConnectionStrength = 1
	StrengthMedium ConnectionStrength = 2
	StrengthStrong ConnectionStrength = 3
)

// JYTextCompletion records one completed junior-youth text.
type JYTextCompletion struct {
	BookNumber    int       `json:"book_number"`
	DateCompleted time.Time `json:"date_completed"`
	Animator      string    `json:"animator,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// RuhiBookCompletion records one completed study-circle book.
type RuhiBookCompletion struct {
	BookNumber    int       `json:"book_number"`
	BookName      string    `json:"book_name"`
	DateCompleted time.Time `json:"date_completed"`
	Tutor         string    `json:"tutor,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// CCGradeCompletion records progress through one children's-class grade.
type CCGradeCompletion struct {
	GradeNumber      int       `json:"grade_number"`
	LessonsCompleted int       `json:"lessons_completed"`
	DateCompleted    time.Time `json:"date_completed,omitempty"`
	Teacher          string    `json:"teacher,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

type HomeVisit struct {
	Date                    time.Time    `json:"date"`
	Visitors                []string     `json:"visitors"`
	Purpose                 VisitPurpose `json:"purpose"`
	Notes                   string       `json:"notes"`
	RelationshipsDiscovered string       `json:"relationships_discovered,omitempty"`
	InterestsExpressed      string       `json:"interests_expressed,omitempty"`
	FollowUp                string       `json:"follow_up,omitempty"`
	FollowUpDate            time.Time    `json:"follow_up_date,omitempty"`
	Completed               bool         `json:"completed"`
}

type Conversation struct {
	Date         time.Time `json:"date"`
	Topic        string    `json:"topic"`
	Notes        string    `json:"notes"`
	NextSteps    string    `json:"next_steps,omitempty"`
	FollowUpDate time.Time `json:"follow_up_date,omitempty"`
}

// PersonConnection is one side of a bidirectional relationship edge.
type PersonConnection struct {
	PersonID    uuid.UUID          `json:"person_id"`
	Type        ConnectionType     `json:"type"`
	Strength    ConnectionStrength `json:"strength"`
	Description string             `json:"description,omitempty"`
	DateAdded   time.Time          `json:"date_added"`
}

type Family struct {
	ID          uuid.UUID `json:"id"`
	FamilyName  string    `json:"family_name"`
	PrimaryArea string    `json:"primary_area"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	DateAdded   time.Time `json:"date_added"`
}

type Person struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Area     string     `json:"area"`
	FamilyID *uuid.UUID `json:"family_id,omitempty"`

	AgeGroup         AgeGroup         `json:"age_group"`
	Phone            string           `json:"phone,omitempty"`
	Email            string           `json:"email,omitempty"`
	SchoolName       string           `json:"school_name,omitempty"`
	EmploymentStatus EmploymentStatus `json:"employment_status,omitempty"`

	Categories          []Category          `json:"categories"`
	ParticipationStatus ParticipationStatus `json:"participation_status"`
	ConnectedActivities []uuid.UUID         `json:"connected_activities"`

	// RuhiLevel is the highest completed study-circle book number (0-12).
	RuhiLevel        int                  `json:"ruhi_level"`
	JYTexts          []JYTextCompletion   `json:"jy_texts"`
	StudyCircleBooks []RuhiBookCompletion `json:"study_circle_books"`
	CCGrades         []CCGradeCompletion  `json:"cc_grades"`

	HomeVisits    []HomeVisit    `json:"home_visits"`
	Conversations []Conversation `json:"conversations"`

	Connections []PersonConnection `json:"connections"`

	Notes        string    `json:"notes,omitempty"`
	DateAdded    time.Time `json:"date_added"`
	LastModified time.Time `json:"last_modified"`
}

type Activity struct {
	ID           uuid.UUID    `json:"id"`
	Name         string       `json:"name"`
	Type         ActivityType `json:"type"`
	Facilitator  string       `json:"facilitator,omitempty"`
	Area         string       `json:"area,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	Materials    string       `json:"materials,omitempty"`
	DateCreated  time.Time    `json:"date_created"`
	LastModified time.Time    `json:"last_modified"`
}

// HasActivity reports whether the person is linked to the given activity.
func (p *Person) HasActivity(activityID uuid.UUID) bool {
	for _, id := range p.ConnectedActivities {
		if id == activityID {
			return true
		}
	}
	return false
}

// LinkActivity adds an activity link if not already present.
func (p *Person) LinkActivity(activityID uuid.UUID) bool {
	if p.HasActivity(activityID) {
		return false
	}
	p.ConnectedActivities = append(p.ConnectedActivities, activityID)
	return true
}

// HasRuhiBook reports whether the given book number is already recorded.
func (p *Person) HasRuhiBook(bookNumber int) bool {
	for _, b := range p.StudyCircleBooks {
		if b.BookNumber == bookNumber {
			return true
		}
	}
	return false
}

// HasJYText reports whether the given text number is already recorded.
func (p *Person) HasJYText(bookNumber int) bool {
	for _, b := range p.JYTexts {
		if b.BookNumber == bookNumber {
			return true
		}
	}
	return false
}

// HasCCGrade reports whether the given grade number is already recorded.
func (p *Person) HasCCGrade(gradeNumber int) bool {
	for _, g := range p.CCGrades {
		if g.GradeNumber == gradeNumber {
			return true
		}
	}
	return false
}
