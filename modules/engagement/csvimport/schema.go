package csvimport

import (
	"github.com/communityops/engage/modules/engagement/domain/model"
)

// ImportType selects which row shape a CSV carries.
type ImportType string

const (
	TypePerson    ImportType = "person"
	TypeActivity  ImportType = "activity"
	TypeLearning  ImportType = "learning"
	TypeHomeVisit ImportType = "homevisit"
)

func ImportTypes() []ImportType {
	return []ImportType{TypePerson, TypeActivity, TypeLearning, TypeHomeVisit}
}

// Column names as they appear in the intake spreadsheets.
const (
	colTimestamp           = "Timestamp"
	colYourName            = "Your Name"
	colYourNames           = "Your Name(s)"
	colPersonFullName      = "Person's Full Name"
	colPersonName          = "Person's Name"
	colFamilyName          = "Family Name"
	colAreaStreet          = "Area/Street"
	colArea                = "Area"
	colAgeGroup            = "Age Group"
	colPhone               = "Phone"
	colEmail               = "Email"
	colSchoolName          = "School Name"
	colEmploymentStatus    = "Employment Status"
	colCategories          = "Current Categories"
	colConnectedActivities = "Connected to Activities"
	colRuhiLevel           = "Ruhi Level"
	colHomeVisitDate       = "Home Visit Date"
	colConversationTopics  = "Conversation Topics"
	colFollowUpNeeded      = "Follow-Up Needed"
	colFollowUpDate        = "Follow-Up Date"
	colFollowUpCompleted   = "Follow-Up Completed"
	colNotes               = "Notes"
	colActivityName        = "Activity Name"
	colActivityType        = "Activity Type"
	colDate                = "Date"
	colFacilitatorName     = "Facilitator Name"
	colAttendeeNames       = "Attendee Names"
	colTotalAttendance     = "Total Attendance"
	colNewAttendees        = "New Attendees"
	colHighlights          = "Highlights/Notes"
	colMaterialsCovered    = "Materials Covered"
	colLearningType        = "Learning Type"
	colBookNumber          = "Book/Text/Grade Number"
	colDateCompleted       = "Date Completed"
	colNextSteps           = "Next Steps"
	colFamilyOrPerson      = "Family/Person Visited"
	colVisitDate           = "Visit Date"
	colPurpose             = "Purpose"
	colRelationships       = "Relationships Discovered"
	colInterests           = "Interests Expressed"
)

// expectedColumns is the full ordered column list per import type.
var expectedColumns = map[ImportType][]string{
	TypePerson: {
		colTimestamp, colYourName, colPersonFullName, colFamilyName, colAreaStreet,
		colAgeGroup, colPhone, colEmail, colSchoolName, colEmploymentStatus,
		colCategories, colConnectedActivities, colRuhiLevel, colHomeVisitDate,
		colConversationTopics, colFollowUpNeeded, colFollowUpDate, colNotes,
	},
	TypeActivity: {
		colTimestamp, colYourName, colActivityName, colActivityType, colDate,
		colFacilitatorName, colAttendeeNames, colTotalAttendance, colNewAttendees,
		colHighlights, colMaterialsCovered,
	},
	TypeLearning: {
		colTimestamp, colYourName, colPersonName, colLearningType, colBookNumber,
		colDateCompleted, colFacilitatorName, colNextSteps, colNotes,
	},
	TypeHomeVisit: {
		colTimestamp, colYourNames, colFamilyOrPerson, colArea, colVisitDate,
		colPurpose, colConversationTopics, colRelationships, colInterests,
		colNextSteps, colFollowUpDate, colFollowUpCompleted,
	},
}

// requiredColumns must all be present in the header and non-empty per row.
var requiredColumns = map[ImportType][]string{
	TypePerson:    {colPersonFullName, colFamilyName, colAreaStreet, colAgeGroup, colYourName},
	TypeActivity:  {colActivityName, colActivityType, colDate, colAttendeeNames, colYourName},
	TypeLearning:  {colPersonName, colLearningType, colBookNumber, colDateCompleted, colYourName},
	TypeHomeVisit: {colFamilyOrPerson, colArea, colVisitDate, colPurpose, colConversationTopics, colYourNames},
}

// RequiredColumns returns the required header subset for the given type.
func RequiredColumns(t ImportType) []string {
	return append([]string(nil), requiredColumns[t]...)
}

// ExpectedColumns returns the full expected header for the given type.
func ExpectedColumns(t ImportType) []string {
	return append([]string(nil), expectedColumns[t]...)
}

const (
	LearningRuhiBook = "Ruhi Book"
	LearningJYText   = "JY Text"
	LearningCCGrade  = "CC Grade"
)

var validLearningTypes = []string{LearningRuhiBook, LearningJYText, LearningCCGrade}

var validBooleans = []string{"yes", "no", "true", "false", "1", "0"}

func validAgeGroup(v string) bool {
	for _, g := range model.AgeGroups() {
		if string(g) == v {
			return true
		}
	}
	return false
}

func validEmploymentStatus(v string) bool {
	for _, s := range model.EmploymentStatuses() {
		if string(s) == v {
			return true
		}
	}
	return false
}

func validCategory(v string) bool {
	for _, c := range model.Categories() {
		if string(c) == v {
			return true
		}
	}
	return false
}

func validActivityType(v string) bool {
	for _, t := range model.ActivityTypes() {
		if string(t) == v {
			return true
		}
	}
	return false
}

func validVisitPurpose(v string) bool {
	for _, p := range model.VisitPurposes() {
		if string(p) == v {
			return true
		}
	}
	return false
}

func validLearningType(v string) bool {
	for _, t := range validLearningTypes {
		if t == v {
			return true
		}
	}
	return false
}
