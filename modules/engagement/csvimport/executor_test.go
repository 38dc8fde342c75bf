package csvimport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/communityops/engage/modules/engagement/domain/model"
)

func structureOK(t *testing.T, text string, explicitType ImportType) *ParseResult {
	t.Helper()
	result, err := Structure(text, explicitType)
	require.NoError(t, err)
	require.Empty(t, result.HeaderErrors)
	return result
}

func seedPerson(name, area string) model.Person {
	now := time.Now().UTC()
	return model.Person{
		ID:           uuid.New(),
		Name:         name,
		Area:         area,
		AgeGroup:     model.AgeGroupAdult,
		DateAdded:    now,
		LastModified: now,
	}
}

func TestExecuteImportCreatesPersonAndFamily(t *testing.T) {
	st := &model.State{}
	text := personCSV("Sam,John Smith,Smith,Oak Street,adult,JY|Youth,3,john@example.com")

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.SuccessCount)
	require.Equal(t, 0, summary.ErrorCount)
	require.Equal(t, 1, summary.Created.People)
	require.Equal(t, 1, summary.Created.Families)

	require.Len(t, st.People, 1)
	require.Len(t, st.Families, 1)

	p := st.People[0]
	require.Equal(t, "John Smith", p.Name)
	require.Equal(t, "Oak Street", p.Area)
	require.Equal(t, model.AgeGroupAdult, p.AgeGroup)
	require.Equal(t, 3, p.RuhiLevel)
	require.Equal(t, []model.Category{model.CategoryJY, model.CategoryYouth}, p.Categories)
	require.NotNil(t, p.FamilyID)
	require.Equal(t, st.Families[0].ID, *p.FamilyID)
	require.Equal(t, "Smith", st.Families[0].FamilyName)

	// Family creation precedes the person that references it.
	require.Len(t, summary.Actions, 2)
	require.Equal(t, EntityFamily, summary.Actions[0].Entity)
	require.Equal(t, ActionCreate, summary.Actions[0].Type)
	require.Equal(t, EntityPerson, summary.Actions[1].Entity)
}

func TestExecuteImportUpdatesExistingPerson(t *testing.T) {
	existing := seedPerson("John Smith", "Oak Street")
	existing.Notes = "knows the area well"
	existing.Phone = "555-0100"
	st := &model.State{People: []model.Person{existing}}

	text := personCSV("Sam,john smith,Smith,oak street,elder,CC,,")

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, TypePerson), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Updated.People)
	require.Equal(t, 0, summary.Created.People)
	require.Equal(t, 0, summary.Created.Families)
	require.Len(t, st.People, 1)

	p := st.People[0]
	require.Equal(t, []model.Category{model.CategoryCC}, p.Categories)
	require.Equal(t, model.AgeGroupElder, p.AgeGroup)
	// Empty CSV cells never clear existing values.
	require.Equal(t, "knows the area well", p.Notes)
	require.Equal(t, "555-0100", p.Phone)

	require.Len(t, summary.Actions, 1)
	action := summary.Actions[0]
	require.Equal(t, ActionUpdate, action.Type)
	require.Equal(t, existing.ID, action.EntityID)
	before, ok := action.Before.(model.Person)
	require.True(t, ok)
	require.Empty(t, before.Categories)
}

func TestExecuteImportSkipsErrorRows(t *testing.T) {
	st := &model.State{}
	text := personCSV(
		"Sam,John Smith,Smith,Oak Street,adult,JY,3,",
		"Sam,Jane Smith,Smith,Oak Street,toddler,JY,3,",
		"Sam,Ben Smith,Smith,Oak Street,child,JY,3,",
	)

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 2, summary.SuccessCount)
	require.Equal(t, 1, summary.ErrorCount)
	require.Len(t, st.People, 2)

	importErr := summary.Errors[0]
	require.Equal(t, 3, importErr.RowNumber)
	require.Equal(t, "Row", importErr.EntityName)
	require.Contains(t, importErr.Reason, "invalid age group")
}

func TestExecuteImportTenRowPartialFailure(t *testing.T) {
	rows := make([]string, 10)
	for i := range rows {
		age := "adult"
		if i == 4 { // fifth data row, file line 6
			age = "infant"
		}
		rows[i] = fmt.Sprintf("Sam,Person %d,Family %d,Oak Street,%s,JY,0,", i+1, i+1, age)
	}
	result := structureOK(t, personCSV(rows...), "")
	require.Equal(t, 9, result.ValidRows)
	require.Equal(t, 1, result.ErrorRows)

	st := &model.State{}
	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), result, st)
	require.NoError(t, err)

	require.Equal(t, 9, summary.SuccessCount)
	require.Equal(t, 9, summary.Created.People)
	require.Len(t, st.People, 9)
	require.Len(t, summary.Errors, 1)
	require.Equal(t, 6, summary.Errors[0].RowNumber)
}

func TestExecuteImportActivityMergeLinksAttendees(t *testing.T) {
	john := seedPerson("John Smith", "Oak Street")
	jane := seedPerson("Jane Smith", "Oak Street")
	activity := model.Activity{
		ID:          uuid.New(),
		Name:        "Oak Street JY Group",
		Type:        model.ActivityJY,
		Facilitator: "Old Facilitator",
		DateCreated: time.Now().UTC(),
	}
	st := &model.State{
		People:     []model.Person{john, jane},
		Activities: []model.Activity{activity},
	}

	text := "Your Name,Activity Name,Activity Type,Date,Attendee Names,Facilitator Name\n" +
		"Sam,oak street jy group,JY,2026-03-01,\"Jon Smith, Jane Smith\",New Facilitator"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	// Name match merges into the existing activity instead of duplicating it.
	require.Equal(t, 0, summary.Created.Activities)
	require.Equal(t, 1, summary.Updated.Activities)
	require.Len(t, st.Activities, 1)
	require.Equal(t, "New Facilitator", st.Activities[0].Facilitator)

	action := summary.Actions[0]
	require.Equal(t, ActionUpdate, action.Type)
	require.Equal(t, EntityActivity, action.Entity)
	before, ok := action.Before.(model.Activity)
	require.True(t, ok)
	require.Equal(t, "Old Facilitator", before.Facilitator)

	// "Jon Smith" resolves to John Smith through fuzzy matching.
	require.True(t, st.People[0].HasActivity(activity.ID))
	require.True(t, st.People[1].HasActivity(activity.ID))
}

func TestExecuteImportActivityCreatesWhenUnknown(t *testing.T) {
	st := &model.State{}
	text := "Your Name,Activity Name,Activity Type,Date,Attendee Names\n" +
		"Sam,Riverside Study Circle,Study Circle,2026-03-01,Jordan Lee"

	exec := NewExecutor()
	result := structureOK(t, text, "")
	require.Equal(t, 1, result.ValidRows)
	summary, err := exec.ExecuteImport(context.Background(), result, st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Created.Activities)
	require.Len(t, st.Activities, 1)
	require.Equal(t, model.ActivityStudyCircle, st.Activities[0].Type)
}

const learningHeader = "Your Name,Person's Name,Learning Type,Book/Text/Grade Number,Date Completed,Facilitator Name"

func TestExecuteImportLearningRuhiBook(t *testing.T) {
	john := seedPerson("John Smith", "Oak Street")
	john.RuhiLevel = 2
	st := &model.State{People: []model.Person{john}}

	text := learningHeader + "\nSam,John Smith,Ruhi Book,5,2026-01-10,Maria Lopez"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Updated.People)
	p := st.People[0]
	require.Len(t, p.StudyCircleBooks, 1)
	require.Equal(t, 5, p.StudyCircleBooks[0].BookNumber)
	require.Equal(t, "Maria Lopez", p.StudyCircleBooks[0].Tutor)
	require.Equal(t, 5, p.RuhiLevel)

	// Re-importing the same completion is a no-op, not a duplicate.
	summary2, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)
	require.Equal(t, 1, summary2.SuccessCount)
	require.Equal(t, 0, summary2.Updated.People)
	require.Empty(t, summary2.Actions)
	require.Len(t, st.People[0].StudyCircleBooks, 1)
	require.Equal(t, 5, st.People[0].RuhiLevel)
}

func TestExecuteImportLearningRuhiLevelNeverLowered(t *testing.T) {
	john := seedPerson("John Smith", "Oak Street")
	john.RuhiLevel = 7
	st := &model.State{People: []model.Person{john}}

	text := learningHeader + "\nSam,John Smith,Ruhi Book,3,2026-01-10,"

	exec := NewExecutor()
	_, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 7, st.People[0].RuhiLevel)
	require.Len(t, st.People[0].StudyCircleBooks, 1)
}

func TestExecuteImportLearningUnknownPerson(t *testing.T) {
	st := &model.State{}
	text := learningHeader + "\nSam,Nobody Known,JY Text,1,2026-01-10,"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 0, summary.SuccessCount)
	require.Equal(t, 1, summary.ErrorCount)
	require.Equal(t, "Nobody Known", summary.Errors[0].EntityName)
	require.Contains(t, summary.Errors[0].Reason, "not found in system")
}

const homeVisitHeader = "Your Name(s),Family/Person Visited,Area,Visit Date,Purpose,Conversation Topics,Next Steps,Follow-Up Completed"

func TestExecuteImportHomeVisitFansOutToFamily(t *testing.T) {
	family := model.Family{ID: uuid.New(), FamilyName: "Smith", PrimaryArea: "Oak Street", DateAdded: time.Now().UTC()}
	members := []model.Person{
		seedPerson("John Smith", "Oak Street"),
		seedPerson("Jane Smith", "Oak Street"),
		seedPerson("Ben Smith", "Oak Street"),
	}
	for i := range members {
		members[i].FamilyID = &family.ID
	}
	st := &model.State{People: members, Families: []model.Family{family}}

	text := homeVisitHeader + "\n" +
		"\"Sam, Maria\",Smith,Oak Street,2026-02-10,Introduction,First visit to the family,Invite to devotional,No"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	// Every family member receives the visit and counts as an update.
	require.Equal(t, 3, summary.Updated.People)
	require.Len(t, summary.Actions, 3)
	for _, p := range st.People {
		require.Len(t, p.HomeVisits, 1)
		visit := p.HomeVisits[0]
		require.Equal(t, model.PurposeIntroduction, visit.Purpose)
		require.Equal(t, []string{"Sam", "Maria"}, visit.Visitors)
		require.Equal(t, "Invite to devotional", visit.FollowUp)
		require.False(t, visit.Completed)
	}
}

func TestExecuteImportHomeVisitPrefersExactPerson(t *testing.T) {
	john := seedPerson("John Smith", "Oak Street")
	st := &model.State{People: []model.Person{john}}

	text := homeVisitHeader + "\n" +
		"Sam,John Smith,Oak Street,2026-02-10,Follow-up,Checked in after the festival,,Yes"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.Updated.People)
	require.Len(t, st.People[0].HomeVisits, 1)
	require.True(t, st.People[0].HomeVisits[0].Completed)
}

func TestExecuteImportHomeVisitFamilyWithoutMembers(t *testing.T) {
	family := model.Family{ID: uuid.New(), FamilyName: "Smith", PrimaryArea: "Oak Street"}
	st := &model.State{Families: []model.Family{family}}

	text := homeVisitHeader + "\nSam,Smith,Oak Street,2026-02-10,Social,Brief chat,,No"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.ErrorCount)
	require.Contains(t, summary.Errors[0].Reason, "no linked members")
}

func TestExecuteImportHomeVisitNobodyFound(t *testing.T) {
	st := &model.State{}
	text := homeVisitHeader + "\nSam,Ghost Family,Nowhere,2026-02-10,Social,Nothing,,No"

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, ""), st)
	require.NoError(t, err)

	require.Equal(t, 1, summary.ErrorCount)
	require.Contains(t, summary.Errors[0].Reason, "not found in system")
}

func TestRestoreBackupRoundTrip(t *testing.T) {
	existing := seedPerson("John Smith", "Oak Street")
	st := &model.State{People: []model.Person{existing}}
	pristine := st.Clone()

	text := personCSV(
		"Sam,John Smith,Smith,Oak Street,elder,CC,5,",
		"Sam,New Person,Jones,Elm Street,adult,Youth,0,",
	)

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(context.Background(), structureOK(t, text, TypePerson), st)
	require.NoError(t, err)
	require.Len(t, st.People, 2)

	backup, ok := exec.RestoreBackup(summary.BackupID)
	require.True(t, ok)
	require.Equal(t, summary.BackupID, backup.ID)
	require.Equal(t, pristine, backup.State)
	require.Len(t, backup.Actions, len(summary.Actions))

	// The snapshot is detached from the live state.
	require.Len(t, backup.State.People, 1)
	require.Equal(t, model.AgeGroupAdult, backup.State.People[0].AgeGroup)

	_, ok = exec.RestoreBackup(uuid.New())
	require.False(t, ok)
}

func TestExecuteImportContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &model.State{}
	text := personCSV("Sam,John Smith,Smith,Oak Street,adult,JY,3,")

	exec := NewExecutor()
	summary, err := exec.ExecuteImport(ctx, structureOK(t, text, ""), st)
	require.ErrorIs(t, err, context.Canceled)

	// An aborted import still hands back the backup id for rollback.
	require.NotNil(t, summary)
	require.NotEqual(t, uuid.Nil, summary.BackupID)
	backup, ok := exec.RestoreBackup(summary.BackupID)
	require.True(t, ok)
	require.Empty(t, backup.State.People)
}
