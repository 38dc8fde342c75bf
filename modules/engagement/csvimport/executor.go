package csvimport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/communityops/engage/modules/engagement/domain/model"
	"github.com/communityops/engage/modules/engagement/match"
)

// DefaultAttendeeThreshold is the fuzzy threshold for resolving attendee and
// learning-row person names.
const DefaultAttendeeThreshold = 0.7

type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
)

type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntityFamily   EntityType = "family"
	EntityActivity EntityType = "activity"
)

// ImportAction records one mutation. Updates carry the pre-mutation snapshot
// so the change stays explainable even though undo is snapshot-based.
type ImportAction struct {
	Type     ActionType `json:"type"`
	Entity   EntityType `json:"entity"`
	EntityID uuid.UUID  `json:"entity_id"`
	Data     any        `json:"data"`
	Before   any        `json:"before,omitempty"`
}

type ImportError struct {
	RowNumber  int    `json:"row_number"`
	EntityName string `json:"entity_name"`
	Reason     string `json:"reason"`
}

type EntityCounts struct {
	People     int `json:"people"`
	Families   int `json:"families,omitempty"`
	Activities int `json:"activities"`
}

type ImportSummary struct {
	SuccessCount int            `json:"success_count"`
	WarningCount int            `json:"warning_count"`
	ErrorCount   int            `json:"error_count"`
	Created      EntityCounts   `json:"created"`
	Updated      EntityCounts   `json:"updated"`
	Errors       []ImportError  `json:"errors"`
	Actions      []ImportAction `json:"actions"`
	Timestamp    time.Time      `json:"timestamp"`
	BackupID     uuid.UUID      `json:"backup_id"`
}

// Backup is a full pre-import snapshot plus the actions the import took.
// Applying it (replacing the live collections wholesale) is the caller's job.
type Backup struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	State     *model.State   `json:"state"`
	Actions   []ImportAction `json:"actions"`
}

// Executor applies structured parse results to the live collections. Backups
// accumulate in memory for the life of the process; there is no eviction.
// The executor must not run concurrently against the same state.
type Executor struct {
	// AttendeeThreshold tunes fuzzy person resolution for attendee and
	// learning rows. Set before the first ExecuteImport call.
	AttendeeThreshold float64

	mu      sync.Mutex
	backups map[uuid.UUID]*Backup
}

func NewExecutor() *Executor {
	return &Executor{
		AttendeeThreshold: DefaultAttendeeThreshold,
		backups:           make(map[uuid.UUID]*Backup),
	}
}

func (e *Executor) storeBackup(b *Backup) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backups[b.ID] = b
}

// RestoreBackup returns the stored snapshot for the id, if any. There is no
// selective undo: the caller replaces the live collections wholesale.
func (e *Executor) RestoreBackup(id uuid.UUID) (*Backup, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.backups[id]
	return b, ok
}

// ExecuteImport applies every valid row of the parse result to the state,
// mutating it in place. A full snapshot is taken before any mutation. Row
// failures accumulate in the summary; only context cancellation aborts. On
// abort the partial summary is returned alongside the error so the caller
// still holds the backup id needed to roll back the partial work.
func (e *Executor) ExecuteImport(ctx context.Context, result *ParseResult, st *model.State) (*ImportSummary, error) {
	backup := &Backup{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		State:     st.Clone(),
	}
	e.storeBackup(backup)

	summary := &ImportSummary{BackupID: backup.ID}

	for _, row := range result.Rows {
		if err := ctx.Err(); err != nil {
			e.finalize(summary, backup)
			return summary, err
		}

		if row.HasWarnings() {
			summary.WarningCount++
		}
		if row.HasBlockingErrors() {
			summary.Errors = append(summary.Errors, ImportError{
				RowNumber:  row.RowNumber,
				EntityName: "Row",
				Reason:     row.ErrorMessages(),
			})
			continue
		}

		errsBefore := len(summary.Errors)
		e.processRow(result.ImportType, row, st, summary)
		if len(summary.Errors) == errsBefore {
			summary.SuccessCount++
		}
	}

	e.finalize(summary, backup)
	return summary, nil
}

func (e *Executor) finalize(summary *ImportSummary, backup *Backup) {
	summary.ErrorCount = len(summary.Errors)
	summary.Timestamp = time.Now().UTC()
	backup.Actions = append([]ImportAction(nil), summary.Actions...)
}

// processRow dispatches one valid row and contains its failures: a returned
// row error or a panic is recorded against this row only.
func (e *Executor) processRow(importType ImportType, row ParsedRow, st *model.State, summary *ImportSummary) {
	defer func() {
		if r := recover(); r != nil {
			summary.Errors = append(summary.Errors, ImportError{
				RowNumber:  row.RowNumber,
				EntityName: "Processing",
				Reason:     fmt.Sprintf("row processing failed: %v", r),
			})
		}
	}()

	var rowErr *ImportError
	switch importType {
	case TypePerson:
		rowErr = e.processPerson(row, st, summary)
	case TypeActivity:
		rowErr = e.processActivity(row, st, summary)
	case TypeLearning:
		rowErr = e.processLearning(row, st, summary)
	case TypeHomeVisit:
		rowErr = e.processHomeVisit(row, st, summary)
	}
	if rowErr != nil {
		rowErr.RowNumber = row.RowNumber
		summary.Errors = append(summary.Errors, *rowErr)
	}
}

func field(row ParsedRow, column string) string {
	return strings.TrimSpace(row.Data[column])
}

func (e *Executor) processPerson(row ParsedRow, st *model.State, summary *ImportSummary) *ImportError {
	personName := field(row, colPersonFullName)
	familyName := field(row, colFamilyName)
	area := field(row, colAreaStreet)
	if personName == "" || familyName == "" || area == "" {
		return &ImportError{EntityName: orUnknown(personName), Reason: "missing required fields"}
	}

	now := time.Now().UTC()

	if idx := match.FindPersonExact(personName, area, st.People); idx >= 0 {
		p := &st.People[idx]
		before := p.Clone()

		// Partial update: fields absent from the CSV are never cleared.
		if v := field(row, colAgeGroup); v != "" {
			p.AgeGroup = model.AgeGroup(v)
		}
		if v := field(row, colPhone); v != "" {
			p.Phone = v
		}
		if v := field(row, colEmail); v != "" {
			p.Email = v
		}
		if v := field(row, colSchoolName); v != "" {
			p.SchoolName = v
		}
		if v := field(row, colEmploymentStatus); v != "" {
			p.EmploymentStatus = model.EmploymentStatus(v)
		}
		if v := field(row, colCategories); v != "" {
			p.Categories = toCategories(SplitPipe(v))
		}
		if v := field(row, colConnectedActivities); v != "" {
			for _, id := range resolveActivityIDs(SplitPipe(v), st.Activities) {
				p.LinkActivity(id)
			}
		}
		if v := field(row, colRuhiLevel); v != "" {
			if n, ok := ParseInt(v); ok {
				p.RuhiLevel = n
			}
		}
		if v := field(row, colNotes); v != "" {
			p.Notes = v
		}
		if visit, ok := homeVisitFromPersonRow(row); ok {
			p.HomeVisits = append(p.HomeVisits, visit)
		}
		p.LastModified = now

		summary.Updated.People++
		summary.Actions = append(summary.Actions, ImportAction{
			Type: ActionUpdate, Entity: EntityPerson, EntityID: p.ID,
			Data: p.Clone(), Before: before,
		})
		return nil
	}

	// New person: resolve or create the family first.
	var familyID uuid.UUID
	if idx := match.FindFamilyExact(familyName, st.Families); idx >= 0 {
		familyID = st.Families[idx].ID
	} else {
		family := model.Family{
			ID:          uuid.New(),
			FamilyName:  familyName,
			PrimaryArea: area,
			Phone:       field(row, colPhone),
			Email:       field(row, colEmail),
			Notes:       field(row, colNotes),
			DateAdded:   now,
		}
		st.Families = append(st.Families, family)
		familyID = family.ID
		summary.Created.Families++
		summary.Actions = append(summary.Actions, ImportAction{
			Type: ActionCreate, Entity: EntityFamily, EntityID: family.ID, Data: family,
		})
	}

	person := model.Person{
		ID:                  uuid.New(),
		Name:                personName,
		Area:                area,
		FamilyID:            &familyID,
		AgeGroup:            model.AgeGroupChild,
		EmploymentStatus:    model.EmploymentStudent,
		Categories:          toCategories(SplitPipe(field(row, colCategories))),
		ParticipationStatus: model.ParticipationNew,
		ConnectedActivities: resolveActivityIDs(SplitPipe(field(row, colConnectedActivities)), st.Activities),
		Phone:               field(row, colPhone),
		Email:               field(row, colEmail),
		SchoolName:          field(row, colSchoolName),
		Notes:               field(row, colNotes),
		DateAdded:           now,
		LastModified:        now,
	}
	if v := field(row, colAgeGroup); v != "" {
		person.AgeGroup = model.AgeGroup(v)
	}
	if v := field(row, colEmploymentStatus); v != "" {
		person.EmploymentStatus = model.EmploymentStatus(v)
	}
	if n, ok := ParseInt(field(row, colRuhiLevel)); ok {
		person.RuhiLevel = n
	}
	if visit, ok := homeVisitFromPersonRow(row); ok {
		person.HomeVisits = append(person.HomeVisits, visit)
	}

	st.People = append(st.People, person)
	summary.Created.People++
	summary.Actions = append(summary.Actions, ImportAction{
		Type: ActionCreate, Entity: EntityPerson, EntityID: person.ID, Data: person.Clone(),
	})
	return nil
}

func (e *Executor) processActivity(row ParsedRow, st *model.State, summary *ImportSummary) *ImportError {
	activityName := field(row, colActivityName)
	activityType := field(row, colActivityType)
	date := field(row, colDate)
	if activityName == "" || activityType == "" || date == "" {
		return &ImportError{EntityName: orUnknown(activityName), Reason: "missing required fields"}
	}

	now := time.Now().UTC()

	var activityID uuid.UUID
	if idx := match.FindActivityExact(activityName, st.Activities); idx >= 0 {
		a := &st.Activities[idx]
		before := *a

		// CSV values win when present; existing values survive otherwise.
		if v := field(row, colFacilitatorName); v != "" {
			a.Facilitator = v
		}
		if v := field(row, colHighlights); v != "" {
			a.Notes = v
		}
		if v := field(row, colMaterialsCovered); v != "" {
			a.Materials = v
		}
		a.LastModified = now
		activityID = a.ID

		summary.Updated.Activities++
		summary.Actions = append(summary.Actions, ImportAction{
			Type: ActionUpdate, Entity: EntityActivity, EntityID: a.ID,
			Data: *a, Before: before,
		})
	} else {
		activity := model.Activity{
			ID:           uuid.New(),
			Name:         activityName,
			Type:         model.ActivityType(activityType),
			Facilitator:  field(row, colFacilitatorName),
			Notes:        field(row, colHighlights),
			Materials:    field(row, colMaterialsCovered),
			DateCreated:  now,
			LastModified: now,
		}
		st.Activities = append(st.Activities, activity)
		activityID = activity.ID

		summary.Created.Activities++
		summary.Actions = append(summary.Actions, ImportAction{
			Type: ActionCreate, Entity: EntityActivity, EntityID: activity.ID, Data: activity,
		})
	}

	// Link attendees to the activity; linking is idempotent.
	for _, attendee := range SplitComma(field(row, colAttendeeNames)) {
		matches := match.FindSimilarPeople(attendee, st.People, e.AttendeeThreshold)
		if len(matches) == 0 {
			continue
		}
		if p := st.PersonByID(matches[0].ID); p != nil {
			p.LinkActivity(activityID)
		}
	}
	return nil
}

func (e *Executor) processLearning(row ParsedRow, st *model.State, summary *ImportSummary) *ImportError {
	personName := field(row, colPersonName)
	learningType := field(row, colLearningType)
	bookField := field(row, colBookNumber)
	if personName == "" || learningType == "" || bookField == "" {
		return &ImportError{EntityName: orUnknown(personName), Reason: "missing required fields"}
	}

	matches := match.FindSimilarPeople(personName, st.People, e.AttendeeThreshold)
	if len(matches) == 0 {
		return &ImportError{EntityName: personName, Reason: fmt.Sprintf("person %q not found in system", personName)}
	}
	p := st.PersonByID(matches[0].ID)
	if p == nil {
		return &ImportError{EntityName: personName, Reason: fmt.Sprintf("person %q not found in system", personName)}
	}

	number, ok := ParseInt(bookField)
	if !ok {
		return &ImportError{EntityName: personName, Reason: fmt.Sprintf("invalid book/grade number %q", bookField)}
	}

	dateCompleted := time.Now().UTC().Truncate(24 * time.Hour)
	if v := field(row, colDateCompleted); v != "" {
		if t, err := ParseDate(v); err == nil {
			dateCompleted = t
		}
	}
	facilitator := field(row, colFacilitatorName)
	notes := field(row, colNotes)

	before := p.Clone()
	changed := false

	switch learningType {
	case LearningRuhiBook:
		if !p.HasRuhiBook(number) {
			p.StudyCircleBooks = append(p.StudyCircleBooks, model.RuhiBookCompletion{
				BookNumber:    number,
				BookName:      fmt.Sprintf("Ruhi Book %d", number),
				DateCompleted: dateCompleted,
				Tutor:         facilitator,
				Notes:         notes,
			})
			changed = true
		}
		if number > p.RuhiLevel {
			p.RuhiLevel = number
			changed = true
		}
	case LearningJYText:
		if !p.HasJYText(number) {
			p.JYTexts = append(p.JYTexts, model.JYTextCompletion{
				BookNumber:    number,
				DateCompleted: dateCompleted,
				Animator:      facilitator,
				Notes:         notes,
			})
			changed = true
		}
	case LearningCCGrade:
		if !p.HasCCGrade(number) {
			p.CCGrades = append(p.CCGrades, model.CCGradeCompletion{
				GradeNumber:      number,
				LessonsCompleted: defaultCCLessons,
				DateCompleted:    dateCompleted,
				Teacher:          facilitator,
				Notes:            notes,
			})
			changed = true
		}
	}

	if !changed {
		return nil // already recorded, nothing to do
	}

	p.LastModified = time.Now().UTC()
	summary.Updated.People++
	summary.Actions = append(summary.Actions, ImportAction{
		Type: ActionUpdate, Entity: EntityPerson, EntityID: p.ID,
		Data: p.Clone(), Before: before,
	})
	return nil
}

// defaultCCLessons is assumed when the intake sheet does not track lesson counts.
const defaultCCLessons = 20

func (e *Executor) processHomeVisit(row ParsedRow, st *model.State, summary *ImportSummary) *ImportError {
	name := field(row, colFamilyOrPerson)
	area := field(row, colArea)
	visitDateRaw := field(row, colVisitDate)
	topics := field(row, colConversationTopics)
	if name == "" || area == "" || visitDateRaw == "" || topics == "" {
		return &ImportError{EntityName: orUnknown(name), Reason: "missing required fields"}
	}

	visitDate, err := ParseDate(visitDateRaw)
	if err != nil {
		return &ImportError{EntityName: name, Reason: fmt.Sprintf("invalid visit date %q", visitDateRaw)}
	}

	visit := model.HomeVisit{
		Date:                    visitDate,
		Visitors:                SplitComma(field(row, colYourNames)),
		Purpose:                 model.PurposeSocial,
		Notes:                   topics,
		RelationshipsDiscovered: field(row, colRelationships),
		InterestsExpressed:      field(row, colInterests),
		FollowUp:                field(row, colNextSteps),
		Completed:               ParseBool(field(row, colFollowUpCompleted)),
	}
	if v := field(row, colPurpose); v != "" {
		visit.Purpose = model.VisitPurpose(v)
	}
	if v := field(row, colFollowUpDate); v != "" {
		if t, err := ParseDate(v); err == nil {
			visit.FollowUpDate = t
		}
	}

	now := time.Now().UTC()

	if idx := match.FindPersonExact(name, area, st.People); idx >= 0 {
		p := &st.People[idx]
		before := p.Clone()
		p.HomeVisits = append(p.HomeVisits, visit.Clone())
		p.LastModified = now

		summary.Updated.People++
		summary.Actions = append(summary.Actions, ImportAction{
			Type: ActionUpdate, Entity: EntityPerson, EntityID: p.ID,
			Data: p.Clone(), Before: before,
		})
		return nil
	}

	if idx := match.FindFamilyExact(name, st.Families); idx >= 0 {
		memberIdxs := st.FamilyMemberIndexes(st.Families[idx].ID)
		if len(memberIdxs) == 0 {
			return &ImportError{EntityName: name, Reason: fmt.Sprintf("family %q has no linked members", name)}
		}
		// Fan-out: every family member gets the same visit record.
		for _, i := range memberIdxs {
			p := &st.People[i]
			before := p.Clone()
			p.HomeVisits = append(p.HomeVisits, visit.Clone())
			p.LastModified = now

			summary.Updated.People++
			summary.Actions = append(summary.Actions, ImportAction{
				Type: ActionUpdate, Entity: EntityPerson, EntityID: p.ID,
				Data: p.Clone(), Before: before,
			})
		}
		return nil
	}

	return &ImportError{EntityName: name, Reason: fmt.Sprintf("family or person %q not found in system", name)}
}

func orUnknown(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

func toCategories(values []string) []model.Category {
	out := make([]model.Category, 0, len(values))
	for _, v := range values {
		out = append(out, model.Category(v))
	}
	return out
}

func resolveActivityIDs(names []string, activities []model.Activity) []uuid.UUID {
	var out []uuid.UUID
	for _, name := range names {
		if idx := match.FindActivityExact(name, activities); idx >= 0 {
			out = append(out, activities[idx].ID)
		}
	}
	return out
}

func homeVisitFromPersonRow(row ParsedRow) (model.HomeVisit, bool) {
	raw := field(row, colHomeVisitDate)
	if raw == "" {
		return model.HomeVisit{}, false
	}
	date, err := ParseDate(raw)
	if err != nil {
		return model.HomeVisit{}, false
	}
	visit := model.HomeVisit{
		Date:     date,
		Visitors: []string{field(row, colYourName)},
		Purpose:  model.PurposeSocial,
		Notes:    field(row, colConversationTopics),
	}
	if v := field(row, colFollowUpDate); v != "" {
		if t, err := ParseDate(v); err == nil {
			visit.FollowUpDate = t
		}
	}
	return visit, true
}
