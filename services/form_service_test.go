package services

import (
	"errors"
	"testing"
	"time"

	"hr-review-api/models"
)

const (
	staffID    = 1
	reviewerID = 2
	employeeID = 3
	outsiderID = 9
)

func setupFormFixture(t *testing.T) (*FormService, *CycleService, func() []models.ReviewForm) {
	t.Helper()
	db := newTestDB(t)

	seedUser(t, db, staffID, models.RoleAdmin, "admin")
	seedUser(t, db, reviewerID, models.RoleEmployee, "reviewer")
	seedUser(t, db, employeeID, models.RoleEmployee, "employee")
	seedUser(t, db, outsiderID, models.RoleEmployee, "outsider")

	seedCycle(t, db, 1, models.CycleStatusActive, time.Now().AddDate(0, 1, 0))
	seedAssignment(t, db, 1, employeeID, reviewerID, models.ReviewerTypePeer)

	forms := func() []models.ReviewForm {
		var rows []models.ReviewForm
		if err := db.Order("form_id ASC").Find(&rows).Error; err != nil {
			t.Fatalf("load forms: %v", err)
		}
		return rows
	}
	return NewFormService(db), NewCycleService(db), forms
}

func reviewerCaller() Caller { return Caller{UserID: reviewerID, RoleID: models.RoleEmployee} }

func peerInput() FormInput {
	return FormInput{
		CycleID:      1,
		EmployeeID:   employeeID,
		ReviewerID:   reviewerID,
		ReviewerType: models.ReviewerTypePeer,
	}
}

func completeInput() FormInput {
	input := peerInput()
	input.GoalsAchievement = strPtr("Delivered the migration project")
	input.Strengths = strPtr("Thorough and dependable")
	input.Improvements = strPtr("Delegate more")
	input.KPIScores = models.KPIScoreList{
		{Name: "Technical", Score: 4},
		{Name: "Communication", Score: 5},
		{Name: "Teamwork", Score: 3},
	}
	return input
}

func TestDeriveOverallRating(t *testing.T) {
	tests := []struct {
		name   string
		scores models.KPIScoreList
		want   int
		wantOK bool
	}{
		{
			name: "mean 4.0 rounds to 4",
			scores: models.KPIScoreList{
				{Name: "Technical", Score: 4},
				{Name: "Communication", Score: 5},
				{Name: "Teamwork", Score: 3},
			},
			want:   4,
			wantOK: true,
		},
		{
			name:   "mean 3.5 rounds half up to 4",
			scores: models.KPIScoreList{{Name: "A", Score: 3}, {Name: "B", Score: 4}},
			want:   4,
			wantOK: true,
		},
		{
			name:   "mean 2.5 rounds half up to 3",
			scores: models.KPIScoreList{{Name: "A", Score: 2}, {Name: "B", Score: 3}},
			want:   3,
			wantOK: true,
		},
		{
			name: "out of range scores are excluded",
			scores: models.KPIScoreList{
				{Name: "A", Score: 0},
				{Name: "B", Score: 6},
				{Name: "C", Score: 3},
			},
			want:   3,
			wantOK: true,
		},
		{
			name:   "no valid score leaves rating unset",
			scores: models.KPIScoreList{{Name: "A", Score: 0}, {Name: "B", Score: -2}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DeriveOverallRating(tt.scores)
			if ok != tt.wantOK {
				t.Fatalf("DeriveOverallRating ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("DeriveOverallRating = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSaveFormUpsertMergesDraftFields(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	first := peerInput()
	first.Strengths = strPtr("Great mentor")
	if _, err := svc.SaveForm(reviewerCaller(), first, models.FormStatusDraft); err != nil {
		t.Fatalf("first save: %v", err)
	}

	rows := forms()
	if len(rows) != 1 {
		t.Fatalf("expected 1 form after first save, got %d", len(rows))
	}
	firstUpdate := rows[0].UpdateAt

	second := peerInput()
	second.GoalsAchievement = strPtr("Shipped roadmap items")
	if _, err := svc.SaveForm(reviewerCaller(), second, models.FormStatusDraft); err != nil {
		t.Fatalf("second save: %v", err)
	}

	rows = forms()
	if len(rows) != 1 {
		t.Fatalf("expected 1 form after second save, got %d", len(rows))
	}
	form := rows[0]

	if form.Strengths == nil || *form.Strengths != "Great mentor" {
		t.Fatalf("strengths not retained through merge: %v", form.Strengths)
	}
	if form.GoalsAchievement == nil || *form.GoalsAchievement != "Shipped roadmap items" {
		t.Fatalf("goals not applied by merge: %v", form.GoalsAchievement)
	}
	if form.UpdateAt.Before(firstUpdate) {
		t.Fatalf("update_at went backwards: %v -> %v", firstUpdate, form.UpdateAt)
	}
	if form.Status != models.FormStatusDraft {
		t.Fatalf("expected draft status, got %s", form.Status)
	}
}

func TestSaveFormDerivesRatingFromKPIScores(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	input := peerInput()
	input.KPIScores = models.KPIScoreList{
		{Name: "Technical", Score: 4},
		{Name: "Communication", Score: 5},
		{Name: "Teamwork", Score: 3},
	}
	if _, err := svc.SaveForm(reviewerCaller(), input, models.FormStatusDraft); err != nil {
		t.Fatalf("save: %v", err)
	}

	form := forms()[0]
	if form.OverallRating == nil || *form.OverallRating != 4 {
		t.Fatalf("expected derived rating 4, got %v", form.OverallRating)
	}
	if len(form.KPIScores) != 3 || form.KPIScores[0].Name != "Technical" {
		t.Fatalf("kpi scores not stored in order: %+v", form.KPIScores)
	}
}

func TestSaveFormExplicitRatingWins(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	input := peerInput()
	input.OverallRating = intPtr(2)
	input.KPIScores = models.KPIScoreList{{Name: "A", Score: 5}, {Name: "B", Score: 5}}
	if _, err := svc.SaveForm(reviewerCaller(), input, models.FormStatusDraft); err != nil {
		t.Fatalf("save: %v", err)
	}

	form := forms()[0]
	if form.OverallRating == nil || *form.OverallRating != 2 {
		t.Fatalf("explicit rating should win over derived, got %v", form.OverallRating)
	}
}

func TestSubmitRequiresCompleteFields(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	// Park a draft first so the gate provably modifies nothing.
	draft := peerInput()
	draft.Strengths = strPtr("")
	if _, err := svc.SaveForm(reviewerCaller(), draft, models.FormStatusDraft); err != nil {
		t.Fatalf("draft save: %v", err)
	}

	input := completeInput()
	input.Strengths = strPtr("   ")
	_, err := svc.SaveForm(reviewerCaller(), input, models.FormStatusSubmitted)

	var incomplete *IncompleteFormError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteFormError, got %v", err)
	}
	found := false
	for _, field := range incomplete.Missing {
		if field == "strengths" {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing fields should name strengths: %v", incomplete.Missing)
	}

	form := forms()[0]
	if form.Status != models.FormStatusDraft {
		t.Fatalf("failed submission must not change status, got %s", form.Status)
	}
	if form.GoalsAchievement != nil {
		t.Fatalf("failed submission must persist nothing, goals = %q", *form.GoalsAchievement)
	}
}

func TestSaveFormWithoutAssignment(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	input := completeInput()
	input.ReviewerType = models.ReviewerTypeManager // no manager assignment exists

	_, err := svc.SaveForm(reviewerCaller(), input, models.FormStatusDraft)
	var notFound *AssignmentNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected AssignmentNotFoundError, got %v", err)
	}
	if len(forms()) != 0 {
		t.Fatalf("no form may exist without an assignment")
	}
}

func TestSubmitCompletesAssignmentExactlyOnce(t *testing.T) {
	svc, _, forms := setupFormFixture(t)
	db := svc.db

	result, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Warning != "" {
		t.Fatalf("unexpected warning: %s", result.Warning)
	}

	var assignment models.ReviewerAssignment
	if err := db.First(&assignment).Error; err != nil {
		t.Fatalf("load assignment: %v", err)
	}
	if assignment.Status != models.AssignmentStatusCompleted {
		t.Fatalf("assignment not completed on submit: %s", assignment.Status)
	}

	form := forms()[0]
	if form.Status != models.FormStatusSubmitted || form.SubmittedAt == nil {
		t.Fatalf("form not stamped as submitted: %+v", form)
	}
	firstStamp := *form.SubmittedAt

	if got := countNotifications(t, db, employeeID, models.NotificationReviewSubmitted); got != 1 {
		t.Fatalf("expected 1 submission notification, got %d", got)
	}

	// Resubmit with changed content: no new side effects.
	update := peerInput()
	update.AdditionalComments = strPtr("Adding a late remark")
	if _, err := svc.SaveForm(reviewerCaller(), update, models.FormStatusSubmitted); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	form = forms()[0]
	if form.SubmittedAt == nil || !form.SubmittedAt.Equal(firstStamp) {
		t.Fatalf("submitted_at restamped on resubmission: %v vs %v", form.SubmittedAt, firstStamp)
	}
	if form.AdditionalComments == nil || *form.AdditionalComments != "Adding a late remark" {
		t.Fatalf("resubmission content not applied: %v", form.AdditionalComments)
	}
	if got := countNotifications(t, db, employeeID, models.NotificationReviewSubmitted); got != 1 {
		t.Fatalf("resubmission re-emitted notifications: %d", got)
	}
}

func TestManagerSubmissionBroadcastsToStaff(t *testing.T) {
	svc, _, _ := setupFormFixture(t)
	db := svc.db

	seedUser(t, db, 20, models.RoleHR, "hrlead")
	seedAssignment(t, db, 1, employeeID, reviewerID, models.ReviewerTypeManager)

	input := completeInput()
	input.ReviewerType = models.ReviewerTypeManager
	if _, err := svc.SaveForm(reviewerCaller(), input, models.FormStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got := countNotifications(t, db, staffID, models.NotificationReviewSubmitted); got != 1 {
		t.Fatalf("admin should get the manager-review broadcast, got %d", got)
	}
	if got := countNotifications(t, db, 20, models.NotificationReviewSubmitted); got != 1 {
		t.Fatalf("hr should get the manager-review broadcast, got %d", got)
	}
	if got := countNotifications(t, db, outsiderID, models.NotificationReviewSubmitted); got != 0 {
		t.Fatalf("regular employees must not get the broadcast, got %d", got)
	}
}

func TestSaveFormLockedCycleGuard(t *testing.T) {
	svc, cycles, _ := setupFormFixture(t)

	if _, err := cycles.LockCycle(1); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted)
	var locked *CycleLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected CycleLockedError, got %v", err)
	}

	if _, err := cycles.ReopenCycle(1); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted); err != nil {
		t.Fatalf("save after reopen: %v", err)
	}
}

func TestSaveFormPermission(t *testing.T) {
	svc, _, _ := setupFormFixture(t)

	outsider := Caller{UserID: outsiderID, RoleID: models.RoleEmployee}
	_, err := svc.SaveForm(outsider, completeInput(), models.FormStatusDraft)
	var permission *PermissionError
	if !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError for non-reviewer, got %v", err)
	}

	// Staff may write on the reviewer's behalf.
	staff := Caller{UserID: staffID, RoleID: models.RoleAdmin}
	if _, err := svc.SaveForm(staff, completeInput(), models.FormStatusDraft); err != nil {
		t.Fatalf("staff save: %v", err)
	}
}

func TestListFormsRoleScoped(t *testing.T) {
	svc, _, _ := setupFormFixture(t)
	db := svc.db

	// A second, unrelated review in the same cycle.
	seedUser(t, db, 30, models.RoleEmployee, "other")
	seedAssignment(t, db, 1, 30, outsiderID, models.ReviewerTypePeer)

	if _, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}
	otherInput := completeInput()
	otherInput.EmployeeID = 30
	otherInput.ReviewerID = outsiderID
	otherCaller := Caller{UserID: outsiderID, RoleID: models.RoleEmployee}
	if _, err := svc.SaveForm(otherCaller, otherInput, models.FormStatusSubmitted); err != nil {
		t.Fatalf("submit other: %v", err)
	}

	// The reviewer sees only forms where they are reviewer or employee.
	visible, err := svc.ListForms(reviewerCaller(), FormFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, form := range visible {
		if form.ReviewerID != reviewerID && form.EmployeeID != reviewerID {
			t.Fatalf("leaked form %d to uninvolved caller", form.FormID)
		}
	}
	if len(visible) != 1 {
		t.Fatalf("expected 1 visible form, got %d", len(visible))
	}

	// Staff see everything.
	all, err := svc.ListForms(Caller{UserID: staffID, RoleID: models.RoleAdmin}, FormFilters{})
	if err != nil {
		t.Fatalf("staff list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff should see 2 forms, got %d", len(all))
	}
}

func TestGetFormPermission(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	if _, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}
	formID := forms()[0].FormID

	// The employee under review may read it.
	if _, err := svc.GetForm(Caller{UserID: employeeID, RoleID: models.RoleEmployee}, formID); err != nil {
		t.Fatalf("employee read: %v", err)
	}

	_, err := svc.GetForm(Caller{UserID: outsiderID, RoleID: models.RoleEmployee}, formID)
	var permission *PermissionError
	if !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError on direct fetch, got %v", err)
	}
}

func TestApproveForm(t *testing.T) {
	svc, _, forms := setupFormFixture(t)
	staff := Caller{UserID: staffID, RoleID: models.RoleAdmin}

	if _, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted); err != nil {
		t.Fatalf("submit: %v", err)
	}
	formID := forms()[0].FormID

	if _, err := svc.ApproveForm(reviewerCaller(), formID); err == nil {
		t.Fatalf("non-staff approval must fail")
	}

	approved, err := svc.ApproveForm(staff, formID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.FormStatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}

	// Approved is terminal: further writes are rejected.
	_, err = svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusSubmitted)
	var state *InvalidStateError
	if !errors.As(err, &state) {
		t.Fatalf("expected InvalidStateError writing an approved form, got %v", err)
	}
}

func TestDeleteFormAdminOnly(t *testing.T) {
	svc, _, forms := setupFormFixture(t)

	if _, err := svc.SaveForm(reviewerCaller(), completeInput(), models.FormStatusDraft); err != nil {
		t.Fatalf("save: %v", err)
	}
	formID := forms()[0].FormID

	err := svc.DeleteForm(Caller{UserID: 20, RoleID: models.RoleHR}, formID)
	var permission *PermissionError
	if !errors.As(err, &permission) {
		t.Fatalf("hr deletion should be refused, got %v", err)
	}

	if err := svc.DeleteForm(Caller{UserID: staffID, RoleID: models.RoleAdmin}, formID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(forms()) != 0 {
		t.Fatalf("form not deleted")
	}
}
