package service_test

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/datatypes"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/export"
	"cataid-backend/internal/model"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/service"
	"cataid-backend/internal/workflow"
	"cataid-backend/utilities"
)

var (
	assessor = workflow.Actor{ID: 100, Name: "Asha", Role: workflow.RoleAssessor}
	other    = workflow.Actor{ID: 300, Name: "Vikram", Role: workflow.RoleAssessor}
	lead     = workflow.Actor{ID: 200, Name: "Meera", Role: workflow.RoleLead}
)

type fixture struct {
	store      *memoryStore
	bus        *utilities.EventBus
	candidate  *model.Candidate
	assessment service.AssessmentService
}

func newFixture() fixture {
	store := newMemoryStore()
	bus := utilities.NewEventBus()
	cands := fakeCandidates{store}
	candidate := &model.Candidate{FullName: "Ravi Kumar", Gender: "Male"}
	if err := cands.CreateCandidate(candidate); err != nil {
		panic(err)
	}
	return fixture{
		store:     store,
		bus:       bus,
		candidate: candidate,
		assessment: service.NewAssessmentService(
			fakeAssessments{store}, cands, testCatalog(), recommend.NewEngine(testLibrary()), bus,
		),
	}
}

func TestAssessmentLifecycle(t *testing.T) {
	Convey("Given a draft assessment", t, func() {
		fx := newFixture()
		var reviewed int32
		fx.bus.Subscribe(utilities.EventAssessmentReviewed, func(interface{}) { atomic.AddInt32(&reviewed, 1) })

		a, err := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
		So(err, ShouldBeNil)
		So(a.Status, ShouldEqual, workflow.Draft)
		So(a.AssessorID, ShouldEqual, assessor.ID)
		So(a.Reference, ShouldNotBeEmpty)
		So(a.MaxScore, ShouldEqual, 12)

		Convey("When the assessor saves answers", func() {
			saved, err := fx.assessment.SaveAnswers(assessor, a.ID, answers.Bag{"SCORE_1": "3", "SCORE_2": "1"})
			So(err, ShouldBeNil)
			So(saved.Status, ShouldEqual, workflow.InProgress)
			So(saved.TotalScore, ShouldEqual, 4)

			Convey("And submits with a final update", func() {
				sub, err := fx.assessment.Submit(assessor, a.ID, answers.Bag{"SCORE_4": "2"})
				So(err, ShouldBeNil)
				So(sub.Status, ShouldEqual, workflow.Submitted)
				So(sub.TotalScore, ShouldEqual, 6)
				So(sub.SubmittedAt, ShouldNotBeNil)

				Convey("Then a second submit is refused and nothing is written", func() {
					updates := fx.store.updates
					_, err := fx.assessment.Submit(assessor, a.ID, answers.Bag{"SCORE_3": "3"})
					So(workflow.IsUnauthorized(err), ShouldBeTrue)
					So(fx.store.updates, ShouldEqual, updates)

					stored, _ := fx.assessment.GetAssessment(a.ID)
					So(stored.Status, ShouldEqual, workflow.Submitted)
					So(stored.TotalScore, ShouldEqual, 6)
				})

				Convey("Then the assessor cannot approve it", func() {
					_, err := fx.assessment.Review(assessor, a.ID, "approve")
					So(workflow.IsUnauthorized(err), ShouldBeTrue)
				})

				Convey("Then an unknown decision is invalid input", func() {
					_, err := fx.assessment.Review(lead, a.ID, "maybe")
					So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				})

				Convey("Then the lead approves it", func() {
					approved, err := fx.assessment.Review(lead, a.ID, "approve")
					So(err, ShouldBeNil)
					So(approved.Status, ShouldEqual, workflow.Approved)
					So(*approved.LeadID, ShouldEqual, lead.ID)
					So(approved.ReviewedAt, ShouldNotBeNil)

					fx.bus.Wait()
					So(atomic.LoadInt32(&reviewed), ShouldEqual, 1)

					_, err = fx.assessment.Review(lead, a.ID, "reject")
					So(workflow.IsInvalidTransition(err), ShouldBeTrue)
				})

				Convey("Then a send back reopens it for the assessor", func() {
					back, err := fx.assessment.Review(lead, a.ID, "send_back")
					So(err, ShouldBeNil)
					So(back.Status, ShouldEqual, workflow.SentBack)

					again, err := fx.assessment.SaveAnswers(assessor, a.ID, answers.Bag{"SCORE_3": "2"})
					So(err, ShouldBeNil)
					So(again.Status, ShouldEqual, workflow.InProgress)
					So(again.TotalScore, ShouldEqual, 8)
				})
			})
		})

		Convey("When the lead reassigns it", func() {
			assigned, err := fx.assessment.Assign(lead, a.ID, other.ID)
			So(err, ShouldBeNil)
			So(assigned.Status, ShouldEqual, workflow.Assigned)

			_, err = fx.assessment.SaveAnswers(assessor, a.ID, answers.Bag{"SCORE_1": "1"})
			So(workflow.IsUnauthorized(err), ShouldBeTrue)

			saved, err := fx.assessment.SaveAnswers(other, a.ID, answers.Bag{"SCORE_1": "1"})
			So(err, ShouldBeNil)
			So(saved.TotalScore, ShouldEqual, 1)
		})

		Convey("When the lead takes it over", func() {
			edited, err := fx.assessment.LeadEdit(lead, a.ID)
			So(err, ShouldBeNil)
			So(edited.AssessorID, ShouldEqual, lead.ID)

			_, err = fx.assessment.SaveAnswers(lead, a.ID, answers.Bag{"SCORE_4": "3"})
			So(err, ShouldBeNil)
		})

		Convey("When the assessment does not exist", func() {
			_, err := fx.assessment.SaveAnswers(assessor, 999, answers.Bag{})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given an assessor creating a draft for someone else", t, func() {
		fx := newFixture()
		_, err := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, other.ID)
		So(workflow.IsUnauthorized(err), ShouldBeTrue)

		_, err = fx.assessment.CreateAssessment(lead, fx.candidate.ID, other.ID)
		So(err, ShouldBeNil)

		_, err = fx.assessment.CreateAssessment(lead, 999, other.ID)
		So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
	})
}

func TestRecommendationsAndStats(t *testing.T) {
	Convey("Given a submitted assessment with a weak motor section", t, func() {
		fx := newFixture()
		a, _ := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
		_, err := fx.assessment.Submit(assessor, a.ID, answers.Bag{"SCORE_1": "3", "SCORE_2": "1"})
		So(err, ShouldBeNil)

		Convey("Then only the motor section is recommended, in full", func() {
			blocks, err := fx.assessment.GetRecommendations(a.ID)
			So(err, ShouldBeNil)
			So(len(blocks), ShouldEqual, 1)
			So(blocks[0].Category, ShouldEqual, "Motor Skills")
			So(blocks[0].Tier, ShouldEqual, recommend.High)
			So(len(blocks[0].Items), ShouldEqual, 3)
		})

		Convey("Then the stored score is returned", func() {
			m, err := fx.assessment.GetScore(a.ID)
			So(err, ShouldBeNil)
			So(m.TotalScore, ShouldEqual, 4)
			So(m.SectionScores["Motor Skills"], ShouldEqual, 4)
		})

		Convey("Then the status counts include every status", func() {
			counts, err := fx.assessment.CountByStatus()
			So(err, ShouldBeNil)
			So(counts[workflow.Submitted], ShouldEqual, int64(1))
			So(counts, ShouldContainKey, workflow.Draft)
		})

		Convey("Then it is listed", func() {
			list, err := fx.assessment.ListAssessments(service.ListFilter{Status: workflow.Submitted})
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)
		})
	})
}

func TestListFilters(t *testing.T) {
	Convey("Given an assessment service", t, func() {
		fx := newFixture()
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)

		Convey("When listing by staff, candidate name and date range", func() {
			_, err := fx.assessment.ListAssessments(service.ListFilter{
				ExcludeStatus: workflow.Draft,
				StaffID:       200,
				CandidateName: "ravi",
				From:          &from,
				To:            &to,
			})
			So(err, ShouldBeNil)

			clause, args := fx.store.lastFilter.Build()
			So(clause, ShouldEqual, "assessments.status <> ? AND "+
				"(assessments.assessor_id = ? OR assessments.lead_id = ?) AND "+
				"LOWER(candidates.full_name) LIKE ? AND "+
				"assessments.created_at BETWEEN ? AND ?")
			So(args, ShouldResemble, []interface{}{"Draft", uint(200), uint(200), "%ravi%", from, to})
		})

		Convey("When only one bound is given", func() {
			_, err := fx.assessment.ListAssessments(service.ListFilter{From: &from})
			So(err, ShouldBeNil)
			clause, _ := fx.store.lastFilter.Build()
			So(clause, ShouldEqual, "assessments.created_at > ?")

			_, err = fx.assessment.ListAssessments(service.ListFilter{To: &to})
			So(err, ShouldBeNil)
			clause, _ = fx.store.lastFilter.Build()
			So(clause, ShouldEqual, "assessments.created_at < ?")
		})

		Convey("When the range is reversed", func() {
			_, err := fx.assessment.ListAssessments(service.ListFilter{From: &to, To: &from})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

// racingAssessments moves the stored row to another status right after it
// is read, as a concurrent request would.
type racingAssessments struct {
	fakeAssessments
	to workflow.Status
}

func (r racingAssessments) GetAssessmentByID(id uint) (*model.Assessment, error) {
	a, err := r.fakeAssessments.GetAssessmentByID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	row := r.assessments[id]
	row.Status = r.to
	r.assessments[id] = row
	r.mu.Unlock()
	return a, nil
}

func TestConcurrentTransition(t *testing.T) {
	Convey("Given an assessment that changes status while being saved", t, func() {
		fx := newFixture()
		a, err := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
		So(err, ShouldBeNil)

		racing := service.NewAssessmentService(
			racingAssessments{fakeAssessments{fx.store}, workflow.Submitted},
			fakeCandidates{fx.store}, testCatalog(), recommend.NewEngine(testLibrary()), fx.bus,
		)
		before := fx.store.updates

		_, err = racing.SaveAnswers(assessor, a.ID, answers.Bag{"SCORE_1": "2"})

		Convey("Then the save is refused and nothing is written", func() {
			So(workflow.IsInvalidTransition(err), ShouldBeTrue)
			So(fx.store.updates, ShouldEqual, before)
		})
	})
}

func TestUnknownQuestionKeys(t *testing.T) {
	Convey("Given a draft assessment", t, func() {
		fx := newFixture()
		a, err := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
		So(err, ShouldBeNil)

		Convey("When a score names a question outside the catalog", func() {
			_, err := fx.assessment.SaveAnswers(assessor, a.ID, answers.Bag{"SCORE_1": "2", "SCORE_99": "3"})

			Convey("Then the update is rejected before anything is written", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				stored, _ := fx.assessment.GetAssessment(a.ID)
				So(stored.Status, ShouldEqual, workflow.Draft)
			})
		})

		Convey("When only summary and evidence keys are sent", func() {
			_, err := fx.assessment.SaveAnswers(assessor, a.ID, answers.Bag{"SUMMARY_COMMENTS": "ok", "FILE_1": "scan.pdf"})
			So(err, ShouldBeNil)
		})
	})
}

func TestReportExport(t *testing.T) {
	Convey("Given a submitted assessment and a report service", t, func() {
		fx := newFixture()
		staff := fakeStaff{fx.store}
		asha := &model.Staff{Name: "Asha", Email: "asha@example.org", Role: workflow.RoleAssessor}
		So(staff.CreateStaff(asha), ShouldBeNil)
		actor := asha.Actor()

		a, _ := fx.assessment.CreateAssessment(actor, fx.candidate.ID, 0)
		_, err := fx.assessment.Submit(actor, a.ID, answers.Bag{"SCORE_1": "3", "SCORE_2": "1", "SUMMARY_COMMENTS": "Steady progress"})
		So(err, ShouldBeNil)

		var exported int32
		fx.bus.Subscribe(utilities.EventReportExported, func(interface{}) { atomic.AddInt32(&exported, 1) })
		reports := service.NewReportService(
			fakeAssessments{fx.store}, staff, testCatalog(), recommend.NewEngine(testLibrary()),
			export.Default(), "", fx.bus,
		)

		Convey("When the document is built", func() {
			doc, err := reports.BuildDocument(a.ID, nil)
			So(err, ShouldBeNil)
			So(doc.Candidate.FullName, ShouldEqual, "Ravi Kumar")
			So(doc.Assessment.AssessorName, ShouldEqual, "Asha")
			So(doc.SummaryComments, ShouldEqual, "Steady progress")
			So(len(doc.Recommendations), ShouldEqual, 1)
		})

		Convey("When the stored snapshot is unreadable", func() {
			fx.store.mu.Lock()
			row := fx.store.assessments[a.ID]
			row.Score = datatypes.JSON("{broken")
			fx.store.assessments[a.ID] = row
			fx.store.mu.Unlock()

			blocks, err := fx.assessment.GetRecommendations(a.ID)
			So(err, ShouldBeNil)
			doc, err := reports.BuildDocument(a.ID, nil)
			So(err, ShouldBeNil)

			Convey("Then the API and the document agree", func() {
				So(doc.Score.TotalScore, ShouldEqual, 4)
				So(doc.Recommendations, ShouldResemble, blocks)
			})
		})

		Convey("When it is exported as PDF twice", func() {
			first, err := reports.Export(a.ID, "pdf", nil)
			So(err, ShouldBeNil)
			second, err := reports.Export(a.ID, ".PDF", nil)
			So(err, ShouldBeNil)

			So(bytes.HasPrefix(first.Data, []byte("%PDF")), ShouldBeTrue)
			So(first.ContentType, ShouldEqual, "application/pdf")
			So(first.FileName, ShouldEqual, "Ravi_Kumar_report.pdf")
			So(first.Digest, ShouldEqual, export.Digest(first.Data))
			So(second.Digest, ShouldEqual, first.Digest)

			fx.bus.Wait()
			So(atomic.LoadInt32(&exported), ShouldEqual, 2)
		})

		Convey("When it is exported as a workbook", func() {
			out, err := reports.Export(a.ID, "xlsx", nil)
			So(err, ShouldBeNil)
			So(bytes.HasPrefix(out.Data, []byte("PK")), ShouldBeTrue)
			So(out.FileName, ShouldEqual, "Ravi_Kumar_report.xlsx")
		})

		Convey("When the format is unknown", func() {
			_, err := reports.Export(a.ID, "docx", nil)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the assessment is missing", func() {
			_, err := reports.Export(999, "pdf", nil)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then the formats are listed", func() {
			So(reports.Formats(), ShouldResemble, []string{"pdf", "xlsx"})
		})
	})
}

func TestProgressCompare(t *testing.T) {
	Convey("Given a candidate with two completed assessments", t, func() {
		fx := newFixture()
		progress := service.NewProgressService(
			fakeAssessments{fx.store}, fakeCandidates{fx.store}, testCatalog(), export.Default(), fx.bus,
		)

		first, _ := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
		_, err := fx.assessment.Submit(assessor, first.ID, answers.Bag{"SCORE_1": "1"})
		So(err, ShouldBeNil)

		Convey("When only one is completed", func() {
			_, err := progress.Compare(fx.candidate.ID)
			So(err, ShouldEqual, service.ErrNotEnoughAssessments)
		})

		Convey("When a later one scores higher", func() {
			latest, _ := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
			_, err := fx.assessment.Submit(assessor, latest.ID, answers.Bag{"SCORE_1": "3", "SCORE_4": "2"})
			So(err, ShouldBeNil)
			_, _ = fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)

			p, err := progress.Compare(fx.candidate.ID)
			So(err, ShouldBeNil)
			So(p.First.ID, ShouldEqual, first.ID)
			So(p.Latest.ID, ShouldEqual, latest.ID)
			So(p.Difference, ShouldEqual, 4)
			So(len(p.Sections), ShouldEqual, 2)

			motor := p.Sections[0]
			So(motor.Name, ShouldEqual, "Motor Skills")
			So(motor.First, ShouldEqual, 1)
			So(motor.Latest, ShouldEqual, 3)
			So(motor.Difference, ShouldEqual, 2)
			So(motor.Questions[0].Name, ShouldEqual, "Can grip a pen")
			So(motor.Questions[0].Difference, ShouldEqual, 2)
			So(motor.Questions[1].Difference, ShouldEqual, 0)

			So(p.Sections[1].Difference, ShouldEqual, 2)

			So(len(p.History), ShouldEqual, 2)
			So(p.History[0].ID, ShouldEqual, first.ID)
			So(p.History[1].ID, ShouldEqual, latest.ID)
			So(p.History[1].Total, ShouldEqual, 5)
			So(p.History[1].Status, ShouldEqual, workflow.Submitted.Label())
			So(p.Latest, ShouldResemble, p.History[1])
		})

		Convey("When the progress report is exported", func() {
			latest, _ := fx.assessment.CreateAssessment(assessor, fx.candidate.ID, 0)
			_, err := fx.assessment.Submit(assessor, latest.ID, answers.Bag{"SCORE_1": "3"})
			So(err, ShouldBeNil)

			out, err := progress.Export(fx.candidate.ID, "pdf", nil)
			So(err, ShouldBeNil)
			So(string(out.Data[:4]), ShouldEqual, "%PDF")
			So(out.ContentType, ShouldEqual, "application/pdf")
			So(out.FileName, ShouldEqual, "Ravi_Kumar_progress.pdf")
			So(out.Digest, ShouldEqual, export.Digest(out.Data))

			again, err := progress.Export(fx.candidate.ID, "pdf", nil)
			So(err, ShouldBeNil)
			So(again.Digest, ShouldEqual, out.Digest)

			_, err = progress.Export(fx.candidate.ID, "xlsx", nil)
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)

			_, err = progress.Export(999, "pdf", nil)
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestAuthService(t *testing.T) {
	Convey("Given an auth service", t, func() {
		utilities.ConfigureSecrets("access-secret-for-tests", "refresh-secret-for-tests")
		store := newMemoryStore()
		auth := service.NewAuthService(fakeStaff{store})

		staff := &model.Staff{Name: "Asha", Email: " Asha@Example.org "}
		So(auth.Register(staff, "correct horse"), ShouldBeNil)
		So(staff.Role, ShouldEqual, workflow.RoleAssessor)
		So(staff.PasswordHash, ShouldNotEqual, "correct horse")

		Convey("When the email is registered again", func() {
			err := auth.Register(&model.Staff{Name: "A", Email: "asha@example.org"}, "another password")
			So(err, ShouldEqual, service.ErrEmailInUse)
		})

		Convey("When the password is too short", func() {
			err := auth.Register(&model.Staff{Name: "B", Email: "b@example.org"}, "short")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the role is unknown", func() {
			err := auth.Register(&model.Staff{Name: "C", Email: "c@example.org", Role: "admin"}, "long enough")
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When logging in with the right password", func() {
			tokens, err := auth.Login("asha@example.org", "correct horse")
			So(err, ShouldBeNil)
			So(tokens.AccessToken, ShouldNotBeEmpty)

			claims, err := utilities.ValidateToken(tokens.AccessToken, false)
			So(err, ShouldBeNil)
			So(claims.Role, ShouldEqual, workflow.RoleAssessor)
			So(claims.StaffID, ShouldEqual, staff.ID)

			refreshed, err := auth.Refresh(tokens.RefreshToken)
			So(err, ShouldBeNil)
			So(refreshed.AccessToken, ShouldNotBeEmpty)
		})

		Convey("When logging in with the wrong password or email", func() {
			_, err := auth.Login("asha@example.org", "wrong")
			So(err, ShouldEqual, service.ErrInvalidCredentials)
			_, err = auth.Login("nobody@example.org", "correct horse")
			So(err, ShouldEqual, service.ErrInvalidCredentials)
		})
	})
}

func TestCandidateService(t *testing.T) {
	Convey("Given a candidate service", t, func() {
		candidates := service.NewCandidateService(fakeCandidates{newMemoryStore()})

		Convey("Then a nameless candidate is rejected", func() {
			err := candidates.CreateCandidate(&model.Candidate{FullName: "  "})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then a created candidate can be read back", func() {
			c := &model.Candidate{FullName: " Ravi Kumar "}
			So(candidates.CreateCandidate(c), ShouldBeNil)
			got, err := candidates.GetCandidate(c.ID)
			So(err, ShouldBeNil)
			So(got.FullName, ShouldEqual, "Ravi Kumar")
		})
	})
}
