package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/drishtilabs/drishti/internal/adapters/repository"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

func submission(id, institution, department, year string) *model.Submission {
	return &model.Submission{
		ID:              id,
		Mode:            model.ModeAICTE,
		Status:          model.StatusCompleted,
		InstitutionName: institution,
		DepartmentName:  department,
		AcademicYear:    year,
		DataSource:      model.SourceSystem,
		RawKPIs:         `{"overall_score": 75.0}`,
		CreatedAt:       time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemStoreSubmissions(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an in-memory store", t, func() {
		store := repository.NewMemStore()

		convey.Convey("A stored submission round-trips by id", func() {
			sub := submission("s1", "IIT Delhi", "Computer Engineering", "2024-25")
			convey.So(store.PutSubmission(ctx, sub), convey.ShouldBeNil)

			got, err := store.GetSubmission(ctx, "s1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, sub)
		})

		convey.Convey("Reads return copies, not the stored value", func() {
			sub := submission("s1", "IIT Delhi", "Computer Engineering", "2024-25")
			convey.So(store.PutSubmission(ctx, sub), convey.ShouldBeNil)

			got, _ := store.GetSubmission(ctx, "s1")
			got.InstitutionName = "mutated"

			again, _ := store.GetSubmission(ctx, "s1")
			convey.So(again.InstitutionName, convey.ShouldEqual, "IIT Delhi")
		})

		convey.Convey("An unknown id yields ErrNotFound", func() {
			_, err := store.GetSubmission(ctx, "missing")
			convey.So(err, convey.ShouldWrap, repository.ErrNotFound)
		})

		convey.Convey("Putting the same id again replaces the row", func() {
			convey.So(store.PutSubmission(ctx, submission("s1", "IIT Delhi", "Computer Engineering", "2023-24")), convey.ShouldBeNil)
			updated := submission("s1", "IIT Delhi", "Computer Engineering", "2024-25")
			convey.So(store.PutSubmission(ctx, updated), convey.ShouldBeNil)

			got, err := store.GetSubmission(ctx, "s1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.AcademicYear, convey.ShouldEqual, "2024-25")
		})
	})
}

func TestMemStoreQuery(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a store holding several submissions", t, func() {
		store := repository.NewMemStore()

		a := submission("a", "IIT Delhi", "Computer Engineering", "2022-23")
		b := submission("b", "IIT Delhi", "Computer Engineering", "2023-24")
		c := submission("c", "IIT Delhi", "Computer Engineering", "2024-25")
		c.Invalid = true
		d := submission("d", "NIT Trichy", "Mechanical Engineering", "2023-24")
		d.Status = model.StatusProcessing
		for _, sub := range []*model.Submission{c, a, d, b} {
			convey.So(store.PutSubmission(ctx, sub), convey.ShouldBeNil)
		}

		convey.Convey("An empty filter returns everything in year order", func() {
			got, err := store.QuerySubmissions(ctx, model.Filter{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"a", "b", "d", "c"})
		})

		convey.Convey("Institution and department narrow the result", func() {
			got, err := store.QuerySubmissions(ctx, model.Filter{
				InstitutionName: "IIT Delhi",
				DepartmentName:  "Computer Engineering",
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"a", "b", "c"})
		})

		convey.Convey("Status, year and mode filters match exactly", func() {
			got, err := store.QuerySubmissions(ctx, model.Filter{Status: model.StatusProcessing})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"d"})

			got, err = store.QuerySubmissions(ctx, model.Filter{AcademicYear: "2023-24"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"b", "d"})

			got, err = store.QuerySubmissions(ctx, model.Filter{Mode: model.ModeUGC})
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldBeEmpty)
		})

		convey.Convey("OnlyValid drops invalidated submissions", func() {
			got, err := store.QuerySubmissions(ctx, model.Filter{
				InstitutionName: "IIT Delhi",
				OnlyValid:       true,
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"a", "b"})
		})

		convey.Convey("ExcludeID removes a single submission", func() {
			got, err := store.QuerySubmissions(ctx, model.Filter{
				InstitutionName: "IIT Delhi",
				ExcludeID:       "b",
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"a", "c"})
		})

		convey.Convey("Equal years with equal timestamps fall back to id order", func() {
			e := submission("e", "IIT Delhi", "Computer Engineering", "2022-23")
			convey.So(store.PutSubmission(ctx, e), convey.ShouldBeNil)

			got, err := store.QuerySubmissions(ctx, model.Filter{AcademicYear: "2022-23"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ids(got), convey.ShouldResemble, []string{"a", "e"})
		})
	})
}

func TestMemStoreRecords(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a submission with documents and blocks", t, func() {
		store := repository.NewMemStore()
		convey.So(store.PutSubmission(ctx, submission("s1", "IIT Delhi", "Computer Engineering", "2024-25")), convey.ShouldBeNil)
		convey.So(store.PutDocument(ctx, "s1", "doc-1"), convey.ShouldBeNil)
		convey.So(store.PutDocument(ctx, "s1", "doc-2"), convey.ShouldBeNil)
		convey.So(store.PutBlock(ctx, "s1", model.Block{ID: "b1", Type: "faculty_info", Confidence: 0.9}), convey.ShouldBeNil)
		convey.So(store.PutBlock(ctx, "s1", model.Block{ID: "b2", Type: "placements", Invalid: true, Confidence: 0.4}), convey.ShouldBeNil)

		convey.Convey("The record carries the counts the checks need", func() {
			rec, err := store.Record(ctx, "s1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(rec, convey.ShouldNotBeNil)
			convey.So(rec.Submission.ID, convey.ShouldEqual, "s1")
			convey.So(rec.DocumentCount, convey.ShouldEqual, 2)
			convey.So(rec.ValidBlockCount, convey.ShouldEqual, 1)
			convey.So(rec.Blocks, convey.ShouldHaveLength, 2)
		})

		convey.Convey("An unknown id yields a nil record without error", func() {
			rec, err := store.Record(ctx, "missing")
			convey.So(err, convey.ShouldBeNil)
			convey.So(rec, convey.ShouldBeNil)
		})

		convey.Convey("Registering the same document twice does not inflate the count", func() {
			convey.So(store.PutDocument(ctx, "s1", "doc-1"), convey.ShouldBeNil)

			rec, _ := store.Record(ctx, "s1")
			convey.So(rec.DocumentCount, convey.ShouldEqual, 2)
		})

		convey.Convey("Re-putting a block with the same id replaces it in place", func() {
			convey.So(store.PutBlock(ctx, "s1", model.Block{ID: "b2", Type: "placements", Confidence: 0.95}), convey.ShouldBeNil)

			rec, _ := store.Record(ctx, "s1")
			convey.So(rec.Blocks, convey.ShouldHaveLength, 2)
			convey.So(rec.ValidBlockCount, convey.ShouldEqual, 2)
		})

		convey.Convey("Records maps unknown ids to nil entries", func() {
			recs, err := store.Records(ctx, []string{"s1", "missing"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(recs, convey.ShouldHaveLength, 2)
			convey.So(recs["s1"], convey.ShouldNotBeNil)
			convey.So(recs["missing"], convey.ShouldBeNil)
		})
	})
}

func TestMemStoreClose(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a closed store", t, func() {
		store := repository.NewMemStore()
		convey.So(store.PutSubmission(ctx, submission("s1", "IIT Delhi", "Computer Engineering", "2024-25")), convey.ShouldBeNil)
		convey.So(store.Close(), convey.ShouldBeNil)

		convey.Convey("Every operation fails with ErrClosed", func() {
			_, err := store.GetSubmission(ctx, "s1")
			convey.So(err, convey.ShouldWrap, repository.ErrClosed)

			_, err = store.QuerySubmissions(ctx, model.Filter{})
			convey.So(err, convey.ShouldWrap, repository.ErrClosed)

			_, err = store.Record(ctx, "s1")
			convey.So(err, convey.ShouldWrap, repository.ErrClosed)

			convey.So(store.PutSubmission(ctx, submission("s2", "x", "y", "2024-25")), convey.ShouldWrap, repository.ErrClosed)
			convey.So(store.PutDocument(ctx, "s1", "doc-9"), convey.ShouldWrap, repository.ErrClosed)
			convey.So(store.PutBlock(ctx, "s1", model.Block{ID: "b9"}), convey.ShouldWrap, repository.ErrClosed)
		})
	})
}

func ids(subs []*model.Submission) []string {
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.ID)
	}
	return out
}
