package ranking_test

import (
	"context"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/drishtilabs/drishti/internal/domain/eligibility"
	"github.com/drishtilabs/drishti/internal/domain/kpi"
	"github.com/drishtilabs/drishti/internal/domain/model"
	"github.com/drishtilabs/drishti/internal/domain/ranking"
)

// mapSource serves records from a map; missing ids resolve to nil.
type mapSource map[string]*model.Record

func (m mapSource) Record(_ context.Context, id string) (*model.Record, error) {
	return m[id], nil
}

func completedRecord(id, institution, rawKPIs string) *model.Record {
	return &model.Record{
		Submission: &model.Submission{
			ID:              id,
			Mode:            model.ModeAICTE,
			Status:          model.StatusCompleted,
			InstitutionName: institution,
			DataSource:      model.SourceSystem,
			RawKPIs:         rawKPIs,
		},
		ValidBlockCount: 1,
	}
}

func TestRank(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given two rankable submissions", t, func() {
		src := mapSource{
			"a": completedRecord("a", "Alpha Institute", `{"fsr_score": 90, "overall_score": 85}`),
			"b": completedRecord("b", "Beta Institute", `{"fsr_score": 70, "overall_score": 80}`),
		}
		engine := ranking.New(src)

		convey.Convey("When ranking by a single metric", func() {
			res, err := engine.Rank(ctx, []string{"b", "a"}, map[string]float64{kpi.FSRScore: 1}, 10)

			convey.Convey("Then the higher value ranks first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Ranked, convey.ShouldHaveLength, 2)
				convey.So(res.Ranked[0].SubmissionID, convey.ShouldEqual, "a")
				convey.So(res.Ranked[0].RankingScore, convey.ShouldEqual, 90.0)
				convey.So(res.Ranked[1].SubmissionID, convey.ShouldEqual, "b")
			})
		})

		convey.Convey("When a metric is missing from one submission", func() {
			src["b"] = completedRecord("b", "Beta Institute", `{"overall_score": 80}`)
			weights := map[string]float64{kpi.FSRScore: 3, kpi.OverallScore: 1}
			res, err := engine.Rank(ctx, []string{"a", "b"}, weights, 10)

			convey.Convey("Then the denominator stays the total configured weight", func() {
				convey.So(err, convey.ShouldBeNil)
				// a: (3*90 + 1*85) / 4; b: (1*80) / 4
				convey.So(res.Ranked[0].RankingScore, convey.ShouldAlmostEqual, 88.75)
				convey.So(res.Ranked[1].RankingScore, convey.ShouldAlmostEqual, 20.0)
			})
		})

		convey.Convey("When topN truncates the result", func() {
			res, err := engine.Rank(ctx, []string{"a", "b"}, map[string]float64{kpi.OverallScore: 1}, 1)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Ranked, convey.ShouldHaveLength, 1)
			convey.So(res.Ranked[0].SubmissionID, convey.ShouldEqual, "a")
			convey.So(res.TopN, convey.ShouldEqual, 1)
		})

		convey.Convey("When scores tie", func() {
			src["b"] = completedRecord("b", "Beta Institute", `{"overall_score": 85}`)
			src["a"] = completedRecord("a", "Alpha Institute", `{"overall_score": 85}`)
			res, err := engine.Rank(ctx, []string{"b", "a"}, map[string]float64{kpi.OverallScore: 1}, 10)

			convey.Convey("Then input order is preserved", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Ranked[0].SubmissionID, convey.ShouldEqual, "b")
				convey.So(res.Ranked[1].SubmissionID, convey.ShouldEqual, "a")
			})
		})
	})

	convey.Convey("Given invalid parameters", t, func() {
		engine := ranking.New(mapSource{})

		convey.Convey("Then zero total weight is rejected before any work", func() {
			_, err := engine.Rank(ctx, []string{"a"}, map[string]float64{kpi.FSRScore: 0}, 10)
			convey.So(err, convey.ShouldWrap, ranking.ErrZeroWeights)
		})

		convey.Convey("Then negative weights alone are rejected too", func() {
			_, err := engine.Rank(ctx, []string{"a"}, map[string]float64{kpi.FSRScore: -2}, 10)
			convey.So(err, convey.ShouldWrap, ranking.ErrZeroWeights)
		})

		convey.Convey("Then out-of-range topN is rejected", func() {
			_, err := engine.Rank(ctx, []string{"a"}, map[string]float64{kpi.FSRScore: 1}, 0)
			convey.So(err, convey.ShouldWrap, ranking.ErrInvalidTopN)
			_, err = engine.Rank(ctx, []string{"a"}, map[string]float64{kpi.FSRScore: 1}, ranking.MaxTopN+1)
			convey.So(err, convey.ShouldWrap, ranking.ErrInvalidTopN)
		})
	})

	convey.Convey("Given ineligible submissions", t, func() {
		failed := completedRecord("c", "Gamma Institute", `{"overall_score": 70}`)
		failed.Submission.Status = model.StatusFailed
		src := mapSource{
			"a": completedRecord("a", "Alpha Institute", `{"overall_score": 85}`),
			"c": failed,
		}
		engine := ranking.New(src)
		res, err := engine.Rank(ctx, []string{"a", "c", "missing"}, map[string]float64{kpi.OverallScore: 1}, 10)

		convey.Convey("Then each carries its eligibility reason", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Ranked, convey.ShouldHaveLength, 1)
			convey.So(res.Insufficient, convey.ShouldResemble, []ranking.Skipped{
				{SubmissionID: "c", Reason: "status_failed"},
				{SubmissionID: "missing", Reason: string(eligibility.ReasonNotFound)},
			})
		})
	})

	convey.Convey("Given a submission with no weighted metric present", t, func() {
		src := mapSource{
			"a": completedRecord("a", "Alpha Institute", `{"overall_score": 85}`),
			"d": completedRecord("d", "Delta Institute", `{"overall_score": 70}`),
		}
		engine := ranking.New(src)

		// d has an overall score (so it passes eligibility) but no FSR value.
		res, err := engine.Rank(ctx, []string{"a", "d"},
			map[string]float64{kpi.FSRScore: 1, kpi.OverallScore: 0}, 10)

		convey.Convey("Then it lands in the insufficient list as no_kpis", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Ranked, convey.ShouldBeEmpty)
			convey.So(res.Insufficient, convey.ShouldHaveLength, 2)
			convey.So(res.Insufficient[0].Reason, convey.ShouldEqual, string(eligibility.ReasonNoKPIs))
		})
	})
}
