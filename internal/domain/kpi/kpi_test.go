package kpi_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/drishtilabs/drishti/internal/domain/kpi"
)

func TestCanonicalize(t *testing.T) {
	convey.Convey("Given raw KPI data in the record shape", t, func() {
		raw := `{
			"fsr_score": {"value": 78.5, "name": "FSR Score"},
			"infrastructure_score": {"value": 82.0},
			"placement_index": {"value": 91.3},
			"lab_compliance_index": {"value": 66.0},
			"overall_score": {"value": 79.4}
		}`

		convey.Convey("Then all five metrics are extracted", func() {
			v := kpi.Canonicalize(raw)
			convey.So(v, convey.ShouldHaveLength, 5)
			val, ok := v.Value(kpi.FSRScore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(val, convey.ShouldEqual, 78.5)
		})
	})

	convey.Convey("Given raw KPI data as bare numbers", t, func() {
		raw := `{"fsr_score": 78.5, "overall_score": 79.4}`

		convey.Convey("Then the vector equals the record-shape result", func() {
			bare := kpi.Canonicalize(raw)
			wrapped := kpi.Canonicalize(`{"fsr_score": {"value": 78.5}, "overall_score": {"value": 79.4}}`)
			convey.So(bare, convey.ShouldResemble, wrapped)
		})
	})

	convey.Convey("Given legacy alias keys", t, func() {
		raw := `{"fsr": 71.0, "infra": 65.5, "placement": 88.0, "lab": 59.0, "overall_score": 70.1}`

		convey.Convey("Then aliases map to canonical keys", func() {
			v := kpi.Canonicalize(raw)
			convey.So(v, convey.ShouldHaveLength, 5)
			val, _ := v.Value(kpi.InfrastructureScore)
			convey.So(val, convey.ShouldEqual, 65.5)
			val, _ = v.Value(kpi.PlacementIndex)
			convey.So(val, convey.ShouldEqual, 88.0)
		})
	})

	convey.Convey("Given a zero value under the first alias", t, func() {
		raw := `{"fsr_score": 0, "fsr": 64.2}`

		convey.Convey("Then the lookup falls through to the next alias", func() {
			v := kpi.Canonicalize(raw)
			val, ok := v.Value(kpi.FSRScore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(val, convey.ShouldEqual, 64.2)
		})
	})

	convey.Convey("Given zero, null and malformed values", t, func() {
		convey.Convey("Then zero means absent", func() {
			v := kpi.Canonicalize(`{"overall_score": 0}`)
			_, ok := v.Value(kpi.OverallScore)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(v.Empty(), convey.ShouldBeTrue)
		})

		convey.Convey("Then null means absent", func() {
			v := kpi.Canonicalize(`{"overall_score": null}`)
			convey.So(v.Empty(), convey.ShouldBeTrue)
		})

		convey.Convey("Then a record with a zero value means absent", func() {
			v := kpi.Canonicalize(`{"overall_score": {"value": 0}}`)
			convey.So(v.Empty(), convey.ShouldBeTrue)
		})

		convey.Convey("Then string values are ignored", func() {
			v := kpi.Canonicalize(`{"overall_score": "79.4"}`)
			convey.So(v.Empty(), convey.ShouldBeTrue)
		})

		convey.Convey("Then invalid JSON yields an empty vector", func() {
			convey.So(kpi.Canonicalize(`{not json`).Empty(), convey.ShouldBeTrue)
			convey.So(kpi.Canonicalize("").Empty(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given negative values", t, func() {
		convey.Convey("Then they are treated as absent", func() {
			v := kpi.Canonicalize(`{"overall_score": -5}`)
			convey.So(v.Empty(), convey.ShouldBeTrue)
		})
	})
}
