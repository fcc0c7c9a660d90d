package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/gridpick/internal/domain/model"
	"github.com/okian/gridpick/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoredPickJSON(t *testing.T) {
	Convey("Given a scored pick for an unclassified driver", t, func() {
		p := types.ScoredPick{
			PickScore:  model.PickScore{DriverID: "ham", PredictedPosition: 4},
			DriverCode: "HAM",
			DriverName: "Lewis Hamilton",
			Team:       "Ferrari",
		}

		Convey("When encoded", func() {
			raw, err := json.Marshal(p)
			So(err, ShouldBeNil)

			var m map[string]any
			So(json.Unmarshal(raw, &m), ShouldBeNil)

			Convey("Then the embedded breakdown is flattened and the missing position is omitted", func() {
				So(m["driver_id"], ShouldEqual, "ham")
				So(m["driver_code"], ShouldEqual, "HAM")
				So(m["predicted_position"], ShouldEqual, 4.0)
				_, has := m["actual_position"]
				So(has, ShouldBeFalse)
			})
		})
	})
}

func TestRaceBoardJSON(t *testing.T) {
	Convey("Given a locked race board", t, func() {
		b := types.RaceBoard{RaceID: "r1", Status: types.BoardLocked, Reason: types.ReasonPredictFirst}

		Convey("Then it encodes status and reason", func() {
			raw, err := json.Marshal(b)
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"status":"locked"`)
			So(string(raw), ShouldContainSubstring, `"reason":"predict_first"`)
		})
	})
}
