package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rota/internal/domain/model"
	types "github.com/okian/rota/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResult(t *testing.T) {
	Convey("Given a new result", t, func() {
		id := uuid.MustParse("7f1d0c1e-7b8a-4a53-9a8e-0f7c1f2a9b11")
		res := types.NewResult(id, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 30)

		Convey("When it has no candidates", func() {
			raw, err := json.Marshal(res)

			Convey("Then both lists should encode as empty arrays", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"driver":[]`)
				So(string(raw), ShouldContainSubstring, `"attendant":[]`)
				So(string(raw), ShouldContainSubstring, `"event_date":"2024-03-10"`)
				So(string(raw), ShouldContainSubstring, `"window_days":30`)
			})
		})

		Convey("When a candidate has no prior participation", func() {
			res.Driver = append(res.Driver, types.RankedCandidate{
				Username: "bob", Role: model.RoleDriver, GapDays: 9999, Score: -29997, Rank: 1,
			})
			raw, err := json.Marshal(res.Driver[0])

			Convey("Then last_at should be null and legacy field names kept", func() {
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"last_at":null`)
				So(string(raw), ShouldContainSubstring, `"times":0`)
				So(string(raw), ShouldContainSubstring, `"roleCount":0`)
				So(string(raw), ShouldContainSubstring, `"gapDays":9999`)
				So(string(raw), ShouldContainSubstring, `"role":"driver"`)
			})
		})

		Convey("When selecting lists by role", func() {
			res.Attendant = append(res.Attendant, types.RankedCandidate{Username: "carol", Role: model.RoleAttendant, Rank: 1})

			Convey("Then List should return the matching list", func() {
				So(res.List(model.RoleAttendant), ShouldHaveLength, 1)
				So(res.List(model.RoleDriver), ShouldHaveLength, 0)
			})
		})
	})
}
