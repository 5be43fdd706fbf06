package ranking

import (
	"testing"

	"github.com/okian/grouprank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func row(id string, total float64) model.RankedGroup {
	return model.RankedGroup{
		Group: model.Group{ID: id, Name: "group " + id},
		Stats: model.GroupStats{TotalRating: total},
	}
}

func ids(rows []model.RankedGroup) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Group.ID)
	}
	return out
}

func TestRank(t *testing.T) {
	Convey("Given four groups with totals 80, 200, 200 and 10", t, func() {
		in := []model.RankedGroup{row("A", 80), row("B", 200), row("C", 200), row("D", 10)}
		out := Rank(in)

		Convey("Then the order is B, C, A, D with ranks 1 through 4", func() {
			So(ids(out), ShouldResemble, []string{"B", "C", "A", "D"})
			for i, r := range out {
				So(r.Rank, ShouldEqual, i+1)
			}
		})

		Convey("And the input is left untouched", func() {
			So(ids(in), ShouldResemble, []string{"A", "B", "C", "D"})
			So(in[0].Rank, ShouldEqual, 0)
		})

		Convey("And ranking is stable across repeated calls", func() {
			So(ids(Rank(in)), ShouldResemble, ids(out))
		})
	})

	Convey("Given totals that only differ below display precision", t, func() {
		out := Rank([]model.RankedGroup{row("A", 100.04), row("B", 100.06)})

		Convey("Then unrounded values decide the order", func() {
			So(Round1(100.04), ShouldEqual, 100.0)
			So(ids(out), ShouldResemble, []string{"B", "A"})
		})
	})

	Convey("Given no groups", t, func() {
		So(Rank(nil), ShouldBeEmpty)
	})
}

func TestOrdinal(t *testing.T) {
	Convey("Ordinal labels", t, func() {
		So(Ordinal(1), ShouldEqual, "1st")
		So(Ordinal(2), ShouldEqual, "2nd")
		So(Ordinal(3), ShouldEqual, "3rd")
		So(Ordinal(4), ShouldEqual, "4th")
		So(Ordinal(11), ShouldEqual, "11th")
	})
}

func TestRound1(t *testing.T) {
	Convey("Round1", t, func() {
		So(Round1(19.96), ShouldEqual, 20.0)
		So(Round1(105.34), ShouldEqual, 105.3)
		So(Round1(0), ShouldEqual, 0.0)
	})
}
