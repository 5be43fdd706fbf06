package membership_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/grouprank/internal/adapters/repository"
	"github.com/okian/grouprank/internal/domain/membership"
	"github.com/okian/grouprank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) MemberOf(context.Context, string) (string, bool, error) {
	return "", false, repository.ErrUnavailable
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry over two groups", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		So(store.EnsureGroup(ctx, model.Group{ID: "A", Name: "Nova"}), ShouldBeNil)
		So(store.EnsureGroup(ctx, model.Group{ID: "B", Name: "Explorers"}), ShouldBeNil)

		joinedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
		reg := membership.NewRegistry(store, membership.WithClock(func() time.Time { return joinedAt }))
		ada := model.User{ID: "u1", DisplayName: "Ada"}

		Convey("When a user without membership joins", func() {
			err := reg.Join(ctx, ada, "A")

			Convey("Then the membership is recorded with defaults", func() {
				So(err, ShouldBeNil)
				groupID, ok, err := reg.GroupOf(ctx, "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(groupID, ShouldEqual, "A")

				members, err := reg.Members(ctx, "A")
				So(err, ShouldBeNil)
				So(members, ShouldResemble, []model.Member{{
					UserID: "u1", DisplayName: "Ada", Branch: model.DefaultBranch, JoinedAt: joinedAt,
				}})
			})

			Convey("And joining the same group again fails", func() {
				So(reg.Join(ctx, ada, "A"), ShouldEqual, model.ErrAlreadyMember)
			})

			Convey("And joining another group fails", func() {
				So(reg.Join(ctx, ada, "B"), ShouldEqual, model.ErrAlreadyMember)
			})

			Convey("And leaving a group they are not in fails", func() {
				So(reg.Leave(ctx, "u1", "B"), ShouldEqual, model.ErrNotMember)
			})

			Convey("And leaving their group frees them to join elsewhere", func() {
				So(reg.Leave(ctx, "u1", "A"), ShouldBeNil)
				_, ok, err := reg.GroupOf(ctx, "u1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(reg.Join(ctx, ada, "B"), ShouldBeNil)
			})
		})

		Convey("When the branch is supplied", func() {
			So(reg.Join(ctx, model.User{ID: "u2", DisplayName: "Lin", Branch: "ECE"}, "B"), ShouldBeNil)
			members, err := reg.Members(ctx, "B")
			So(err, ShouldBeNil)
			So(members[0].Branch, ShouldEqual, "ECE")
		})

		Convey("When the group does not exist", func() {
			Convey("Then join, leave and members report not found", func() {
				So(reg.Join(ctx, ada, "Z"), ShouldEqual, model.ErrNotFound)
				So(reg.Leave(ctx, "u1", "Z"), ShouldEqual, model.ErrNotFound)
				_, err := reg.Members(ctx, "Z")
				So(err, ShouldEqual, model.ErrNotFound)
			})
		})

		Convey("When the store is unavailable", func() {
			broken := membership.NewRegistry(failingStore{store})
			_, _, err := broken.GroupOf(ctx, "u1")

			Convey("Then the infrastructure error is not a domain error", func() {
				So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
				So(errors.Is(err, model.ErrNotFound), ShouldBeFalse)
			})
		})
	})
}
