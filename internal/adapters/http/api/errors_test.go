package api

import (
	"errors"
	"testing"

	"github.com/okian/grouprank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestError(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("unexpected EOF")

		Convey("WrapKind matches both the kind and the cause", func() {
			err := WrapKind("api.join", ErrBadRequest, cause)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.join: bad request: unexpected EOF")
		})

		Convey("Wrap and WrapKind return nil for nil", func() {
			So(Wrap("op", nil), ShouldBeNil)
			So(WrapKind("op", ErrBadRequest, nil), ShouldBeNil)
		})

		Convey("NewKind has no cause", func() {
			err := NewKind("api.rate", ErrUnavailable)
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.rate: temporarily unavailable")
		})

		Convey("statusFor keeps domain errors distinct", func() {
			status, code := statusFor(Wrap("op", model.ErrDuplicateRating))
			So(status, ShouldEqual, 409)
			So(code, ShouldEqual, "duplicate_rating")

			status, _ = statusFor(model.ErrInvalidScore)
			So(status, ShouldEqual, 422)
			status, _ = statusFor(model.ErrNotEligible)
			So(status, ShouldEqual, 403)
			status, _ = statusFor(errors.New("other"))
			So(status, ShouldEqual, 500)
		})
	})
}
