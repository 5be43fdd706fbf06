package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the default format", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with json", func() {
			So(InitWithFormat("json"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithFormat("xml")

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(initWriter(&buf, "json"), ShouldBeNil)
		SetLevel(slog.LevelInfo)
		defer func() { _ = Init() }()

		Convey("When logging with fields from a named logger", func() {
			Named("engine").Info(context.Background(), "rating submitted",
				String("groupId", "g1"),
				Int("points", 105),
				Bool("isSelf", true),
				Error(errors.New("boom")),
			)

			Convey("Then the record carries message, fields, component and source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "rating submitted")
				So(rec["groupId"], ShouldEqual, "g1")
				So(rec["points"], ShouldEqual, float64(105))
				So(rec["component"], ShouldEqual, "engine")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the configured level", func() {
			Get().Debug(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "WARNING", " error "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}

		Convey("Then unknown levels are rejected", func() {
			err := SetLevelString("verbose")
			So(err, ShouldNotBeNil)
			So(strings.Contains(err.Error(), "verbose"), ShouldBeTrue)
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}
