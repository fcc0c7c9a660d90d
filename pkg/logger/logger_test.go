package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with the default text format", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get returns a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				Get().Info(context.Background(), "test message", String("k", "v"))
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with the json format", func() {
			So(InitWithFormat("json"), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When initialized with an unknown format", func() {
			err := InitWithFormat("xml")

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a json logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(initTo(&buf, "json"), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When a named logger writes an entry", func() {
			Named("predictions").Info(context.Background(), "prediction stored",
				String("race", "r1"),
				Int("sessions", 2),
				Bool("cascade", true),
			)

			var entry map[string]any
			So(json.Unmarshal(buf.Bytes(), &entry), ShouldBeNil)

			Convey("Then fields, component and caller are present", func() {
				So(entry["msg"], ShouldEqual, "prediction stored")
				So(entry["race"], ShouldEqual, "r1")
				So(entry["sessions"], ShouldEqual, 2.0)
				So(entry["cascade"], ShouldEqual, true)
				So(entry["component"], ShouldEqual, "predictions")
				So(strings.Contains(entry["source"].(string), "logger_test.go"), ShouldBeTrue)
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(context.Background(), "dropped")

			Convey("Then info entries are suppressed", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When an unknown level is set", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}
