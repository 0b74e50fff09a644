package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/tallybot/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func validMessage() model.Message {
	return model.Message{
		ID:        7,
		Author:    model.Author{ID: 11, Name: "Alice Liddell", Email: "alice@example.edu"},
		Timestamp: time.Date(2023, 4, 10, 9, 0, 0, 0, time.UTC),
		Stream:    "CS 35L",
		Topic:     "discussion [w2mon]",
		Reactions: []model.Reaction{{Emoji: "thumbs_up", UserID: 11}, {Emoji: "cross_mark", UserID: 2}},
	}
}

func TestMessageValidate(t *testing.T) {
	convey.Convey("Given a message", t, func() {
		m := validMessage()

		convey.Convey("A complete message is valid", func() {
			convey.So(m.Validate(), convey.ShouldBeNil)
		})

		cases := []struct {
			field  string
			mutate func(*model.Message)
		}{
			{"id", func(m *model.Message) { m.ID = 0 }},
			{"author.id", func(m *model.Message) { m.Author.ID = 0 }},
			{"author.name", func(m *model.Message) { m.Author.Name = "" }},
			{"timestamp", func(m *model.Message) { m.Timestamp = time.Time{} }},
		}
		for _, tc := range cases {
			convey.Convey("Missing "+tc.field+" is malformed", func() {
				tc.mutate(&m)
				err := m.Validate()
				convey.So(errors.Is(err, model.ErrMalformedMessage), convey.ShouldBeTrue)

				var me *model.MalformedError
				convey.So(errors.As(err, &me), convey.ShouldBeTrue)
				convey.So(me.Field, convey.ShouldEqual, tc.field)
				convey.So(me.Reason, convey.ShouldEqual, "missing")
				convey.So(err.Error(), convey.ShouldContainSubstring, "missing "+tc.field)
			})
		}

		convey.Convey("Empty topic and body are allowed", func() {
			m.Topic, m.Body = "", ""
			convey.So(m.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestMessageMarkedBy(t *testing.T) {
	convey.Convey("Given a message with reactions", t, func() {
		m := validMessage()
		reviewers := map[int64]bool{2: true}
		isReviewer := func(id int64) bool { return reviewers[id] }

		convey.So(m.MarkedBy("cross_mark", isReviewer), convey.ShouldBeTrue)
		convey.So(m.MarkedBy("thumbs_up", isReviewer), convey.ShouldBeFalse)
		convey.So(m.MarkedBy("x", isReviewer), convey.ShouldBeFalse)
	})
}
