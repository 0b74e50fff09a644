package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemory(t *testing.T) {
	Convey("Given an in-memory history limited to three entries", t, func() {
		ctx := context.Background()
		store := NewMemory(WithLimit(3))

		Convey("When entries are appended", func() {
			for i := range 5 {
				So(store.Append(ctx, 7, NewEntry(DirectionIn, fmt.Sprintf("msg %d", i))), ShouldBeNil)
			}
			So(store.Append(ctx, 8, NewEntry(DirectionOut, "other")), ShouldBeNil)

			Convey("Then only the newest entries are kept, oldest first", func() {
				got, err := store.List(ctx, 7)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].Text, ShouldEqual, "msg 2")
				So(got[2].Text, ShouldEqual, "msg 4")
			})

			Convey("Then requesters are isolated", func() {
				got, _ := store.List(ctx, 8)
				So(got, ShouldHaveLength, 1)
				So(got[0].Direction, ShouldEqual, DirectionOut)
			})

			Convey("Then the returned slice is a copy", func() {
				got, _ := store.List(ctx, 7)
				got[0].Text = "changed"
				again, _ := store.List(ctx, 7)
				So(again[0].Text, ShouldEqual, "msg 2")
			})

			Convey("Then Reset clears one requester only", func() {
				So(store.Reset(ctx, 7), ShouldBeNil)
				got, _ := store.List(ctx, 7)
				So(got, ShouldBeEmpty)
				other, _ := store.List(ctx, 8)
				So(other, ShouldHaveLength, 1)
			})
		})

		Convey("When many goroutines append concurrently", func() {
			store := NewMemory(WithLimit(1000))
			var wg sync.WaitGroup
			for i := range 50 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = store.Append(ctx, 1, NewEntry(DirectionIn, fmt.Sprint(i)))
				}()
			}
			wg.Wait()

			Convey("Then no entry is lost", func() {
				got, _ := store.List(ctx, 1)
				So(got, ShouldHaveLength, 50)
			})
		})
	})
}

func TestNewEntry(t *testing.T) {
	Convey("NewEntry assigns distinct ids and a UTC timestamp", t, func() {
		a := NewEntry(DirectionIn, "x")
		b := NewEntry(DirectionIn, "x")
		So(a.ID, ShouldNotEqual, b.ID)
		So(a.At.Location(), ShouldEqual, time.UTC)
	})
}

func TestRedis(t *testing.T) {
	Convey("Given a Redis history", t, func() {
		Convey("Connect fails when the server is unreachable", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := Connect(ctx, "127.0.0.1:1")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldStartWith, "ping redis")
		})

		Convey("Keys are namespaced per requester", func() {
			r := NewRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), WithKeyPrefix("test"))
			defer r.Close()
			So(r.key(42), ShouldEqual, "test:42")
		})

		Convey("Operations report store errors", func() {
			cli := redis.NewClient(&redis.Options{
				Addr:        "127.0.0.1:1",
				DialTimeout: 100 * time.Millisecond,
				MaxRetries:  -1,
			})
			r := NewRedis(cli)
			defer r.Close()
			ctx := context.Background()

			So(errors.Is(r.Append(ctx, 1, NewEntry(DirectionIn, "x")), ErrStore), ShouldBeTrue)
			_, err := r.List(ctx, 1)
			So(errors.Is(err, ErrStore), ShouldBeTrue)
			So(errors.Is(r.Reset(ctx, 1), ErrStore), ShouldBeTrue)
		})

		Convey("Stored entries decode back", func() {
			e := NewEntry(DirectionOut, "Current RQ Count: 1")
			raw, err := json.Marshal(e)
			So(err, ShouldBeNil)

			got, err := decodeEntries([]string{string(raw)})
			So(err, ShouldBeNil)
			So(got[0].ID, ShouldEqual, e.ID)
			So(got[0].At.Equal(e.At), ShouldBeTrue)

			_, err = decodeEntries([]string{"{"})
			So(errors.Is(err, ErrStore), ShouldBeTrue)
		})
	})
}
