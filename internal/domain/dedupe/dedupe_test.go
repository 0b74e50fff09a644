package dedupe_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/tallybot/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("It starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("A new id is recorded", func() {
			So(d.SeenAndRecord(ctx, 101), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 1)

			Convey("And reported as seen the second time", func() {
				So(d.SeenAndRecord(ctx, 101), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And can be unrecorded for a retry", func() {
				d.Unrecord(ctx, 101)
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, 101), ShouldBeFalse)
			})
		})

		Convey("Unrecording an unknown id is a no-op", func() {
			d.SeenAndRecord(ctx, 1)
			d.Unrecord(ctx, 2)
			So(d.Size(), ShouldEqual, 1)
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for id := int64(1); id <= 4; id++ {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("The oldest id is forgotten first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, 4), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, 2), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, 1), ShouldBeFalse)
		})

		Convey("Unrecording from the middle keeps the order intact", func() {
			d.Unrecord(ctx, 3)
			So(d.SeenAndRecord(ctx, 5), ShouldBeFalse)
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, 6), ShouldBeFalse)
			So(d.SeenAndRecord(ctx, 2), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for id := int64(1); id <= 1000; id++ {
			d.SeenAndRecord(ctx, id)
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, 1), ShouldBeTrue)
	})
}

func TestInMemoryDeduperConcurrent(t *testing.T) {
	Convey("Given concurrent writers racing on the same ids", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for id := int64(1); id <= 500; id++ {
					if !d.SeenAndRecord(ctx, id) {
						fresh.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		Convey("Each id is new exactly once", func() {
			So(fresh.Load(), ShouldEqual, 500)
			So(d.Size(), ShouldEqual, 500)
		})
	})
}
