package model_test

import (
	"encoding/json"
	"strings"
	"testing"

	model "github.com/okian/vesselsnap/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestBoundingBox(t *testing.T) {
	convey.Convey("Given the Rotterdam harbour box", t, func() {
		box := model.BoundingBox{MinLat: 51.90, MaxLat: 51.91, MinLon: 4.44, MaxLon: 4.48}

		convey.Convey("When a point is strictly inside", func() {
			convey.Convey("Then it should be contained", func() {
				convey.So(box.Contains(51.905, 4.46), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a point lies exactly on each bound", func() {
			convey.Convey("Then every bound should be inclusive", func() {
				convey.So(box.Contains(51.90, 4.46), convey.ShouldBeTrue)
				convey.So(box.Contains(51.91, 4.46), convey.ShouldBeTrue)
				convey.So(box.Contains(51.905, 4.44), convey.ShouldBeTrue)
				convey.So(box.Contains(51.905, 4.48), convey.ShouldBeTrue)
				convey.So(box.Contains(51.90, 4.44), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a point is north of the box", func() {
			convey.Convey("Then it should be excluded", func() {
				convey.So(box.Contains(52.0, 4.46), convey.ShouldBeFalse)
				convey.So(box.ContainsPosition(model.Position{Latitude: 52.0, Longitude: 4.46}), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the box is inverted", func() {
			inverted := model.BoundingBox{MinLat: 51.91, MaxLat: 51.90, MinLon: 4.48, MaxLon: 4.44}

			convey.Convey("Then nothing should be contained", func() {
				convey.So(inverted.Contains(51.905, 4.46), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When building the subscription corners", func() {
			corners := box.Corners()

			convey.Convey("Then the north-west corner should come first", func() {
				convey.So(corners[0], convey.ShouldResemble, [2]float64{51.91, 4.44})
				convey.So(corners[1], convey.ShouldResemble, [2]float64{51.90, 4.48})
			})
		})
	})
}

func TestIdentity(t *testing.T) {
	convey.Convey("Given vessel identities", t, func() {
		convey.Convey("When two MMSI identities share a number", func() {
			a := model.MMSIIdentity("244000001")
			b := model.MMSIIdentity("244000001")

			convey.Convey("Then they should denote the same vessel", func() {
				convey.So(a.SameVessel(b), convey.ShouldBeTrue)
				convey.So(a.Kind(), convey.ShouldEqual, model.IdentityMMSI)
				convey.So(a.Key(), convey.ShouldEqual, "244000001")
			})
		})

		convey.Convey("When an identity is derived from a name", func() {
			id := model.NameIdentity("  NORDIC STAR ")

			convey.Convey("Then the key should be prefixed and trimmed", func() {
				convey.So(id.Key(), convey.ShouldEqual, "NONMMSI:NORDIC STAR")
				convey.So(id.Kind(), convey.ShouldEqual, model.IdentityName)
				convey.So(id.SameVessel(model.MMSIIdentity("NONMMSI:NORDIC STAR")), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When two unidentified identities are created", func() {
			a := model.NewUnidentified()
			b := model.NewUnidentified()

			convey.Convey("Then they should never match", func() {
				convey.So(a.Key(), convey.ShouldNotEqual, b.Key())
				convey.So(a.SameVessel(b), convey.ShouldBeFalse)
				convey.So(a.SameVessel(a), convey.ShouldBeFalse)
				convey.So(strings.HasPrefix(a.Key(), model.UnidentifiedPrefix), convey.ShouldBeTrue)
				convey.So(a.Unidentified(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the zero identity is inspected", func() {
			var id model.Identity

			convey.Convey("Then it should report zero", func() {
				convey.So(id.IsZero(), convey.ShouldBeTrue)
				convey.So(id.Kind().String(), convey.ShouldEqual, "unidentified")
			})
		})
	})
}

func TestPositionJSON(t *testing.T) {
	convey.Convey("Given a position without speed or course", t, func() {
		p := model.Position{
			Identity:   model.MMSIIdentity("244000001"),
			Name:       "MAASSLUIS",
			Latitude:   51.905,
			Longitude:  4.46,
			VesselType: "tug",
			ObservedAt: 1700000000000,
		}

		convey.Convey("When it is encoded as JSON", func() {
			raw, err := json.Marshal(p)
			convey.So(err, convey.ShouldBeNil)

			var decoded map[string]any
			convey.So(json.Unmarshal(raw, &decoded), convey.ShouldBeNil)

			convey.Convey("Then the identity should be a plain string and optionals null", func() {
				convey.So(decoded["mmsi"], convey.ShouldEqual, "244000001")
				convey.So(decoded["sog"], convey.ShouldBeNil)
				convey.So(decoded["cog"], convey.ShouldBeNil)
				convey.So(decoded["ts"], convey.ShouldEqual, 1700000000000.0)
			})
		})

		convey.Convey("When the observation time is read back", func() {
			convey.Convey("Then it should be millisecond precise", func() {
				convey.So(p.ObservedTime().UnixMilli(), convey.ShouldEqual, int64(1700000000000))
			})
		})

		convey.Convey("When optional fields are set", func() {
			p.SOG = model.Float(0)

			convey.Convey("Then a zero speed should remain distinguishable from absence", func() {
				convey.So(p.SOG, convey.ShouldNotBeNil)
				convey.So(*p.SOG, convey.ShouldEqual, 0.0)
			})
		})
	})
}
