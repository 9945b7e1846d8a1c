package recommend_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"cataid-backend/internal/answers"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/scoring"
)

var motorGuidance = []string{
	"Use adaptive grips",
	"Practice fine motor tasks daily",
	"Refer for occupational therapy",
	"Use larger tools and materials",
}

func model(scores map[string]int) scoring.Model {
	m := scoring.Empty()
	for k, v := range scores {
		m.SectionScores[k] = v
		m.TotalScore += v
	}
	return m
}

func TestTierFor(t *testing.T) {
	Convey("Given section percentages at the breakpoints", t, func() {
		So(recommend.TierFor(100), ShouldEqual, recommend.Mild)
		So(recommend.TierFor(90), ShouldEqual, recommend.Mild)
		So(recommend.TierFor(89.9), ShouldEqual, recommend.Moderate)
		So(recommend.TierFor(70), ShouldEqual, recommend.Moderate)
		So(recommend.TierFor(69.9), ShouldEqual, recommend.High)
		So(recommend.TierFor(1), ShouldEqual, recommend.High)
		So(recommend.TierFor(0.5), ShouldEqual, recommend.High)
		So(recommend.TierFor(0), ShouldEqual, recommend.None)
	})
}

func TestTierOf(t *testing.T) {
	Convey("Given engine tiers", t, func() {
		tiers := map[string]recommend.Tier{"Motor Skills": recommend.High, " communication ": recommend.Mild}

		So(recommend.TierOf(tiers, "Motor Skills"), ShouldEqual, recommend.High)
		So(recommend.TierOf(tiers, "motor skills"), ShouldEqual, recommend.High)
		So(recommend.TierOf(tiers, "Communication"), ShouldEqual, recommend.Mild)
		So(recommend.TierOf(tiers, "Daily Living"), ShouldEqual, recommend.None)
		So(recommend.TierOf(nil, "Motor Skills"), ShouldEqual, recommend.None)
	})
}

func TestRecommend(t *testing.T) {
	Convey("Given an engine over a simple library", t, func() {
		engine := recommend.NewEngine(catalog.NewLibrary(map[string][]string{
			"Motor Skills": motorGuidance,
		}))
		maxima := map[string]int{"Motor Skills": 100}

		Convey("When a section scores 90%", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 90}), maxima)
			So(set["Motor Skills"], ShouldResemble, motorGuidance[:1])
		})

		Convey("When a section scores 89%", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 89}), maxima)
			So(set["Motor Skills"], ShouldResemble, motorGuidance[:2])
		})

		Convey("When a section scores 70%", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 70}), maxima)
			So(len(set["Motor Skills"]), ShouldEqual, 2)
		})

		Convey("When a section scores 69%", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 69}), maxima)
			So(set["Motor Skills"], ShouldResemble, motorGuidance)
		})

		Convey("When a section scores nothing", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 0}), maxima)
			So(set, ShouldBeEmpty)
		})

		Convey("When a section scores above its maximum", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 140}), maxima)
			So(set["Motor Skills"], ShouldResemble, motorGuidance[:1])
		})

		Convey("When the category differs in case and spacing", func() {
			set := engine.Recommend(model(map[string]int{" motor skills ": 50}), maxima)
			So(set["motor skills"], ShouldResemble, motorGuidance)
		})

		Convey("When the library has no entry for a section", func() {
			set := engine.Recommend(model(map[string]int{"Vocational Interest": 5}), map[string]int{"Vocational Interest": 10})
			So(set["Vocational Interest"], ShouldResemble, recommend.Fallback)
		})

		Convey("When a section has no usable maximum", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 5, "Unknown": 1, "": 2}), map[string]int{"Motor Skills": 0})
			So(set, ShouldBeEmpty)
		})

		Convey("Then the output does not alias the library", func() {
			set := engine.Recommend(model(map[string]int{"Motor Skills": 10}), maxima)
			set["Motor Skills"][0] = "changed"
			again := engine.Recommend(model(map[string]int{"Motor Skills": 10}), maxima)
			So(again["Motor Skills"][0], ShouldEqual, motorGuidance[0])
		})
	})

	Convey("Given a tiered library entry", t, func() {
		lib, err := catalog.ParseLibrary([]byte(`{"Communication": {
			"mild": ["Encourage peer conversation"],
			"high": ["Picture cards", "Speech therapy", "Daily modelling"]
		}}`))
		So(err, ShouldBeNil)
		engine := recommend.NewEngine(lib)
		maxima := map[string]int{"Communication": 10}

		Convey("Then explicit tier lists win", func() {
			set := engine.Recommend(model(map[string]int{"Communication": 9}), maxima)
			So(set["Communication"], ShouldResemble, []string{"Encourage peer conversation"})
		})

		Convey("Then missing tiers take a prefix of the full list", func() {
			set := engine.Recommend(model(map[string]int{"Communication": 8}), maxima)
			So(set["Communication"], ShouldResemble, []string{"Picture cards", "Speech therapy"})
		})
	})

	Convey("Given a nil library", t, func() {
		set := recommend.NewEngine(nil).Recommend(model(map[string]int{"A": 1}), map[string]int{"A": 3})
		So(set["A"], ShouldResemble, recommend.Fallback)
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given a motor skills section of two questions", t, func() {
		cat, err := catalog.New("v1", []catalog.Section{
			{Category: "Motor Skills", MaxScore: 3, Questions: []catalog.Question{
				{ID: 1, Text: "Can grip a pen"}, {ID: 2, Text: "Can fold paper"},
			}},
			{Category: "Communication", MaxScore: 3, Questions: []catalog.Question{
				{ID: 3, Text: "Responds to name"},
			}},
		})
		So(err, ShouldBeNil)
		engine := recommend.NewEngine(catalog.NewLibrary(map[string][]string{"Motor Skills": motorGuidance}))

		Convey("When scored 3 and 1", func() {
			m := scoring.ScoreBag(cat, answers.Bag{"SCORE_1": "3", "SCORE_2": "1"})
			set := engine.Recommend(m, scoring.SectionMaxima(cat))

			Convey("Then the section needs high support and untouched sections are skipped", func() {
				So(m.SectionScores["Motor Skills"], ShouldEqual, 4)
				So(set["Motor Skills"], ShouldResemble, motorGuidance)
				_, ok := set["Communication"]
				So(ok, ShouldBeFalse)
			})

			Convey("Then ordering follows the catalog", func() {
				tiers := engine.Tiers(m, scoring.SectionMaxima(cat))
				So(tiers["Motor Skills"], ShouldEqual, recommend.High)
				So(tiers["Communication"], ShouldEqual, recommend.None)

				set["Alpha"] = []string{"x"}
				blocks := recommend.Ordered(set, cat, tiers)
				So(len(blocks), ShouldEqual, 2)
				So(blocks[0].Category, ShouldEqual, "Motor Skills")
				So(blocks[0].Tier, ShouldEqual, recommend.High)
				So(blocks[1].Category, ShouldEqual, "Alpha")
			})
		})

		Convey("When nothing is scored", func() {
			m := scoring.ScoreBag(cat, answers.Bag{})
			So(engine.Recommend(m, scoring.SectionMaxima(cat)), ShouldBeEmpty)
		})
	})
}
