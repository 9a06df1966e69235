package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		pattern string
		isValid bool
	}{
		{"camcal", true},
		{"camcal.stereo.*", true},
		{"camcal.*.left", true},
		{"*", true},
		{"camcal..stereo", false},
		{"camcal.stereo.", false},
		{".camcal", false},
		{"camcal.**", false},
	} {
		err := LoggerPatternConfig{Pattern: tc.pattern, Level: "info"}.Validate()
		if tc.isValid {
			test.That(t, err, test.ShouldBeNil)
		} else {
			test.That(t, err, test.ShouldNotBeNil)
		}
	}
	test.That(t, LoggerPatternConfig{Pattern: "camcal", Level: "loud"}.Validate(), test.ShouldNotBeNil)
}

func TestNamedSublogger(t *testing.T) {
	t.Parallel()

	patterns := []LoggerPatternConfig{
		{Pattern: "camcal.*", Level: "warn"},
		{Pattern: "camcal.stereo.left", Level: "debug"},
		{Pattern: "camcal.bad..", Level: "error"},
	}
	parent := NewBlankLogger("camcal")
	parent.SetLevel(INFO)

	mono := NamedSublogger(parent, "mono", patterns)
	test.That(t, mono.GetLevel(), test.ShouldEqual, WARN)

	left := NamedSublogger(parent.Sublogger("stereo"), "left", patterns)
	test.That(t, left.GetLevel(), test.ShouldEqual, DEBUG)

	other := NamedSublogger(NewBlankLogger("cli"), "watch", patterns)
	test.That(t, other.GetLevel(), test.ShouldEqual, DEBUG)
	_, found := LevelFor("cli.watch", patterns)
	test.That(t, found, test.ShouldBeFalse)
}
