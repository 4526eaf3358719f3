package pdftext

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedEngine(name, text string) engine {
	return engine{
		name: name,
		extract: func(data []byte) (string, error) {
			return text, nil
		},
	}
}

func failingEngine(name string, err error) engine {
	return engine{
		name: name,
		extract: func(data []byte) (string, error) {
			return "", err
		},
	}
}

// cleanProse is long enough and plain enough to score near 1.
var cleanProse = strings.Repeat("the course covers linear algebra and calculus ", 10)

// glyphSoup is what a failed layout reconstruction looks like.
var glyphSoup = strings.Repeat("\x00�#@!$%^&*()[]{}|\\ ", 20)

func TestBestOfPrefersCleanerText(t *testing.T) {
	got, err := bestOf(nil, []engine{
		fixedEngine("a", glyphSoup),
		fixedEngine("b", cleanProse),
	})
	require.NoError(t, err)
	require.Equal(t, "b", got.Engine)
	require.Equal(t, cleanProse, got.Text)
	require.Greater(t, got.Confidence, 0.9)
}

func TestBestOfTieGoesToFirstEngine(t *testing.T) {
	got, err := bestOf(nil, []engine{
		fixedEngine("a", cleanProse),
		fixedEngine("b", cleanProse),
	})
	require.NoError(t, err)
	require.Equal(t, "a", got.Engine)
}

func TestBestOfSurvivesOneEngineFailing(t *testing.T) {
	got, err := bestOf(nil, []engine{
		failingEngine("a", errors.New("parser panicked")),
		fixedEngine("b", cleanProse),
	})
	require.NoError(t, err)
	require.Equal(t, "b", got.Engine)
}

func TestBestOfReportsWhenAllEnginesFail(t *testing.T) {
	_, err := bestOf(nil, []engine{
		failingEngine("a", errors.New("bad xref")),
		failingEngine("b", errors.New("bad trailer")),
	})
	require.ErrorIs(t, err, ErrNoText)
	require.ErrorContains(t, err, "bad xref")
	require.ErrorContains(t, err, "bad trailer")
}

func TestBestOfIsDeterministic(t *testing.T) {
	engines := []engine{
		fixedEngine("a", glyphSoup),
		fixedEngine("b", cleanProse),
	}
	first, err := bestOf(nil, engines)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := bestOf(nil, engines)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestScoreWeights(t *testing.T) {
	// Empty text fails every check.
	require.Zero(t, Score(""))

	// Plain but far too short: only the character and token checks pass.
	require.InDelta(t, 0.7, Score("short text"), 0.001)

	// Long clean prose passes all three.
	require.InDelta(t, 1.0, Score(cleanProse), 0.01)

	// Pure symbol noise at plausible length earns the length credit only.
	noise := strings.Repeat("#@!$%^&*()", 20)
	require.InDelta(t, 0.3, Score(noise), 0.001)
}

func TestScoreNeverExceedsOne(t *testing.T) {
	require.LessOrEqual(t, Score(cleanProse), 1.0)
}

func TestExtractBestRejectsGarbage(t *testing.T) {
	_, err := ExtractBest([]byte("not a pdf at all"))
	require.Error(t, err)
}
