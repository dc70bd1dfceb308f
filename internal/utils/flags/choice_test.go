package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "LogLevels",
			defaultChoice:  "info",
			choices:        []string{"debug", "info", "warn", "error"},
			description:    "Override the configured log level.",
			expectedOutput: "`<debug|INFO|warn|error>` Override the configured log level.",
		},
		{
			name:           "LogFormats",
			defaultChoice:  "auto",
			choices:        []string{"auto", "structured", "console"},
			description:    "Override the configured log format.",
			expectedOutput: "`<AUTO|structured|console>` Override the configured log format.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "alpha",
			choices:        []string{"alpha", "beta"},
			expectedOutput: "`<ALPHA|beta>`",
		},
		{
			name:           "DuplicateChoicesIgnored",
			defaultChoice:  "beta",
			choices:        []string{"beta", "beta", "alpha", " alpha "},
			description:    "Select between options.",
			expectedOutput: "`<BETA|alpha>` Select between options.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual := FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description)
			require.Equal(t, testCase.expectedOutput, actual)
		})
	}
}

func TestMatchChoice(t *testing.T) {
	choices := []string{"auto", "structured", "console"}

	matched, matchError := MatchChoice(" Console ", choices)
	require.NoError(t, matchError)
	require.Equal(t, "console", matched)

	blank, blankError := MatchChoice("  ", choices)
	require.NoError(t, blankError)
	require.Empty(t, blank)

	_, unknownError := MatchChoice("json", choices)
	require.EqualError(t, unknownError, `unsupported value "json" (expected one of auto|structured|console)`)
}
