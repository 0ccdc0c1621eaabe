package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefinitionCanonicality(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"crlf", "CREATE PROCEDURE x\r\nAS\r\nBEGIN\r\nEND\r\n", "CREATE PROCEDURE x\nAS\nBEGIN\nEND"},
		{"trailing whitespace", "line one   \nline two\t\t\n", "line one\nline two"},
		{"blank lines dropped", "a\n\n\nb\n   \nc", "a\nb\nc"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDefinition(tc.input))
		})
	}
}

func TestNormalizeDefinitionIdempotent(t *testing.T) {
	inputs := []string{
		"CREATE VIEW v AS\r\nSELECT 1\r\n",
		"",
		"no trailing newline",
		"\n\n\nonly blanks\n\n",
	}
	for _, s := range inputs {
		once := NormalizeDefinition(s)
		twice := NormalizeDefinition(once)
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", s)
	}
}

func TestDefinitionHashCanonicalEquality(t *testing.T) {
	a := ProgrammableObject{Schema: "dbo", Name: "GetUser", Definition: "CREATE PROCEDURE dbo.GetUser AS\r\nSELECT 1\r\n"}
	b := ProgrammableObject{Schema: "dbo", Name: "GetUser", Definition: "CREATE PROCEDURE dbo.GetUser AS\nSELECT 1"}
	require.Equal(t, a.DefinitionHash(), b.DefinitionHash(), "CRLF-only difference must hash identically")

	c := ProgrammableObject{Schema: "dbo", Name: "GetUser", Definition: "CREATE PROCEDURE dbo.GetUser AS\nSELECT 2"}
	assert.NotEqual(t, a.DefinitionHash(), c.DefinitionHash())
}

func TestDefinitionHashEmptyDefinitionsAreEqual(t *testing.T) {
	a := ProgrammableObject{Schema: "dbo", Name: "A", Definition: ""}
	b := ProgrammableObject{Schema: "dbo", Name: "B", Definition: "   \n\n"}
	assert.Equal(t, a.DefinitionHash(), b.DefinitionHash())
}

func TestFullName(t *testing.T) {
	o := ProgrammableObject{Schema: "dbo", Name: "GetUser"}
	assert.Equal(t, "dbo.GetUser", o.FullName())
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindProcedure.IsValid())
	assert.True(t, KindInlineFunction.IsValid())
	assert.False(t, Kind("X").IsValid())
}

func TestScanLogAppendErrorTruncatesAt20(t *testing.T) {
	var log ScanLog
	for i := 0; i < 25; i++ {
		log.AppendError("error line")
	}
	require.NotNil(t, log.ErrorSummary)
	lines := 1
	for _, r := range *log.ErrorSummary {
		if r == '\n' {
			lines++
		}
	}
	assert.Equal(t, maxErrorSummaryLines, lines)
}

func TestBaselineValidateRequiresName(t *testing.T) {
	b := Baseline{Source: Target{Environment: EnvironmentProduction}}
	err := b.Validate()
	assert.ErrorIs(t, err, ErrInvariant)
}
