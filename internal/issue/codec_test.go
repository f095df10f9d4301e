package issue

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/integrator/internal/model"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "ICD9.250.00", Encode(ICD9, "250.00"))
	assert.Equal(t, "SNOMED_CORE.123", Encode(SNOMEDCore, "123"))
	assert.Equal(t, "CUSTOM_ISSUE.x", NoteIssue{System: CustomIssue, Code: "x"}.String())
}

func TestDecode_RoundTripEverySystem(t *testing.T) {
	codes := []string{"250", "44054006", "A-1_b", "with space"}
	for _, cs := range CodingSystems() {
		for _, code := range codes {
			got, err := Decode(Encode(cs, code))
			require.NoError(t, err, "%s/%s", cs, code)
			assert.Equal(t, NoteIssue{System: cs, Code: code}, got)
		}
	}
}

func TestDecode_SplitsOnFirstDot(t *testing.T) {
	got, err := Decode("ICD9.250.00")
	require.NoError(t, err)
	assert.Equal(t, ICD9, got.System)
	assert.Equal(t, "250.00", got.Code)
}

func TestDecode_Errors(t *testing.T) {
	tests := []string{
		"",
		"BOGUS",
		"ICD9",
		"ICD9.",
		".250",
		"icd9.250",
		"UNKNOWN.250",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			require.Error(t, err)
			assert.True(t, model.IsFormat(err), "expected format error, got %v", err)
		})
	}
}

func TestDecodeAll_SkipsMalformed(t *testing.T) {
	got := DecodeAll([]string{"ICD9.250.00", "BOGUS", "SNOMED.44054006"})

	assert.Equal(t, 2, got.Cardinality())
	assert.True(t, got.Contains(NoteIssue{System: ICD9, Code: "250.00"}))
	assert.True(t, got.Contains(NoteIssue{System: SNOMED, Code: "44054006"}))
}

func TestDecodeAll_CollapsesDuplicates(t *testing.T) {
	got := DecodeAll([]string{"ICD10.E11", "ICD10.E11", "ICD9.E11"})
	assert.Equal(t, 2, got.Cardinality())
}

func TestDecodeAll_Empty(t *testing.T) {
	assert.Equal(t, 0, DecodeAll(nil).Cardinality())
}

func TestEncodeAll(t *testing.T) {
	in := mapset.NewSet(
		NoteIssue{System: ICD9, Code: "250"},
		NoteIssue{System: SNOMED, Code: "1"},
	)
	got := EncodeAll(in)
	assert.True(t, got.Equal(mapset.NewSet("ICD9.250", "SNOMED.1")))
}

func TestEncodeAll_DecodeAllRoundTrip(t *testing.T) {
	in := mapset.NewSet(
		NoteIssue{System: Drug, Code: "ASA"},
		NoteIssue{System: Prevention, Code: "FLU"},
		NoteIssue{System: ICD10, Code: "E11.9"},
	)
	back := DecodeAll(EncodeAll(in).ToSlice())
	assert.True(t, in.Equal(back))
}

func TestValidateAll(t *testing.T) {
	assert.NoError(t, ValidateAll([]string{"ICD9.1", "SYSTEM.x"}))

	err := ValidateAll([]string{"ICD9.1", "BOGUS", "NOPE.2"})
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.True(t, model.IsFormat(merr.Errors[0]))
}

func TestSorted(t *testing.T) {
	in := mapset.NewSet(
		NoteIssue{System: SNOMED, Code: "2"},
		NoteIssue{System: ICD9, Code: "9"},
		NoteIssue{System: ICD10, Code: "1"},
	)
	got := Sorted(in)
	require.Len(t, got, 3)
	assert.Equal(t, "ICD10.1", got[0].String())
	assert.Equal(t, "ICD9.9", got[1].String())
	assert.Equal(t, "SNOMED.2", got[2].String())
}

func TestNoteIssue_StrictEquality(t *testing.T) {
	a := NoteIssue{System: ICD9, Code: "250"}
	b := NoteIssue{System: ICD10, Code: "250"}
	assert.NotEqual(t, a, b)

	set := mapset.NewSet(a, b)
	assert.Equal(t, 2, set.Cardinality())
}

func TestParseCodingSystem(t *testing.T) {
	for _, cs := range CodingSystems() {
		got, err := ParseCodingSystem(cs.String())
		require.NoError(t, err)
		assert.Equal(t, cs, got)
	}
	_, err := ParseCodingSystem("snomed")
	assert.True(t, model.IsFormat(err))
	assert.False(t, CodingSystem(0).Valid())
	assert.Equal(t, "CodingSystem(0)", CodingSystem(0).String())
}

func TestCodingSystem_Text(t *testing.T) {
	b, err := SNOMEDCore.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "SNOMED_CORE", string(b))

	var cs CodingSystem
	require.NoError(t, cs.UnmarshalText([]byte("PREVENTION")))
	assert.Equal(t, Prevention, cs)
	assert.Error(t, cs.UnmarshalText([]byte("nope")))

	_, err = CodingSystem(99).MarshalText()
	assert.Error(t, err)
}
