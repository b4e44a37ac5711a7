package sentence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecord_ImportedUsesContent(t *testing.T) {
	s, err := FromRecord(Record{ID: "a", Content: "hello", SpeakerID: "x"})
	require.NoError(t, err)

	assert.Equal(t, "hello", s.Text())
	assert.Equal(t, "a", s.ID)
	assert.Equal(t, "x", s.SpeakerID)
	assert.False(t, s.Timed())
	assert.Nil(t, s.Words())
}

func TestFromRecord_NeitherContentNorWords(t *testing.T) {
	_, err := FromRecord(Record{ID: "a", Content: "", Words: []Word{}})
	assert.ErrorIs(t, err, ErrInvalidSentenceState)
}

func TestFromRecord_BothContentAndWords(t *testing.T) {
	_, err := FromRecord(Record{
		ID:      "a",
		Content: "hello",
		Words:   []Word{{Text: "hello", Start: 0, End: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidSentenceState)
}

func TestFromRecord_DerivedWithoutIDGetsTimingID(t *testing.T) {
	s, err := FromRecord(Record{
		Words: []Word{{Text: "Hi", Start: 1, End: 1.5}, {Text: " there.", Start: 1.5, End: 2.25}},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.0-2.25", s.ID)
	assert.Equal(t, "Hi there.", s.Text())
}

func TestDerivedTiming(t *testing.T) {
	s, err := NewDerived("id", "spk", []Word{
		{Text: "The", Start: 0.0, End: 0.3},
		{Text: " cat", Start: 0.3, End: 0.6},
		{Text: " sat.", Start: 0.6, End: 1.2},
	})
	require.NoError(t, err)

	assert.True(t, s.Timed())
	assert.Equal(t, "The cat sat.", s.Text())
	assert.InDelta(t, 0.0, s.Start(), 1e-9)
	assert.InDelta(t, 1.2, s.End(), 1e-9)
	assert.InDelta(t, 1.2, s.Duration(), 1e-9)
}

func TestConstructorsRejectEmpty(t *testing.T) {
	_, err := NewDerived("a", "x", nil)
	assert.ErrorIs(t, err, ErrInvalidSentenceState)

	_, err = NewImported("a", "x", "")
	assert.ErrorIs(t, err, ErrInvalidSentenceState)
}

func TestRecordRoundTrip(t *testing.T) {
	derived, err := NewDerived("d1", "default", []Word{{Text: "Yes.", Start: 0, End: 1.1}})
	require.NoError(t, err)
	imported, err := NewImported("i1", "guest", "Imported line.")
	require.NoError(t, err)

	for _, want := range []Sentence{derived, imported} {
		got, err := FromRecord(want.ToRecord())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestToRecord_ImportedHasEmptyWordList(t *testing.T) {
	s, err := NewImported("i1", "guest", "Line.")
	require.NoError(t, err)

	r := s.ToRecord()
	assert.NotNil(t, r.Words)
	assert.Empty(t, r.Words)
	assert.Equal(t, "Line.", r.Content)
}
