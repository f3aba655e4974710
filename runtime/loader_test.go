package runtime

import (
	"chat-relay/errors"
	"embed"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testdataFS embed.FS

func TestDictionaryLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	loader := NewDictionaryLoader(testdataFS)

	// When loading two dictionaries with blanks, duplicates and \r\n endings
	dict, err := loader.LoadAll("testdata/words")

	// Then words are deduplicated across files and languages recorded
	req.NoError(err)
	req.ElementsMatch([]string{"damn", "crap", "zut", "cretin"}, dict.Words)
	req.Equal([]string{"en", "fr"}, dict.Languages)
}

func TestDictionaryLoader_Empty_Dictionary_Fails(t *testing.T) {
	req := require.New(t)
	loader := NewDictionaryLoader(testdataFS)

	// When every file is blank
	_, err := loader.LoadAll("testdata/blank")

	// Then startup must fail loudly rather than run without moderation
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestDictionaryLoader_Missing_Folder_Fails(t *testing.T) {
	req := require.New(t)
	loader := NewDictionaryLoader(testdataFS)

	_, err := loader.LoadAll("testdata/nope")
	req.Error(err)
}
