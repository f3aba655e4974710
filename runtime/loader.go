// Package runtime wires the relay pipeline: command intake, session state,
// moderation, and event fanout. It contains no rendering or transport code.
package runtime

import (
	"bufio"
	"bytes"
	"chat-relay/errors"
	"embed"
	"io/fs"
	"strings"
)

// Dictionary carries the loaded censored words plus metadata for logging.
type Dictionary struct {
	Words     []string
	Languages []string
}

// DictionaryLoader reads blacklisted words from embedded .txt files,
// one dictionary per language.
type DictionaryLoader struct {
	fs embed.FS
}

func NewDictionaryLoader(f embed.FS) *DictionaryLoader {
	return &DictionaryLoader{fs: f}
}

// LoadAll parses every .txt file under path into a deduplicated word list.
// The filename without extension is recorded as the language code.
func (l *DictionaryLoader) LoadAll(path string) (*Dictionary, error) {
	entries, err := fs.ReadDir(l.fs, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := l.fs.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}

	return &Dictionary{Words: words, Languages: languages}, nil
}
