package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"
)

//go:embed words/*.txt
var wordFiles embed.FS

// WordList is the result of loading the embedded dictionaries, with the
// language codes kept around for logging.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadWords parses every embedded dictionary (one word per line, "#" for
// comments) into a deduplicated word list.
func LoadWords() (*WordList, error) {
	entries, err := fs.ReadDir(wordFiles, "words")
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		// "en.txt" -> "en"
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordFiles.ReadFile("words/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			uniqueWords[strings.ToLower(line)] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	words := make([]string, 0, len(uniqueWords))
	for word := range uniqueWords {
		words = append(words, word)
	}
	return &WordList{Words: words, Languages: languages}, nil
}
