// Package tokenizer turns documentation text into the stemmed terms stored
// in a search index. Indexing and querying share it so both sides agree on
// word boundaries, stop words and stems.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	porterstemmer "github.com/reiver/go-porterstemmer"
)

// stopWords is the English list the documentation generator ships with.
var stopWords = map[string]struct{}{
	"a": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "near": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "such": {}, "that": {}, "the": {}, "their": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "to": {},
	"was": {}, "will": {}, "with": {},
}

// Token is one indexed term and its ordinal among the kept tokens.
type Token struct {
	Term     string
	Position int
}

// Split breaks text into words: maximal runs of letters, numbers and
// underscores. Case is preserved.
func Split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '_'
	})
}

// IsStopWord expects a lower-cased word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// IsNumber reports whether word consists only of decimal digits.
func IsNumber(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Stem lower-cases word and reduces it with the Porter algorithm. When the
// stem would be two characters or fewer, or a stop word, the lower-cased
// word is kept instead ("being" stays "being", not "be").
func Stem(word string) string {
	word = strings.ToLower(word)
	if utf8.RuneCountInString(word) <= 2 {
		return word
	}
	stem := porterstemmer.StemString(word)
	if utf8.RuneCountInString(stem) <= 2 || IsStopWord(stem) {
		return word
	}
	return stem
}

// Keep reports whether a word should be indexed at all.
func Keep(lower string) bool {
	return lower != "" && !IsStopWord(lower) && !IsNumber(lower)
}

// Tokenize splits, lower-cases and stems text, dropping stop words and
// numbers.
func Tokenize(text string) []Token {
	words := Split(text)
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(word)
		if !Keep(lower) {
			continue
		}
		term := Stem(lower)
		if term == "" {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: len(tokens)})
	}
	return tokens
}

// Terms returns the distinct stems of text in first-seen order.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range Tokenize(text) {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}
