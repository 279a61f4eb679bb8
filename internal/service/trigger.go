package service

import (
	"strings"
	"unicode"
)

// NormalizeTranscript 转小写并去掉 ASCII 标点符号
func NormalizeTranscript(text string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)
}

// containsPhrase 短语同样做归一化后按子串匹配，空短语不匹配
func containsPhrase(normalized, phrase string) bool {
	phrase = NormalizeTranscript(strings.TrimSpace(phrase))
	if phrase == "" {
		return false
	}
	return strings.Contains(normalized, phrase)
}
