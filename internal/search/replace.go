package search

import (
	"sort"
	"strings"

	"offleaf/internal/logger"
	"offleaf/internal/types"
)

// ReplaceOne splices replacement into content at the position of match and
// returns the new content. Offsets are taken against the current line of
// content; a match that no longer fits leaves content unchanged. Callers
// should search again afterwards since other matches are not adjusted.
func ReplaceOne(content string, match types.SearchMatch, replacement string) string {
	lines := strings.Split(content, "\n")
	if !spliceLine(lines, match, replacement) {
		logger.Debug("replace skipped, match out of range",
			logger.String("fileId", match.FileID),
			logger.Int("line", match.Line),
			logger.Int("matchStart", match.MatchStart))
		return content
	}
	return strings.Join(lines, "\n")
}

// ReplaceAll applies every match to its buffer and returns the new content of
// each affected file keyed by file ID. Matches whose file is not in corpus
// are skipped.
func ReplaceAll(corpus []types.FileBuffer, matches []types.SearchMatch, replacement string) map[string]string {
	byFile := make(map[string][]types.SearchMatch)
	for _, m := range matches {
		byFile[m.FileID] = append(byFile[m.FileID], m)
	}

	result := make(map[string]string, len(byFile))
	for _, file := range corpus {
		fileMatches, ok := byFile[file.FileID]
		if !ok {
			continue
		}
		delete(byFile, file.FileID)

		// Apply from the end of the buffer backwards so pending offsets on the
		// same line stay valid when the replacement length differs.
		sort.SliceStable(fileMatches, func(i, j int) bool {
			if fileMatches[i].Line != fileMatches[j].Line {
				return fileMatches[i].Line > fileMatches[j].Line
			}
			return fileMatches[i].MatchStart > fileMatches[j].MatchStart
		})

		lines := strings.Split(file.Content, "\n")
		applied := 0
		for _, m := range fileMatches {
			if spliceLine(lines, m, replacement) {
				applied++
			}
		}
		result[file.FileID] = strings.Join(lines, "\n")

		logger.Debug("replacements applied",
			logger.String("fileId", file.FileID),
			logger.Int("applied", applied),
			logger.Int("requested", len(fileMatches)))
	}

	for fileID := range byFile {
		logger.Debug("replace skipped unknown file", logger.String("fileId", fileID))
	}
	return result
}

// spliceLine replaces runes [MatchStart, MatchEnd) of line match.Line.
// A trailing \r is kept out of the addressable range.
func spliceLine(lines []string, match types.SearchMatch, replacement string) bool {
	idx := match.Line - 1
	if idx < 0 || idx >= len(lines) {
		return false
	}

	line := lines[idx]
	cr := strings.HasSuffix(line, "\r")
	if cr {
		line = strings.TrimSuffix(line, "\r")
	}

	runes := []rune(line)
	if match.MatchStart < 0 || match.MatchEnd < match.MatchStart || match.MatchEnd > len(runes) {
		return false
	}

	var sb strings.Builder
	sb.WriteString(string(runes[:match.MatchStart]))
	sb.WriteString(replacement)
	sb.WriteString(string(runes[match.MatchEnd:]))
	if cr {
		sb.WriteByte('\r')
	}
	lines[idx] = sb.String()
	return true
}
