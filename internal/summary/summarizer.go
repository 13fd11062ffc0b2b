package summary

import (
	"fmt"
	"strings"
)

const (
	diffHeaderPrefixConstant        = "diff --git "
	diffHeaderNewFileMarkerConstant = " b/"
	additionPrefixConstant          = "+"
	additionHeaderPrefixConstant    = "+++"
	removalPrefixConstant           = "-"
	removalHeaderPrefixConstant     = "---"
	lineSeparatorConstant           = "\n"
	fileListSeparatorConstant       = ", "

	fallbackMessageConstant          = "Record local changes"
	updateMessageTemplateConstant    = "Update %s (+%d -%d)"
	overflowFileListTemplateConstant = "%d files"

	listedFileLimitConstant = 3
)

// ChangeSummarizer produces short human-readable commit messages from diff text.
//
// Summarize is a pure function and never fails: diffs it cannot interpret
// yield a generic fallback message.
type ChangeSummarizer struct{}

// NewChangeSummarizer constructs a ChangeSummarizer.
func NewChangeSummarizer() *ChangeSummarizer {
	return &ChangeSummarizer{}
}

// Summarize maps the supplied diff text to a one-line commit message.
func (summarizer *ChangeSummarizer) Summarize(diffText string) string {
	touchedFiles := []string{}
	seenFiles := map[string]struct{}{}
	addedLineCount := 0
	removedLineCount := 0

	for _, diffLine := range strings.Split(diffText, lineSeparatorConstant) {
		switch {
		case strings.HasPrefix(diffLine, diffHeaderPrefixConstant):
			fileName := extractFileName(diffLine)
			if len(fileName) == 0 {
				continue
			}
			if _, alreadySeen := seenFiles[fileName]; alreadySeen {
				continue
			}
			seenFiles[fileName] = struct{}{}
			touchedFiles = append(touchedFiles, fileName)
		case strings.HasPrefix(diffLine, additionHeaderPrefixConstant) || strings.HasPrefix(diffLine, removalHeaderPrefixConstant):
		case strings.HasPrefix(diffLine, additionPrefixConstant):
			addedLineCount++
		case strings.HasPrefix(diffLine, removalPrefixConstant):
			removedLineCount++
		}
	}

	if len(touchedFiles) == 0 {
		return fallbackMessageConstant
	}

	if len(touchedFiles) > listedFileLimitConstant {
		fileListLabel := fmt.Sprintf(overflowFileListTemplateConstant, len(touchedFiles))
		return fmt.Sprintf(updateMessageTemplateConstant, fileListLabel, addedLineCount, removedLineCount)
	}

	return fmt.Sprintf(updateMessageTemplateConstant, strings.Join(touchedFiles, fileListSeparatorConstant), addedLineCount, removedLineCount)
}

// extractFileName pulls the post-image path out of a "diff --git a/x b/x" header.
func extractFileName(diffHeaderLine string) string {
	markerIndex := strings.LastIndex(diffHeaderLine, diffHeaderNewFileMarkerConstant)
	if markerIndex < 0 {
		return ""
	}
	return strings.TrimSpace(diffHeaderLine[markerIndex+len(diffHeaderNewFileMarkerConstant):])
}
