package inference

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
)

const referenceWorkers = 4

var urlPattern = regexp.MustCompile(`https?://\S+`)

// TranslateReferenceList translates the descriptive text of each reference line and keeps URLs verbatim.
func (s *Service) TranslateReferenceList(ctx context.Context, lines []string, language string) []string {
	if IsSentinelList(lines) {
		return lines
	}

	out := make([]string, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(referenceWorkers)
	for i, line := range lines {
		g.Go(func() error {
			out[i] = s.translateReferenceLine(gctx, line, language)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *Service) translateReferenceLine(ctx context.Context, line, language string) string {
	prefix, suffix := splitAtURL(line)
	if !hasLetters(prefix) {
		return line
	}

	translated := s.Translate(ctx, strings.TrimSpace(prefix), language, ContextReference)
	if IsSentinel(translated) {
		return line
	}
	translated = strings.Join(strings.Fields(translated), " ")

	if suffix == "" {
		return translated
	}
	return translated + " " + suffix
}

// splitAtURL splits line before its first URL.
func splitAtURL(line string) (prefix, suffix string) {
	loc := urlPattern.FindStringIndex(line)
	if loc == nil {
		return line, ""
	}
	return line[:loc[0]], line[loc[0]:]
}

func hasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
