package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/providers"
)

// SentinelPrefix marks a text result that stands in for a failed inference call.
const SentinelPrefix = "Error:"

// Domain contexts passed to Translate.
const (
	ContextSummary   = "medical summary"
	ContextDetails   = "detailed medical explanation"
	ContextReference = "medical reference description"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxInputChars = 12000
)

// Config controls models and call limits.
type Config struct {
	TextModel     string
	VisionModel   string
	Temperature   float64
	Timeout       time.Duration
	MaxInputChars int
	// RateLimit is the sustained number of calls per second; 0 disables limiting.
	RateLimit float64
}

// Service turns provider completions into artifacts. Its operations never return errors:
// failures become sentinel values.
type Service struct {
	provider providers.Provider
	cfg      Config
	limiter  *rate.Limiter
}

func NewService(provider providers.Provider, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}

	s := &Service{provider: provider, cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

// IsSentinel reports whether text is a failure placeholder.
func IsSentinel(text string) bool {
	return strings.HasPrefix(text, SentinelPrefix)
}

// IsSentinelList reports whether lines is the one-element list produced by a failed reference call.
func IsSentinelList(lines []string) bool {
	return len(lines) == 1 && IsSentinel(lines[0])
}

// Summarize produces a bullet-point summary of the document text.
func (s *Service) Summarize(ctx context.Context, text string) string {
	out, err := s.complete(ctx, "summarize", providers.Request{
		Model:  s.cfg.TextModel,
		Prompt: buildSummaryPrompt(truncate(text, s.cfg.MaxInputChars)),
	})
	if err != nil {
		return sentinel(err, "Error: unable to contact the inference service for summary.", "Error: summarization failed.")
	}
	return out
}

// Translate renders text in language. domainContext names what is being translated.
func (s *Service) Translate(ctx context.Context, text, language, domainContext string) string {
	out, err := s.complete(ctx, "translate", providers.Request{
		Model:  s.cfg.TextModel,
		Prompt: buildTranslationPrompt(text, language, domainContext),
	})
	if err != nil {
		return sentinel(err, fmt.Sprintf("Error: unable to contact the inference service for translation to %s.", language), "Error: translation failed.")
	}
	return out
}

// Elaborate writes an extended explanation from the summary and the document text.
func (s *Service) Elaborate(ctx context.Context, summary, fullText string) string {
	out, err := s.complete(ctx, "elaborate", providers.Request{
		Model:  s.cfg.TextModel,
		Prompt: buildDetailsPrompt(summary, truncate(fullText, s.cfg.MaxInputChars)),
	})
	if err != nil {
		return sentinel(err, "Error: unable to contact the inference service for detailed explanation.", "Error: details generation failed.")
	}
	return out
}

// ElaborateAndTranslate elaborates, then translates unless elaboration failed.
func (s *Service) ElaborateAndTranslate(ctx context.Context, summary, fullText, language string) string {
	details := s.Elaborate(ctx, summary, fullText)
	if IsSentinel(details) {
		return details
	}
	return s.Translate(ctx, details, language, ContextDetails)
}

// SuggestReferences returns the non-empty lines of a suggested reading list.
func (s *Service) SuggestReferences(ctx context.Context, summary string) []string {
	out, err := s.complete(ctx, "references", providers.Request{
		Model:  s.cfg.TextModel,
		Prompt: buildReferencesPrompt(summary),
	})
	if err != nil {
		return []string{sentinel(err, "Error: unable to contact the inference service for references.", "Error: reference generation failed.")}
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// complete runs one provider call with the configured timeout, retrying once on transient failure.
func (s *Service) complete(ctx context.Context, op string, req providers.Request) (string, error) {
	req.Temperature = s.cfg.Temperature

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", domain.InferenceError("rate limiter wait aborted", err)
			}
		}

		out, err := s.attempt(ctx, req)
		if err == nil {
			out = strings.TrimSpace(out)
			if out == "" {
				slog.Warn("Inference returned no content", "op", op, "provider", s.provider.Name())
				return "", domain.MalformedOutputError("empty completion", nil)
			}
			return out, nil
		}

		lastErr = err
		if !providers.Retryable(err) || ctx.Err() != nil {
			break
		}
		slog.Warn("Retrying inference call", "op", op, "provider", s.provider.Name(), "attempt", attempt, "err", err)
	}

	var de *domain.Error
	if !errors.As(lastErr, &de) {
		de = domain.InferenceError("inference call failed", lastErr)
	}
	slog.Error("Inference call failed", "op", op, "provider", s.provider.Name(), "type", de.Type, "err", lastErr)
	return "", de
}

func (s *Service) attempt(ctx context.Context, req providers.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.provider.Complete(callCtx, req)
}

func sentinel(err error, unavailable, failed string) string {
	if errors.Is(err, domain.ErrInferenceUnavailable) {
		return unavailable
	}
	return failed
}

// truncate limits text to n runes.
func truncate(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
