package agent

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/autodev/internal/probe"
	"github.com/fyrsmithlabs/autodev/internal/progress"
	"github.com/fyrsmithlabs/autodev/internal/project"
	"go.uber.org/zap"
)

const (
	URLValidatorPosition  = "URL Validator"
	urlValidatorObjective = "Checks that every external URL the project relies on is reachable"
)

var urlValidatorTransitions = transitionTable{
	StateDiscovery: {StateFinished},
}

// URLValidator probes the record's external URLs and keeps only those that
// answer 200. It never fails because a URL is unreachable.
type URLValidator struct {
	base
	prober probe.Prober
}

// NewURLValidator creates a URLValidator.
func NewURLValidator(prober probe.Prober, opts ...Option) *URLValidator {
	return &URLValidator{
		base:   newBase(Attributes{Objective: urlValidatorObjective, Position: URLValidatorPosition}, urlValidatorTransitions, opts),
		prober: prober,
	}
}

// Execute implements Agent.
func (v *URLValidator) Execute(ctx context.Context, rec *project.Record) error {
	if v.State().IsTerminal() {
		return nil
	}

	urls, ok := rec.ExternalURLs()
	if !ok || len(urls) == 0 {
		v.logger.Debug(ctx, "no external urls to validate")
		return v.moveTo(ctx, StateFinished)
	}

	kept := make([]string, 0, len(urls))
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return v.fail(err)
		}

		v.say(progress.KindUnitTest, fmt.Sprintf("Testing URL Endpoint: %s", url))

		status, err := v.prober.Status(ctx, url)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return v.fail(ctxErr)
			}
			v.exclude(ctx, url, fmt.Sprintf("Error checking %s: %v", url, err))
			continue
		}
		if status != http.StatusOK {
			v.exclude(ctx, url, fmt.Sprintf("Excluding %s, status %d", url, status))
			continue
		}
		kept = append(kept, url)
	}

	if len(kept) != len(urls) {
		if err := rec.ReplaceExternalURLs(kept); err != nil {
			return v.fail(err)
		}
	}

	v.logger.Info(ctx, "external urls validated",
		zap.Int("checked", len(urls)),
		zap.Int("kept", len(kept)),
	)
	return v.moveTo(ctx, StateFinished)
}

func (v *URLValidator) exclude(ctx context.Context, url, statement string) {
	URLsExcludedTotal.Inc()
	v.say(progress.KindIssue, statement)
	v.logger.Warn(ctx, "external url excluded", zap.String("url", url), zap.String("reason", statement))
}
