package briefing

import (
	"context"
	"errors"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregator fans out to every source and folds the results into one Snapshot
type Aggregator struct {
	sources   Sources
	topics    []string
	taskLimit int
	logger    *logger.Logger
	now       func() time.Time
}

// AggregatorConfig holds the non-source inputs of an aggregation
type AggregatorConfig struct {
	NewsTopics []string
	TaskLimit  int
	Now        func() time.Time
}

// NewAggregator creates a new aggregator over the given sources
func NewAggregator(sources Sources, cfg AggregatorConfig, log *logger.Logger) *Aggregator {
	if cfg.TaskLimit <= 0 {
		cfg.TaskLimit = 50
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{
		sources:   sources,
		topics:    cfg.NewsTopics,
		taskLimit: cfg.TaskLimit,
		logger:    log,
		now:       cfg.Now,
	}
}

// BuildSnapshot runs one aggregation cycle. A failing source never aborts the
// cycle; its field is left at the empty default and the error is logged.
func (a *Aggregator) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	started := time.Now()

	var (
		events  Result[[]Event]
		emails  Result[[]Email]
		tasks   Result[[]Task]
		weather Result[*Weather]
		news    Result[map[string][]Article]
		usage   Result[UsageStats]
	)

	// Branches never return an error so the group never short-circuits.
	var g errgroup.Group
	g.Go(func() error {
		events = capture(func() ([]Event, error) {
			if a.sources.Calendar == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.Calendar.EventsForDay(ctx, 0)
		})
		return nil
	})
	g.Go(func() error {
		emails = capture(func() ([]Email, error) {
			if a.sources.Mail == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.Mail.UnreadAcrossAccounts(ctx)
		})
		return nil
	})
	g.Go(func() error {
		tasks = capture(func() ([]Task, error) {
			if a.sources.Tasks == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.Tasks.OpenTasks(ctx, a.taskLimit)
		})
		return nil
	})
	g.Go(func() error {
		weather = capture(func() (*Weather, error) {
			if a.sources.Weather == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.Weather.Forecast(ctx)
		})
		return nil
	})
	g.Go(func() error {
		news = capture(func() (map[string][]Article, error) {
			if a.sources.News == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.News.SearchByTopics(ctx, a.topics)
		})
		return nil
	})
	g.Go(func() error {
		usage = capture(func() (UsageStats, error) {
			if a.sources.Usage == nil {
				return UsageStats{}, ErrSourceNotConfigured
			}
			return a.sources.Usage.Today(), nil
		})
		return nil
	})
	_ = g.Wait()

	a.report("calendar", events.Err)
	a.report("mail", emails.Err)
	a.report("tasks", tasks.Err)
	a.report("weather", weather.Err)
	a.report("news", news.Err)
	a.report("usage", usage.Err)

	allEmails := orEmpty(emails.OrDefault(nil))
	draft := &Snapshot{
		Events:          orEmpty(events.OrDefault(nil)),
		Emails:          allEmails,
		ImportantEmails: importantOnly(allEmails),
		News:            news.OrDefault(nil),
		Weather:         weather.OrDefault(nil),
		Tasks:           orEmpty(tasks.OrDefault(nil)),
		Usage:           usage.OrDefault(UsageStats{}),
	}
	if draft.News == nil {
		draft.News = map[string][]Article{}
	}

	var (
		suggestions []string
		packages    Result[[]Package]
	)
	var secondary errgroup.Group
	secondary.Go(func() error {
		suggestions = AnalyzeAt(draft, a.now())
		return nil
	})
	secondary.Go(func() error {
		packages = capture(func() ([]Package, error) {
			if a.sources.Packages == nil {
				return nil, ErrSourceNotConfigured
			}
			return a.sources.Packages.ScanForPackages(ctx)
		})
		return nil
	})
	_ = secondary.Wait()
	a.report("packages", packages.Err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Events:          draft.Events,
		Emails:          draft.Emails,
		ImportantEmails: draft.ImportantEmails,
		News:            draft.News,
		Weather:         draft.Weather,
		Tasks:           draft.Tasks,
		Usage:           draft.Usage,
		Suggestions:     orEmpty(suggestions),
		Packages:        orEmpty(packages.OrDefault(nil)),
		GeneratedAt:     a.now(),
	}

	aggregationDuration.Observe(time.Since(started).Seconds())
	a.logger.Info("Snapshot built",
		zap.Int("events", len(snapshot.Events)),
		zap.Int("emails", len(snapshot.Emails)),
		zap.Int("important_emails", len(snapshot.ImportantEmails)),
		zap.Int("tasks", len(snapshot.Tasks)),
		zap.Int("suggestions", len(snapshot.Suggestions)),
		zap.Int("packages", len(snapshot.Packages)),
		zap.Duration("duration", time.Since(started)),
	)

	return snapshot, nil
}

func (a *Aggregator) report(source string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrSourceNotConfigured) {
		a.logger.Debug("Briefing source skipped", zap.String("source", source))
		return
	}
	sourceFailures.WithLabelValues(source).Inc()
	a.logger.Error("Briefing source failed", zap.String("source", source), zap.Error(err))
}

func importantOnly(emails []Email) []Email {
	important := make([]Email, 0, len(emails))
	for _, e := range emails {
		if e.Important {
			important = append(important, e)
		}
	}
	return important
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
