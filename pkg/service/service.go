package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/prelude-parser/pkg/cache"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/common/models"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
)

var (
	ErrNoStore        = errors.New("export storage is not configured")
	ErrInvalidRequest = errors.New("invalid parse request")
)

type DatasetCache interface {
	Get(ctx context.Context, id string) (*flatfile.Dataset, bool, error)
	Set(ctx context.Context, id string, ds *flatfile.Dataset) error
}

type DatasetStore interface {
	SaveDataset(ctx context.Context, summary models.ExportSummary, ds *flatfile.Dataset) error
	GetExport(ctx context.Context, id uuid.UUID) (models.ExportSummary, error)
	ListRecords(ctx context.Context, exportID uuid.UUID, form string) ([]flatfile.Record, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, key string, data map[string]interface{}) error
}

type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Service runs exports through parsing and the optional cache, store and
// event collaborators. Collaborators left unset are skipped.
type Service struct {
	cache     DatasetCache
	store     DatasetStore
	publisher EventPublisher
	fetcher   Fetcher
	parse     []flatfile.Option
	required  []string
	profiles  merge.Profiles
	short     bool
	name      string
}

type Option func(*Service)

func WithCache(c DatasetCache) Option { return func(s *Service) { s.cache = c } }
func WithStore(st DatasetStore) Option { return func(s *Service) { s.store = st } }
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.publisher = p } }
func WithFetcher(f Fetcher) Option { return func(s *Service) { s.fetcher = f } }
func WithProfiles(p merge.Profiles) Option { return func(s *Service) { s.profiles = p } }

// WithRequired sets the metadata fields every form must carry. Datasets
// parsed under different required sets are cached apart.
func WithRequired(fields ...flatfile.MetadataField) Option {
	return func(s *Service) {
		s.parse = append(s.parse, flatfile.WithRequired(fields...))
		s.required = s.required[:0]
		for _, f := range fields {
			s.required = append(s.required, f.Long)
		}
	}
}

// WithShortNames sets whether merges use the short metadata spellings when
// neither the request nor its profile decides.
func WithShortNames(short bool) Option { return func(s *Service) { s.short = short } }

// WithName sets the event source name.
func WithName(name string) Option { return func(s *Service) { s.name = name } }

func New(opts ...Option) *Service {
	s := &Service{name: "flatfile-service"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is a parsed export and its summary.
type Result struct {
	Summary models.ExportSummary
	Dataset *flatfile.Dataset
}

// load parses data or returns the dataset cached for it.
func (s *Service) load(ctx context.Context, source string, data []byte) (*flatfile.Dataset, string, bool, error) {
	checksum := cache.Checksum(data)
	if s.cache == nil {
		ds, err := flatfile.Parse(data, s.parse...)
		if err != nil {
			return nil, "", false, fmt.Errorf("%s: %w", source, err)
		}
		return ds, checksum, false, nil
	}

	id := cache.Variant(checksum, s.required)
	log := logger.Log.WithFields(map[string]interface{}{
		"source": source,
		"cache":  id,
	})
	hit, found, err := s.cache.Get(ctx, id)
	if err != nil {
		log.WithError(err).Warn("dataset cache lookup failed")
	} else if found {
		return hit, checksum, true, nil
	}

	ds, err := flatfile.Parse(data, s.parse...)
	if err != nil {
		return nil, "", false, fmt.Errorf("%s: %w", source, err)
	}
	if err := s.cache.Set(ctx, id, ds); err != nil {
		log.WithError(err).Warn("dataset cache write failed")
	}
	return ds, checksum, false, nil
}

// ParseBytes parses an export held in memory. source names it in the
// summary, the store and events.
func (s *Service) ParseBytes(ctx context.Context, source string, data []byte) (Result, error) {
	ds, checksum, cached, err := s.load(ctx, source, data)
	if err != nil {
		return Result{}, err
	}
	log := logger.Log.WithFields(map[string]interface{}{
		"source":   source,
		"checksum": checksum,
	})

	summary := Summarize(ds)
	summary.ID = uuid.New()
	summary.Source = source
	summary.Checksum = checksum
	summary.Cached = cached
	summary.CreatedAt = time.Now().UTC()

	if s.store != nil {
		if err := s.store.SaveDataset(ctx, summary, ds); err != nil {
			return Result{}, fmt.Errorf("storing export: %w", err)
		}
		summary.Stored = true
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEvent(ctx, models.EventFlatfileParsed, s.name, summary.ID.String(), summary.ParsedEventData()); err != nil {
			log.WithError(err).Warn("failed to publish parsed event")
		}
	}

	log.WithFields(map[string]interface{}{
		"export_id": summary.ID,
		"forms":     len(summary.Forms),
		"records":   summary.Records,
		"cached":    cached,
	}).Info("export parsed")

	return Result{Summary: summary, Dataset: ds}, nil
}

// ParseFile parses the export at path.
func (s *Service) ParseFile(ctx context.Context, path string) (Result, error) {
	data, err := flatfile.LoadFile(path)
	if err != nil {
		return Result{}, err
	}
	return s.ParseBytes(ctx, path, data)
}

// ParseRemote downloads an export with the fetcher and parses it.
func (s *Service) ParseRemote(ctx context.Context, ref string) (Result, error) {
	if s.fetcher == nil {
		return Result{}, fmt.Errorf("remote export %q: no fetcher configured", ref)
	}
	data, err := s.fetcher.Fetch(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("fetching %s: %w", ref, err)
	}
	return s.ParseBytes(ctx, ref, data)
}

// ParseRequest handles a parse request received as an event.
func (s *Service) ParseRequest(ctx context.Context, req models.ParseRequest) (Result, error) {
	switch {
	case req.Path != "" && req.URL != "":
		return Result{}, fmt.Errorf("%w: both path and url given", ErrInvalidRequest)
	case req.Path != "":
		return s.ParseFile(ctx, req.Path)
	case req.URL != "":
		return s.ParseRemote(ctx, req.URL)
	default:
		return Result{}, fmt.Errorf("%w: path or url required", ErrInvalidRequest)
	}
}

// MergeRequest selects the forms to merge, either directly or through a
// named profile. Fields set on the request override the profile, which
// overrides the service defaults. A nil ShortNames leaves the choice to
// the profile.
type MergeRequest struct {
	Profile      string
	Main         string
	Sub          string
	ShortNames   *bool
	SharedFields []string
}

func (s *Service) resolveMerge(req MergeRequest) (string, string, merge.Options, error) {
	opts := merge.Options{ShortNames: s.short, SharedFields: req.SharedFields}
	mainForm, subForm := req.Main, req.Sub
	if req.Profile != "" {
		p, err := s.profiles.Lookup(req.Profile)
		if err != nil {
			return "", "", merge.Options{}, err
		}
		if mainForm == "" {
			mainForm = p.Main
		}
		if subForm == "" {
			subForm = p.Sub
		}
		opts.ShortNames = p.ShortNames
		if opts.SharedFields == nil {
			opts.SharedFields = p.SharedFields
		}
	}
	if req.ShortNames != nil {
		opts.ShortNames = *req.ShortNames
	}
	if mainForm == "" || subForm == "" {
		return "", "", merge.Options{}, fmt.Errorf("main and sub forms are required: %w", merge.ErrMerge)
	}
	return mainForm, subForm, opts, nil
}

// Merge parses an export and merges two of its forms. The export is
// neither stored nor announced.
func (s *Service) Merge(ctx context.Context, source string, data []byte, req MergeRequest) ([]flatfile.Record, error) {
	mainForm, subForm, opts, err := s.resolveMerge(req)
	if err != nil {
		return nil, err
	}
	ds, _, _, err := s.load(ctx, source, data)
	if err != nil {
		return nil, err
	}
	records, err := merge.MergeForms(ds, mainForm, subForm, opts)
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"source":    source,
		"short":     opts.ShortNames,
		"main":      mainForm,
		"sub":       subForm,
		"records":   len(records),
	}).Info("forms merged")
	return records, nil
}

// GetExport returns a stored export summary.
func (s *Service) GetExport(ctx context.Context, id uuid.UUID) (models.ExportSummary, error) {
	if s.store == nil {
		return models.ExportSummary{}, ErrNoStore
	}
	return s.store.GetExport(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, id uuid.UUID, form string) ([]flatfile.Record, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListRecords(ctx, id, form)
}

// Summarize counts the records of every form in document order.
func Summarize(ds *flatfile.Dataset) models.ExportSummary {
	var summary models.ExportSummary
	counts := ds.Counts()
	for _, form := range ds.Forms() {
		summary.Forms = append(summary.Forms, models.FormSummary{
			Name:     form,
			TypeName: flatfile.Record{FormName: form}.TypeName(),
			Records:  counts[form],
		})
		summary.Records += counts[form]
	}
	return summary
}
