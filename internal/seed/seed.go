package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/feedpress/feedpress/internal/domain"
	"github.com/feedpress/feedpress/internal/storage"
	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a seed document: a list of sites, each with its
// sources inline.
type File struct {
	Sites []SiteSeed `yaml:"sites"`
}

type SiteSeed struct {
	Slug         string       `yaml:"slug"`
	Name         string       `yaml:"name"`
	Tone         string       `yaml:"tone"`
	BrandContext string       `yaml:"brandContext"`
	Active       *bool        `yaml:"active"`
	Sources      []SourceSeed `yaml:"sources"`
}

type SourceSeed struct {
	URL    string `yaml:"url"`
	Kind   string `yaml:"kind"`
	Active *bool  `yaml:"active"`
}

// Loader upserts sites and sources from a YAML document. Seeding is
// idempotent: sites are keyed by slug and sources by (site, url), so
// re-running it against an existing database only updates.
type Loader struct {
	store storage.Store
}

func NewLoader(store storage.Store) *Loader {
	return &Loader{store: store}
}

func Parse(r io.Reader) (*File, error) {
	decoder := yaml.NewDecoder(r)
	var f File
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	for i, site := range f.Sites {
		if site.Slug == "" {
			return fmt.Errorf("site %d: slug is required", i)
		}
		if site.Name == "" {
			return fmt.Errorf("site %q: name is required", site.Slug)
		}
		if site.Tone != "" && !domain.Tone(site.Tone).Valid() {
			return fmt.Errorf("site %q: unknown tone %q", site.Slug, site.Tone)
		}
		for j, src := range site.Sources {
			if src.URL == "" {
				return fmt.Errorf("site %q source %d: url is required", site.Slug, j)
			}
			if !domain.SourceKind(src.Kind).Valid() {
				return fmt.Errorf("site %q source %q: unknown kind %q", site.Slug, src.URL, src.Kind)
			}
		}
	}
	return nil
}

func (l *Loader) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seedFile, err := Parse(f)
	if err != nil {
		return err
	}
	return l.Apply(ctx, seedFile)
}

func (l *Loader) Apply(ctx context.Context, f *File) error {
	for _, siteSeed := range f.Sites {
		tone := domain.Tone(siteSeed.Tone)
		if siteSeed.Tone == "" {
			tone = domain.ToneProfessional
		}

		site := &domain.Site{
			Slug:         siteSeed.Slug,
			Name:         siteSeed.Name,
			Tone:         tone,
			BrandContext: siteSeed.BrandContext,
			Active:       boolOrDefault(siteSeed.Active, true),
		}
		if existing, err := l.store.GetSiteBySlug(ctx, siteSeed.Slug); err == nil {
			site.ID = existing.ID
			site.CreatedAt = existing.CreatedAt
		}
		if err := l.store.SaveSite(ctx, site); err != nil {
			return fmt.Errorf("seed site %q: %w", siteSeed.Slug, err)
		}

		for _, srcSeed := range siteSeed.Sources {
			source := &domain.Source{
				SiteID: site.ID,
				URL:    srcSeed.URL,
				Kind:   domain.SourceKind(srcSeed.Kind),
				Active: boolOrDefault(srcSeed.Active, true),
			}
			if err := l.store.SaveSource(ctx, source); err != nil {
				return fmt.Errorf("seed source %q for site %q: %w", srcSeed.URL, siteSeed.Slug, err)
			}
		}
	}
	return nil
}

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
