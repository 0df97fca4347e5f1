package altsource

import (
	"encoding/json"
	"fmt"

	"github.com/altsrc-dev/altsrc/internal"
)

// APIVersion is the source format revision this package writes.
const APIVersion = "v2"

// Article is a news entry shown on the source's news tab.
type Article struct {
	Title      string
	Identifier string
	Caption    string
	Date       string
	TintColor  string
	ImageURL   string
	Notify     *bool
	URL        string
	AppID      string

	Extra map[string]json.RawMessage
}

var articleRequiredKeys = []string{"title", "identifier", "caption", "date"}

func (a *Article) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	for _, key := range articleRequiredKeys {
		if _, ok := raw[key]; !ok {
			internal.Logger.Warn().Str("key", key).Msg("Article is missing a required key")
		}
	}
	steps := []error{
		raw.pop("title", &a.Title),
		raw.pop("identifier", &a.Identifier),
		raw.pop("caption", &a.Caption),
		raw.pop("date", &a.Date),
		raw.pop("tintColor", &a.TintColor),
		raw.pop("imageURL", &a.ImageURL),
		raw.pop("notify", &a.Notify),
		raw.pop("url", &a.URL),
		raw.pop("appID", &a.AppID),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	a.Extra = raw.rest()
	return nil
}

func (a *Article) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(a.Extra)+9)
	mergeExtra(out, a.Extra)
	out.put("title", a.Title)
	out.put("identifier", a.Identifier)
	out.put("caption", a.Caption)
	out.put("date", a.Date)
	out.put("tintColor", a.TintColor)
	out.put("imageURL", a.ImageURL)
	out.put("notify", a.Notify)
	out.put("url", a.URL)
	out.put("appID", a.AppID)
	return json.Marshal(out)
}

// Source is the top level catalog document describing a set of installable
// apps, plus optional news and display metadata.
type Source struct {
	Name         string
	Identifier   string
	Subtitle     string
	Description  string
	IconURL      string
	HeaderURL    string
	Website      string
	TintColor    string
	FeaturedApps []string
	Apps         []*App
	News         []*Article
	UserInfo     map[string]any
	APIVersion   string

	Extra map[string]json.RawMessage
}

// New returns an empty source with the given display name and identifier.
func New(name, identifier string) *Source {
	return &Source{
		Name:       name,
		Identifier: identifier,
		Apps:       []*App{},
		APIVersion: APIVersion,
	}
}

func (s *Source) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	steps := []error{
		raw.pop("name", &s.Name),
		raw.pop("identifier", &s.Identifier),
		raw.pop("subtitle", &s.Subtitle),
		raw.pop("description", &s.Description),
		raw.pop("iconURL", &s.IconURL),
		raw.pop("headerURL", &s.HeaderURL),
		raw.pop("website", &s.Website),
		raw.pop("tintColor", &s.TintColor),
		raw.pop("featuredApps", &s.FeaturedApps),
		raw.pop("apps", &s.Apps),
		raw.pop("news", &s.News),
		raw.pop("userInfo", &s.UserInfo),
		raw.pop("apiVersion", &s.APIVersion),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}
	s.Extra = raw.rest()
	return nil
}

func (s *Source) MarshalJSON() ([]byte, error) {
	out := make(rawObject, len(s.Extra)+13)
	mergeExtra(out, s.Extra)
	out.put("name", s.Name)
	out.put("identifier", s.Identifier)
	out.put("subtitle", s.Subtitle)
	out.put("description", s.Description)
	out.put("iconURL", s.IconURL)
	out.put("headerURL", s.HeaderURL)
	out.put("website", s.Website)
	out.put("tintColor", s.TintColor)
	out.put("featuredApps", s.FeaturedApps)
	if s.Apps != nil {
		out["apps"] = mustMarshal(s.Apps)
	} else {
		out["apps"] = json.RawMessage("[]")
	}
	if s.News != nil {
		out["news"] = mustMarshal(s.News)
	}
	out.put("userInfo", s.UserInfo)
	out.put("apiVersion", s.APIVersion)
	return json.Marshal(out)
}

func (s *Source) requiredKeys() error {
	if s.Name == "" {
		return &SchemaError{Key: "name"}
	}
	if s.Identifier == "" {
		return &SchemaError{Key: "identifier"}
	}
	if s.Apps == nil {
		return &SchemaError{Key: "apps"}
	}
	return nil
}

// App returns the app entry with the given identifier, matching on appID
// first and bundleIdentifier second.
func (s *Source) App(id string) (*App, error) {
	for _, app := range s.Apps {
		if app.ID() == id || app.BundleIdentifier == id {
			return app, nil
		}
	}
	return nil, fmt.Errorf("app %s: %w", id, ErrNotFound)
}

// AddApp appends an app to the source. The app's identifier must not already
// be present; the source is left unchanged on failure.
func (s *Source) AddApp(app *App) error {
	if app.AppID == "" {
		app.AppID = app.BundleIdentifier
	}
	if _, err := s.App(app.ID()); err == nil {
		return fmt.Errorf("app %s: %w", app.ID(), ErrDuplicateApp)
	}
	s.Apps = append(s.Apps, app)
	internal.Logger.Info().Str("app", app.Name).Str("source", s.Name).Msg("Added app")
	return nil
}

// UpdateApp applies a partial field patch to the app with the given
// identifier. Keys use the wire names; unknown keys land in the app's extra
// bucket, mistyped known keys fail with a SchemaError and leave the app
// unchanged.
func (s *Source) UpdateApp(id string, fields map[string]any) error {
	app, err := s.App(id)
	if err != nil {
		return err
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding app patch: %w", err)
	}

	// Patch a detached copy so a bad field does not half-apply.
	snapshot, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encoding app: %w", err)
	}
	next := &App{}
	if err := json.Unmarshal(snapshot, next); err != nil {
		return err
	}
	if err := json.Unmarshal(patch, next); err != nil {
		return err
	}
	*app = *next
	return nil
}

// RemoveApp deletes the app with the given identifier, preserving the order
// of the remaining entries.
func (s *Source) RemoveApp(id string) error {
	for i, app := range s.Apps {
		if app.ID() == id || app.BundleIdentifier == id {
			s.Apps = append(s.Apps[:i], s.Apps[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("app %s: %w", id, ErrNotFound)
}
