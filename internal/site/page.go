package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"

	"github.com/milosz-l/portfolio/internal/assets"
	"github.com/milosz-l/portfolio/internal/content"
)

var (
	//go:embed templates/*.html
	templatesFS embed.FS

	//go:embed static
	staticFS embed.FS

	templates = template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
)

var ErrMissingAsset = errors.New("asset missing from bundle")

// Page is the fully resolved view model of the portfolio, one field per
// section in render order.
type Page struct {
	Title   string
	Favicon template.URL
	Wide    bool

	Header     HeaderView
	Hero       *AnimationView
	Experience ExperienceView
	Education  SectionView
	Projects   SectionView
	Skills     SkillsView
	Socials    SocialsView
	Contact    ContactView
}

type HeaderView struct {
	Greeting template.HTML
	Title    string
	Bio      template.HTML
	Portrait *ImageView
}

type ImageView struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

// AnimationView is a Lottie animation inlined into the page. Data is
// HTML-escaped JSON.
type AnimationView struct {
	Key    string
	Height int
	Data   template.JS
}

type EntryView struct {
	Title   string
	Caption string
	Body    template.HTML
}

type SectionView struct {
	Heading string
	Entries []EntryView
	Logo    *ImageView
}

type ExperienceView struct {
	SectionView
	Testimonial DocumentView
}

type DocumentView struct {
	DataURI template.URL
	Href    string
	Width   int
	Height  int
}

type SkillRowView struct {
	Label template.HTML
	Value template.HTML
}

type SkillsView struct {
	Heading string
	Rows    []SkillRowView
}

type SocialsView struct {
	Heading string
	Body    template.HTML
}

// ContactView holds the relay form. Submissions go straight to Action.
type ContactView struct {
	Heading   string
	Action    string
	Animation *AnimationView
}

// BuildPage resolves the content against loaded assets. Absent animations
// become nil and are left out of the page.
func BuildPage(p *content.Portfolio, b *assets.Bundle) (*Page, error) {
	page := &Page{
		Title:   p.Page.Title,
		Favicon: favicon(p.Page.Icon),
		Wide:    p.Page.Layout == "wide",
		Hero:    animationView(p.HeroAnimation, b),
	}

	var err error
	if page.Header, err = headerView(p.Header, b); err != nil {
		return nil, err
	}
	if page.Experience.SectionView, err = sectionView(p.Experience.Section, b); err != nil {
		return nil, fmt.Errorf("experience: %w", err)
	}
	page.Experience.Testimonial = DocumentView{
		DataURI: template.URL("data:application/pdf;base64," + b.TestimonialBase64()), //nolint:gosec // locally loaded PDF
		Href:    assetURL(p.Experience.Testimonial.File),
		Width:   p.Experience.Testimonial.Width,
		Height:  p.Experience.Testimonial.Height,
	}
	if page.Education, err = sectionView(p.Education, b); err != nil {
		return nil, fmt.Errorf("education: %w", err)
	}
	if page.Projects, err = sectionView(p.Projects, b); err != nil {
		return nil, fmt.Errorf("projects: %w", err)
	}

	page.Skills.Heading = p.Skills.Heading
	for _, row := range p.Skills.Rows {
		label, err := content.InlineMarkdown(row.Label)
		if err != nil {
			return nil, err
		}
		value, err := content.InlineMarkdown(row.Value)
		if err != nil {
			return nil, err
		}
		page.Skills.Rows = append(page.Skills.Rows, SkillRowView{Label: label, Value: value})
	}

	page.Socials.Heading = p.Socials.Heading
	if page.Socials.Body, err = content.Markdown(p.Socials.Body); err != nil {
		return nil, err
	}

	action, err := url.JoinPath(p.Contact.Relay, b.Email)
	if err != nil {
		return nil, fmt.Errorf("contact relay: %w", err)
	}
	page.Contact = ContactView{
		Heading:   p.Contact.Heading,
		Action:    action,
		Animation: animationView(p.Contact.Animation, b),
	}

	return page, nil
}

// RenderPage runs one render pass of the page.
func RenderPage(w io.Writer, page *Page) error {
	if err := templates.ExecuteTemplate(w, "index.html", page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func headerView(h content.Header, b *assets.Bundle) (HeaderView, error) {
	greeting, err := content.InlineMarkdown(h.Greeting)
	if err != nil {
		return HeaderView{}, err
	}
	bio, err := content.Markdown(h.Bio)
	if err != nil {
		return HeaderView{}, err
	}
	portrait, err := imageView(h.Portrait, h.Title, b)
	if err != nil {
		return HeaderView{}, fmt.Errorf("header: %w", err)
	}
	return HeaderView{Greeting: greeting, Title: h.Title, Bio: bio, Portrait: portrait}, nil
}

func sectionView(s content.Section, b *assets.Bundle) (SectionView, error) {
	view := SectionView{Heading: s.Heading}
	for _, e := range s.Entries {
		body, err := content.Markdown(e.Body)
		if err != nil {
			return SectionView{}, err
		}
		view.Entries = append(view.Entries, EntryView{Title: e.Title, Caption: e.Caption, Body: body})
	}

	var err error
	view.Logo, err = imageView(s.Logo, s.Heading, b)
	return view, err
}

func imageView(path, alt string, b *assets.Bundle) (*ImageView, error) {
	if path == "" {
		return nil, nil
	}
	img, ok := b.Image(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingAsset)
	}
	return &ImageView{Src: assetURL(path), Alt: alt, Width: img.Width, Height: img.Height}, nil
}

func animationView(a content.Animation, b *assets.Bundle) *AnimationView {
	data := b.Animation(a.Key)
	if a.URL == "" || data == nil {
		return nil
	}
	var buf bytes.Buffer
	json.HTMLEscape(&buf, data)
	return &AnimationView{
		Key:    a.Key,
		Height: a.Height,
		Data:   template.JS(buf.String()), //nolint:gosec // validated JSON with <, >, & escaped
	}
}

func favicon(icon string) template.URL {
	if icon == "" {
		return ""
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><text y=".9em" font-size="90">` +
		template.HTMLEscapeString(icon) + `</text></svg>`
	return template.URL("data:image/svg+xml," + url.PathEscape(svg)) //nolint:gosec // fixed SVG wrapper
}

func assetURL(path string) string {
	return "/assets/" + path
}

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
