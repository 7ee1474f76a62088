// Package content holds the literal text of the portfolio page and the
// markdown rendering used to turn it into HTML.
package content

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milosz-l/portfolio/internal/assets"
)

//go:embed portfolio.yaml
var defaultDocument []byte

var ErrInvalidContent = errors.New("invalid content document")

// Portfolio is the whole page, one field per section in render order.
type Portfolio struct {
	Page          PageConfig `yaml:"page"`
	Header        Header     `yaml:"header"`
	HeroAnimation Animation  `yaml:"hero_animation"`
	Experience    Experience `yaml:"experience"`
	Education     Section    `yaml:"education"`
	Projects      Section    `yaml:"projects"`
	Skills        Skills     `yaml:"skills"`
	Socials       Socials    `yaml:"socials"`
	Contact       Contact    `yaml:"contact"`
}

type PageConfig struct {
	Title  string `yaml:"title"`
	Icon   string `yaml:"icon"`
	Layout string `yaml:"layout"`
}

type Header struct {
	Greeting string `yaml:"greeting"`
	Title    string `yaml:"title"`
	Bio      string `yaml:"bio"`
	Portrait string `yaml:"portrait"`
}

// Animation is a Lottie decoration. An empty URL disables it.
type Animation struct {
	Key    string `yaml:"key"`
	URL    string `yaml:"url"`
	Height int    `yaml:"height"`
}

// Entry is one subheader block inside a section. Body is markdown.
type Entry struct {
	Title   string `yaml:"title"`
	Caption string `yaml:"caption"`
	Body    string `yaml:"body"`
}

// Section is a heading, its entries, and an optional logo shown in the
// right-hand column.
type Section struct {
	Heading string  `yaml:"heading"`
	Logo    string  `yaml:"logo"`
	Entries []Entry `yaml:"entries"`
}

type Experience struct {
	Section     `yaml:",inline"`
	Testimonial Document `yaml:"testimonial"`
}

// Document is an embedded PDF preview.
type Document struct {
	File   string `yaml:"file"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type SkillRow struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Skills struct {
	Heading string     `yaml:"heading"`
	Rows    []SkillRow `yaml:"rows"`
}

type Socials struct {
	Heading string `yaml:"heading"`
	Body    string `yaml:"body"`
}

type Contact struct {
	Heading   string    `yaml:"heading"`
	EmailFile string    `yaml:"email_file"`
	Relay     string    `yaml:"relay"`
	Animation Animation `yaml:"animation"`
}

// Default returns the content compiled into the binary.
func Default() (*Portfolio, error) {
	return Parse(defaultDocument)
}

// Load reads a content document from path.
func Load(path string) (*Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML content document. Unknown keys are rejected so a
// typo does not silently drop a section.
func Parse(data []byte) (*Portfolio, error) {
	var p Portfolio
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Portfolio) validate() error {
	required := []struct {
		field, value string
	}{
		{"page.title", p.Page.Title},
		{"experience.testimonial.file", p.Experience.Testimonial.File},
		{"contact.email_file", p.Contact.EmailFile},
		{"contact.relay", p.Contact.Relay},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidContent, r.field)
		}
	}

	for _, a := range []Animation{p.HeroAnimation, p.Contact.Animation} {
		if a.URL != "" && a.Key == "" {
			return fmt.Errorf("%w: animation %s has no key", ErrInvalidContent, a.URL)
		}
	}
	if p.HeroAnimation.URL != "" && p.Contact.Animation.URL != "" &&
		p.HeroAnimation.Key == p.Contact.Animation.Key {
		return fmt.Errorf("%w: animation key %q used twice", ErrInvalidContent, p.HeroAnimation.Key)
	}
	return nil
}

// Manifest lists the assets this content refers to.
func (p *Portfolio) Manifest() assets.Manifest {
	m := assets.Manifest{
		EmailFile:       p.Contact.EmailFile,
		TestimonialFile: p.Experience.Testimonial.File,
		Animations:      make(map[string]string),
	}
	for _, img := range []string{p.Header.Portrait, p.Experience.Logo, p.Education.Logo, p.Projects.Logo} {
		if img != "" {
			m.Images = append(m.Images, img)
		}
	}
	for _, a := range []Animation{p.HeroAnimation, p.Contact.Animation} {
		if a.URL != "" {
			m.Animations[a.Key] = a.URL
		}
	}
	return m
}
