package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "Milosz Lopatto", p.Page.Title)
	assert.Equal(t, "wide", p.Page.Layout)
	assert.Equal(t, "Experience", p.Experience.Heading)
	require.Len(t, p.Experience.Entries, 1)
	assert.Equal(t, "Data Analytics internship at Continental", p.Experience.Entries[0].Title)
	assert.Equal(t, 800, p.Experience.Testimonial.Width)
	assert.Len(t, p.Projects.Entries, 3)
	assert.Len(t, p.Skills.Rows, 10)
	assert.Equal(t, "Get In Touch With Me!", p.Contact.Heading)
	assert.Equal(t, 600, p.HeroAnimation.Height)
	assert.Equal(t, 400, p.Contact.Animation.Height)
}

func TestManifest(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	m := p.Manifest()
	assert.Equal(t, []string{"images/face.png", "images/conti_logo.png", "images/wut_logo.png"}, m.Images)
	assert.Equal(t, "files/email.txt", m.EmailFile)
	assert.Equal(t, "files/testimonial.pdf", m.TestimonialFile)
	assert.Equal(t, map[string]string{
		"data_visualization": "https://assets9.lottiefiles.com/private_files/lf30_ps1145pz.json",
		"mail":               "https://assets8.lottiefiles.com/packages/lf20_kdx6cani.json",
	}, m.Animations)
}

func TestManifestSkipsDisabledAnimations(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	p.HeroAnimation.URL = ""

	m := p.Manifest()
	assert.NotContains(t, m.Animations, "data_visualization")
	assert.Contains(t, m.Animations, "mail")
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "page: [unclosed"},
		{"unknown key", "page:\n  title: x\n  colour: red\n"},
		{"missing title", "contact:\n  email_file: e.txt\n  relay: https://formsubmit.co\n"},
		{"missing testimonial", "page:\n  title: x\ncontact:\n  email_file: e.txt\n  relay: https://formsubmit.co\n"},
		{
			"animation without key",
			"page:\n  title: x\nexperience:\n  testimonial:\n    file: t.pdf\n" +
				"hero_animation:\n  url: https://example.com/a.json\n" +
				"contact:\n  email_file: e.txt\n  relay: https://formsubmit.co\n",
		},
		{
			"duplicate animation key",
			"page:\n  title: x\nexperience:\n  testimonial:\n    file: t.pdf\n" +
				"hero_animation:\n  key: a\n  url: https://example.com/a.json\n" +
				"contact:\n  email_file: e.txt\n  relay: https://formsubmit.co\n" +
				"  animation:\n    key: a\n    url: https://example.com/b.json\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidContent)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	doc := "page:\n  title: Someone Else\nexperience:\n  testimonial:\n    file: t.pdf\n" +
		"contact:\n  email_file: e.txt\n  relay: https://formsubmit.co\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Someone Else", p.Page.Title)
	assert.Empty(t, p.Manifest().Images)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMarkdown(t *testing.T) {
	t.Run("nested lists and code spans", func(t *testing.T) {
		out, err := Markdown("- Supported the `Power BI` migration.\n    - Managed reports.\n")
		require.NoError(t, err)

		html := string(out)
		assert.Contains(t, html, "<code>Power BI</code>")
		assert.Equal(t, 2, strings.Count(html, "<ul>"))
		assert.Contains(t, html, "<li>Managed reports.</li>")
	})

	t.Run("links", func(t *testing.T) {
		out, err := Markdown("- [github](https://github.com/milosz-l)")
		require.NoError(t, err)
		assert.Contains(t, string(out), `<a href="https://github.com/milosz-l">github</a>`)
	})

	t.Run("raw html is not passed through", func(t *testing.T) {
		out, err := Markdown("<script>alert(1)</script>")
		require.NoError(t, err)
		assert.NotContains(t, string(out), "<script>")
	})

	t.Run("emoji shortcodes", func(t *testing.T) {
		out, err := InlineMarkdown("Hi, my name is Milosz :smile:")
		require.NoError(t, err)
		assert.NotContains(t, string(out), ":smile:")
		assert.True(t, strings.HasPrefix(string(out), "Hi, my name is Milosz"))
	})

	t.Run("inline drops the paragraph", func(t *testing.T) {
		out, err := InlineMarkdown("uses `Jira`")
		require.NoError(t, err)
		assert.Equal(t, "uses <code>Jira</code>", string(out))
	})
}
