// Package site loads the site profile: brand name, public base URL, navigation and
// the contact details shown when no hosted settings document is available.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes the deployment-specific parts of the public site.
type Profile struct {
	Name        string
	Tagline     string
	BaseURL     string
	DefaultOG   string
	TwitterCard string
	Nav         []NavLink
	Contact     Contact
	Footer      string
}

// NavLink is a top-level menu entry.
type NavLink struct {
	Label string
	Href  string
}

// Contact holds fallback contact details.
type Contact struct {
	Email   string
	Phone   string
	Address string
}

type profileFile struct {
	Name        string        `yaml:"name"`
	Tagline     string        `yaml:"tagline"`
	BaseURL     string        `yaml:"base_url"`
	DefaultOG   string        `yaml:"default_og_image"`
	TwitterCard string        `yaml:"twitter_card"`
	Footer      string        `yaml:"footer"`
	Nav         []navLinkFile `yaml:"nav"`
	Contact     struct {
		Email   string `yaml:"email"`
		Phone   string `yaml:"phone"`
		Address string `yaml:"address"`
	} `yaml:"contact"`
}

type navLinkFile struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
}

// Default is used when no profile file exists.
func Default() Profile {
	return Profile{
		Name:        "Shusmo Games",
		BaseURL:     "http://localhost:8080",
		TwitterCard: "summary_large_image",
		Nav: []NavLink{
			{Label: "Home", Href: "/"},
			{Label: "Games", Href: "/games"},
			{Label: "Contact", Href: "/contact"},
		},
	}
}

// Load reads the profile at path. A missing file yields Default.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("site: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile and fills unset fields from Default.
func Parse(data []byte) (Profile, error) {
	var raw profileFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("site: parse profile: %w", err)
	}

	p := Default()
	if v := strings.TrimSpace(raw.Name); v != "" {
		p.Name = v
	}
	p.Tagline = strings.TrimSpace(raw.Tagline)
	if v := strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Profile{}, fmt.Errorf("site: base_url %q must be an absolute URL", raw.BaseURL)
		}
		p.BaseURL = v
	}
	p.DefaultOG = strings.TrimSpace(raw.DefaultOG)
	if v := strings.TrimSpace(raw.TwitterCard); v != "" {
		p.TwitterCard = v
	}
	p.Footer = strings.TrimSpace(raw.Footer)
	if len(raw.Nav) > 0 {
		p.Nav = p.Nav[:0:0]
		for _, link := range raw.Nav {
			label, href := strings.TrimSpace(link.Label), strings.TrimSpace(link.Href)
			if label == "" || href == "" {
				continue
			}
			p.Nav = append(p.Nav, NavLink{Label: label, Href: href})
		}
	}
	p.Contact = Contact{
		Email:   strings.TrimSpace(raw.Contact.Email),
		Phone:   strings.TrimSpace(raw.Contact.Phone),
		Address: strings.TrimSpace(raw.Contact.Address),
	}
	return p, nil
}

// AbsoluteURL resolves a root-relative path or URL against BaseURL.
func (p Profile) AbsoluteURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return p.BaseURL + "/"
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return p.BaseURL + ref
}
