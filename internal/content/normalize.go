package content

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Prepare validates a payload for kind cfg.Kind and resolves its asset refs.
// It performs no I/O and returns a copy; the input is not modified.
func Prepare(cfg KindConfig, body Body) (Body, error) {
	kinds := body.Kinds()
	switch {
	case len(kinds) == 0:
		return Body{}, invalid(string(cfg.Kind), "payload is empty")
	case len(kinds) > 1:
		return Body{}, invalid("", "payload carries more than one kind")
	case kinds[0] != cfg.Kind:
		return Body{}, invalid(string(kinds[0]), "payload does not match kind %s", cfg.Kind)
	}

	out := body.Clone()
	switch cfg.Kind {
	case KindEvent:
		ev := out.Event
		if strings.TrimSpace(ev.Title) == "" {
			return Body{}, invalid("event.title", "required")
		}
		// an unscheduled event is accepted and lists as upcoming
		if err := resolveRef(cfg, "event.poster", ev.Poster); err != nil {
			return Body{}, err
		}
	case KindPartner:
		if strings.TrimSpace(out.Partner.Name) == "" {
			return Body{}, invalid("partner.name", "required")
		}
		if err := resolveRef(cfg, "partner.logo", out.Partner.Logo); err != nil {
			return Body{}, err
		}
	case KindCircle:
		if strings.TrimSpace(out.Circle.Title) == "" {
			return Body{}, invalid("circle.title", "required")
		}
		if err := resolveRef(cfg, "circle.cover", out.Circle.Cover); err != nil {
			return Body{}, err
		}
	case KindGallery:
		for i := range out.Gallery.Images {
			if err := resolveRef(cfg, "gallery.images", &out.Gallery.Images[i]); err != nil {
				return Body{}, err
			}
		}
	case KindSlider:
		for i := range out.Slider.Slides {
			if err := resolveRef(cfg, "slider.slides", &out.Slider.Slides[i].Asset); err != nil {
				return Body{}, err
			}
		}
	case KindSocial:
		for i := range out.Social.Posts {
			if err := resolveRef(cfg, "social.posts", &out.Social.Posts[i].Asset); err != nil {
				return Body{}, err
			}
		}
	}
	return out, nil
}

func resolveRef(cfg KindConfig, field string, ref *AssetRef) error {
	if ref == nil {
		return nil
	}
	if ref.Bucket == "" {
		ref.Bucket = cfg.Bucket
	}
	if ref.Key == "" {
		if ref.URL == "" {
			return invalid(field, "asset needs a key or url")
		}
		key, err := KeyFromURL(ref.Bucket, cfg.Prefix, ref.URL)
		if err != nil {
			return invalid(field, "%v", err)
		}
		ref.Key = key
	}
	if !cfg.Owns(*ref) {
		return invalid(field, "asset %s is outside %s%s", ref.ID(), cfg.Bucket+"/", cfg.Prefix)
	}
	return nil
}

// KeyFromURL recovers an object key from a public URL. Query strings are
// ignored. When the path contains "/<bucket>/" the remainder is the key,
// otherwise the last path segment is joined to prefix.
func KeyFromURL(bucket, prefix, raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	p := u.Path
	if marker := "/" + bucket + "/"; bucket != "" {
		if i := strings.Index(p, marker); i >= 0 {
			if key := p[i+len(marker):]; key != "" {
				return key, nil
			}
		}
	}
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return "", &ValidationError{Field: "url", Reason: "no object key in " + raw}
	}
	return prefix + base, nil
}

// Normalize trims free-form fields and case-folds titles and categories.
func Normalize(b *Body) {
	switch {
	case b.Event != nil:
		ev := b.Event
		ev.Title = upper(ev.Title)
		ev.Category = upper(ev.Category)
		if ev.Category == "" {
			ev.Category = "GENERAL"
		}
		ev.Location = upper(ev.Location)
		ev.Date = collapse(ev.Date)
		ev.Time = collapse(ev.Time)
		ev.Description = strings.TrimSpace(ev.Description)
	case b.Partner != nil:
		p := b.Partner
		p.Name = strings.TrimSpace(p.Name)
		p.Category = upper(p.Category)
		p.Email = strings.ToLower(strings.TrimSpace(p.Email))
		p.Instagram = strings.TrimSpace(strings.ReplaceAll(p.Instagram, "@", ""))
		p.WhatsApp = strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, p.WhatsApp)
		p.Description = strings.TrimSpace(p.Description)
	case b.Circle != nil:
		b.Circle.Title = strings.TrimSpace(b.Circle.Title)
		b.Circle.Category = upper(b.Circle.Category)
		b.Circle.Description = strings.TrimSpace(b.Circle.Description)
	case b.Gallery != nil:
		b.Gallery.Title = strings.TrimSpace(b.Gallery.Title)
	case b.Slider != nil:
		b.Slider.Title = strings.TrimSpace(b.Slider.Title)
	case b.Social != nil:
		b.Social.Title = strings.TrimSpace(b.Social.Title)
	}
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
