package content

import (
	"strings"
	"time"
)

// Kind identifies a publishable content type. It is fixed when an item is created.
type Kind string

const (
	KindEvent   Kind = "event"
	KindPartner Kind = "partner"
	KindCircle  Kind = "circle"
	KindGallery Kind = "gallery"
	KindSlider  Kind = "slider"
	KindSocial  Kind = "social"
)

// Kinds lists every supported kind in display order.
var Kinds = []Kind{KindEvent, KindPartner, KindCircle, KindGallery, KindSlider, KindSocial}

// ParseKind accepts the URL form of a kind ("events", "event", "Event").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "galleries" {
		s = "gallery"
	}
	s = strings.TrimSuffix(s, "s")
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// AssetRef points at one binary object in the object store.
// Bucket and Key identify the object; URL is the public address and may
// carry cache-busting query parameters, so it is never used for comparison.
type AssetRef struct {
	Bucket string `json:"bucket" bson:"bucket"`
	Key    string `json:"key" bson:"key"`
	URL    string `json:"url,omitempty" bson:"url,omitempty"`
}

// ID returns the stable identity of the asset.
func (a AssetRef) ID() string { return a.Bucket + "/" + a.Key }

// TimeBucket is derived from an Event's schedule at read time. It is never persisted.
type TimeBucket string

const (
	BucketUpcoming TimeBucket = "upcoming"
	BucketPast     TimeBucket = "past"
)

// Event is a scheduled community event.
type Event struct {
	Title       string    `json:"title" bson:"title"`
	Category    string    `json:"category" bson:"category"`
	Location    string    `json:"location,omitempty" bson:"location,omitempty"`
	Date        string    `json:"date" bson:"date"`
	Time        string    `json:"time" bson:"time"`
	MapURL      string    `json:"mapUrl,omitempty" bson:"mapUrl,omitempty"`
	TicketURL   string    `json:"ticketUrl,omitempty" bson:"ticketUrl,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Poster      *AssetRef `json:"poster,omitempty" bson:"poster,omitempty"`
}

// ScheduledAt joins the loosely formatted date and time fields.
func (e *Event) ScheduledAt() string {
	return strings.TrimSpace(e.Date + " " + e.Time)
}

// Partner is a business or organisation listed on the partners page.
type Partner struct {
	Name        string    `json:"name" bson:"name"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Perk        string    `json:"perk,omitempty" bson:"perk,omitempty"`
	Link        string    `json:"link,omitempty" bson:"link,omitempty"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	Instagram   string    `json:"instagram,omitempty" bson:"instagram,omitempty"`
	WhatsApp    string    `json:"whatsapp,omitempty" bson:"whatsapp,omitempty"`
	Logo        *AssetRef `json:"logo,omitempty" bson:"logo,omitempty"`
}

// Circle is a community interest group.
type Circle struct {
	Title       string    `json:"title" bson:"title"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Link        string    `json:"link,omitempty" bson:"link,omitempty"`
	Cover       *AssetRef `json:"cover,omitempty" bson:"cover,omitempty"`
}

// Gallery is an archive of images.
type Gallery struct {
	Title  string     `json:"title,omitempty" bson:"title,omitempty"`
	Images []AssetRef `json:"images" bson:"images"`
}

// Slide is one frame of the hero slider or one social post.
type Slide struct {
	Asset   AssetRef `json:"asset" bson:"asset"`
	Caption string   `json:"caption,omitempty" bson:"caption,omitempty"`
	Link    string   `json:"link,omitempty" bson:"link,omitempty"`
}

// Slider is the ordered hero slider deck.
type Slider struct {
	Title  string  `json:"title,omitempty" bson:"title,omitempty"`
	Slides []Slide `json:"slides" bson:"slides"`
}

// Social is a set of social-post glimpses.
type Social struct {
	Title string  `json:"title,omitempty" bson:"title,omitempty"`
	Posts []Slide `json:"posts" bson:"posts"`
}

// Body is the kind-specific part of an item. Exactly one field is set and
// it must match the item's Kind.
type Body struct {
	Event   *Event   `json:"event,omitempty" bson:"event,omitempty"`
	Partner *Partner `json:"partner,omitempty" bson:"partner,omitempty"`
	Circle  *Circle  `json:"circle,omitempty" bson:"circle,omitempty"`
	Gallery *Gallery `json:"gallery,omitempty" bson:"gallery,omitempty"`
	Slider  *Slider  `json:"slider,omitempty" bson:"slider,omitempty"`
	Social  *Social  `json:"social,omitempty" bson:"social,omitempty"`
}

// Kinds returns the kinds whose variant is set.
func (b Body) Kinds() []Kind {
	var out []Kind
	if b.Event != nil {
		out = append(out, KindEvent)
	}
	if b.Partner != nil {
		out = append(out, KindPartner)
	}
	if b.Circle != nil {
		out = append(out, KindCircle)
	}
	if b.Gallery != nil {
		out = append(out, KindGallery)
	}
	if b.Slider != nil {
		out = append(out, KindSlider)
	}
	if b.Social != nil {
		out = append(out, KindSocial)
	}
	return out
}

// Assets returns every asset the body references, in payload order.
func (b Body) Assets() []AssetRef {
	var out []AssetRef
	switch {
	case b.Event != nil:
		if b.Event.Poster != nil {
			out = append(out, *b.Event.Poster)
		}
	case b.Partner != nil:
		if b.Partner.Logo != nil {
			out = append(out, *b.Partner.Logo)
		}
	case b.Circle != nil:
		if b.Circle.Cover != nil {
			out = append(out, *b.Circle.Cover)
		}
	case b.Gallery != nil:
		out = append(out, b.Gallery.Images...)
	case b.Slider != nil:
		for _, s := range b.Slider.Slides {
			out = append(out, s.Asset)
		}
	case b.Social != nil:
		for _, s := range b.Social.Posts {
			out = append(out, s.Asset)
		}
	}
	return out
}

// Title returns a human readable label for audit trails.
func (b Body) Title() string {
	switch {
	case b.Event != nil:
		return b.Event.Title
	case b.Partner != nil:
		return b.Partner.Name
	case b.Circle != nil:
		return b.Circle.Title
	case b.Gallery != nil:
		return b.Gallery.Title
	case b.Slider != nil:
		return b.Slider.Title
	case b.Social != nil:
		return b.Social.Title
	}
	return ""
}

// Category returns the body's category, if the kind has one.
func (b Body) Category() string {
	switch {
	case b.Event != nil:
		return b.Event.Category
	case b.Partner != nil:
		return b.Partner.Category
	case b.Circle != nil:
		return b.Circle.Category
	}
	return ""
}

// Item is the persisted envelope shared by every kind.
type Item struct {
	ID       string `json:"id" bson:"_id,omitempty"`
	Kind     Kind   `json:"kind" bson:"kind"`
	Featured bool   `json:"featured" bson:"featured"`
	Body     `bson:",inline"`
	// Assets is the flattened list of Body's asset refs, stored so the
	// document store can answer "who references this key".
	Assets    []AssetRef `json:"-" bson:"assets"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Schedule returns the raw schedule string; ok is false for kinds without one.
func (it *Item) Schedule() (string, bool) {
	if it.Kind != KindEvent || it.Event == nil {
		return "", false
	}
	return it.Event.ScheduledAt(), true
}

// Describe is the audit target description for the item.
func (it *Item) Describe() string {
	if t := strings.TrimSpace(it.Title()); t != "" {
		return t
	}
	return string(it.Kind) + " " + it.ID
}

// Clone returns a deep copy so callers can diff before/after snapshots.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	cp.Body = it.Body.Clone()
	cp.Assets = append([]AssetRef(nil), it.Assets...)
	return &cp
}

// Clone returns a deep copy of the body.
func (b Body) Clone() Body {
	var out Body
	if b.Event != nil {
		ev := *b.Event
		ev.Poster = cloneRef(b.Event.Poster)
		out.Event = &ev
	}
	if b.Partner != nil {
		p := *b.Partner
		p.Logo = cloneRef(b.Partner.Logo)
		out.Partner = &p
	}
	if b.Circle != nil {
		c := *b.Circle
		c.Cover = cloneRef(b.Circle.Cover)
		out.Circle = &c
	}
	if b.Gallery != nil {
		g := *b.Gallery
		g.Images = append([]AssetRef(nil), b.Gallery.Images...)
		out.Gallery = &g
	}
	if b.Slider != nil {
		s := *b.Slider
		s.Slides = append([]Slide(nil), b.Slider.Slides...)
		out.Slider = &s
	}
	if b.Social != nil {
		s := *b.Social
		s.Posts = append([]Slide(nil), b.Social.Posts...)
		out.Social = &s
	}
	return out
}

func cloneRef(r *AssetRef) *AssetRef {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// Patch is a shallow update: nil fields are left untouched.
type Patch struct {
	Body     *Body
	Featured *bool
}

// Apply merges the patch into the item in place and refreshes Assets.
func (p Patch) Apply(it *Item) {
	if p.Body != nil {
		b := p.Body.Clone()
		if b.Event != nil {
			it.Event = b.Event
		}
		if b.Partner != nil {
			it.Partner = b.Partner
		}
		if b.Circle != nil {
			it.Circle = b.Circle
		}
		if b.Gallery != nil {
			it.Gallery = b.Gallery
		}
		if b.Slider != nil {
			it.Slider = b.Slider
		}
		if b.Social != nil {
			it.Social = b.Social
		}
	}
	if p.Featured != nil {
		it.Featured = *p.Featured
	}
	it.Assets = it.Body.Assets()
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Featured *bool
	Category string
	Bucket   TimeBucket
}

// Listed is an item as returned to readers, with its derived bucket.
type Listed struct {
	*Item
	Bucket     TimeBucket `json:"bucket,omitempty"`
	IsUpcoming *bool      `json:"isUpcoming,omitempty"`
}
