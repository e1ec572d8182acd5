package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// DisplayOptions holds the per-archive layout preferences. They are stored
// as JSON and handed to the render layer as-is; only the featured ranking is
// read by the view core. Zero values mean "use the default".
type DisplayOptions struct {
	Layout                   Layout            `json:"layout,omitempty"`
	SearchBarPosition        SearchBarPosition `json:"searchBarPosition,omitempty"`
	ShowTitle                *bool             `json:"showTitle,omitempty"`
	HeaderPosition           HeaderPosition    `json:"headerPosition,omitempty"`
	HeaderAlignment          Alignment         `json:"headerAlignment,omitempty"`
	ActionButtonsPosition    ButtonsPosition   `json:"actionButtonsPosition,omitempty"`
	ActionButtonsDisplayMode ButtonsMode       `json:"actionButtonsDisplayMode,omitempty"`
	ActionButtons            ActionButtons     `json:"actionButtons,omitempty"`
	PortalOptions            PortalOptions     `json:"portalOptions,omitempty"`
	TagCloudOptions          TagCloudOptions   `json:"tagCloudOptions,omitempty"`
	CardStyle                CardStyle         `json:"cardStyle,omitempty"`
	ImageStyle               ImageStyle        `json:"imageStyle,omitempty"`
	ImageFit                 ImageFit          `json:"imageFit,omitempty"`
	BorderRadius             *BorderRadius     `json:"borderRadius,omitempty"`
}

type PortalOptions struct {
	Title           string   `json:"title,omitempty"`
	FeaturedPostIDs []string `json:"featuredPostIds,omitempty"`
}

type TagCloudOptions struct {
	Show     *bool            `json:"show,omitempty"`
	Position TagCloudPosition `json:"position,omitempty"`
	Title    string           `json:"title,omitempty"`
}

// ActionButtons toggles individual buttons; a missing key means enabled.
type ActionButtons map[string]bool

var actionButtonNames = []string{"theme", "archives", "settings", "import", "export", "newPost"}

// Resolved returns every known button with defaults filled in.
func (b ActionButtons) Resolved() map[string]bool {
	out := make(map[string]bool, len(actionButtonNames))
	for _, name := range actionButtonNames {
		enabled, ok := b[name]
		out[name] = !ok || enabled
	}
	return out
}

type Layout string

const (
	LayoutGrid        Layout = "grid"
	LayoutPortalLeft  Layout = "portal-left"
	LayoutPortalRight Layout = "portal-right"
)

func (l Layout) Resolve() Layout {
	return resolve(l, LayoutGrid, LayoutPortalLeft, LayoutPortalRight)
}

// IsPortal reports whether the layout shows the featured sidebar.
func (l Layout) IsPortal() bool {
	r := l.Resolve()
	return r == LayoutPortalLeft || r == LayoutPortalRight
}

type SearchBarPosition string

const (
	SearchTopCenter           SearchBarPosition = "top-center"
	SearchTopLeft             SearchBarPosition = "top-left"
	SearchTopRight            SearchBarPosition = "top-right"
	SearchHeader              SearchBarPosition = "header"
	SearchHeaderLeft          SearchBarPosition = "header-left"
	SearchHeaderRight         SearchBarPosition = "header-right"
	SearchFloatingTopLeft     SearchBarPosition = "floating-top-left"
	SearchFloatingTopRight    SearchBarPosition = "floating-top-right"
	SearchFloatingBottomLeft  SearchBarPosition = "floating-bottom-left"
	SearchFloatingBottomRight SearchBarPosition = "floating-bottom-right"
)

func (p SearchBarPosition) Resolve() SearchBarPosition {
	return resolve(p, SearchTopCenter,
		SearchTopLeft, SearchTopRight,
		SearchHeader, SearchHeaderLeft, SearchHeaderRight,
		SearchFloatingTopLeft, SearchFloatingTopRight,
		SearchFloatingBottomLeft, SearchFloatingBottomRight,
	)
}

type HeaderPosition string

const (
	HeaderTop    HeaderPosition = "top"
	HeaderHero   HeaderPosition = "hero"
	HeaderBottom HeaderPosition = "bottom"
)

func (p HeaderPosition) Resolve() HeaderPosition {
	return resolve(p, HeaderTop, HeaderHero, HeaderBottom)
}

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

func (a Alignment) Resolve() Alignment {
	return resolve(a, AlignCenter, AlignLeft, AlignRight)
}

type ButtonsPosition string

const (
	ButtonsBottomRight  ButtonsPosition = "bottom-right"
	ButtonsBottomLeft   ButtonsPosition = "bottom-left"
	ButtonsBottomCenter ButtonsPosition = "bottom-center"
	ButtonsTopRight     ButtonsPosition = "top-right"
	ButtonsTopLeft      ButtonsPosition = "top-left"
	ButtonsTopCenter    ButtonsPosition = "top-center"
)

func (p ButtonsPosition) Resolve() ButtonsPosition {
	return resolve(p, ButtonsBottomRight,
		ButtonsBottomLeft, ButtonsBottomCenter,
		ButtonsTopRight, ButtonsTopLeft, ButtonsTopCenter,
	)
}

type ButtonsMode string

const (
	ButtonsStacked ButtonsMode = "stacked"
	ButtonsFab     ButtonsMode = "fab"
)

func (m ButtonsMode) Resolve() ButtonsMode {
	return resolve(m, ButtonsStacked, ButtonsFab)
}

type TagCloudPosition string

const (
	TagCloudTop     TagCloudPosition = "top-of-content"
	TagCloudBottom  TagCloudPosition = "bottom-of-content"
	TagCloudSidebar TagCloudPosition = "sidebar"
)

func (p TagCloudPosition) Resolve() TagCloudPosition {
	return resolve(p, TagCloudTop, TagCloudBottom, TagCloudSidebar)
}

type CardStyle string

const (
	CardDefault        CardStyle = "default"
	CardDefaultOverlay CardStyle = "default-overlay"
	CardPosterClassic  CardStyle = "poster-classic"
	CardPosterOverlay  CardStyle = "poster-overlay"
)

func (c CardStyle) Resolve() CardStyle {
	return resolve(c, CardDefault, CardDefaultOverlay, CardPosterClassic, CardPosterOverlay)
}

type ImageStyle string

const (
	ImageContained ImageStyle = "contained"
	ImageFullBleed ImageStyle = "full-bleed"
)

func (s ImageStyle) Resolve() ImageStyle {
	return resolve(s, ImageContained, ImageFullBleed)
}

type ImageFit string

const (
	ImageFitCover   ImageFit = "cover"
	ImageFitContain ImageFit = "contain"
)

func (f ImageFit) Resolve() ImageFit {
	return resolve(f, ImageFitCover, ImageFitContain)
}

func resolve[T ~string](v T, def T, others ...T) T {
	if v == def || slices.Contains(others, v) {
		return v
	}
	return def
}

// Resolved returns a copy with every enum set to a known value and every
// optional flag defaulted.
func (o DisplayOptions) Resolved() DisplayOptions {
	yes := true
	out := o
	out.Layout = o.Layout.Resolve()
	out.SearchBarPosition = o.SearchBarPosition.Resolve()
	out.HeaderPosition = o.HeaderPosition.Resolve()
	out.HeaderAlignment = o.HeaderAlignment.Resolve()
	out.ActionButtonsPosition = o.ActionButtonsPosition.Resolve()
	out.ActionButtonsDisplayMode = o.ActionButtonsDisplayMode.Resolve()
	out.ActionButtons = o.ActionButtons.Resolved()
	out.TagCloudOptions.Position = o.TagCloudOptions.Position.Resolve()
	out.CardStyle = o.CardStyle.Resolve()
	out.ImageStyle = o.ImageStyle.Resolve()
	out.ImageFit = o.ImageFit.Resolve()
	if out.ShowTitle == nil {
		out.ShowTitle = &yes
	}
	if out.TagCloudOptions.Show == nil {
		out.TagCloudOptions.Show = &yes
	}
	return out
}

// TagCloudVisible is false only when the cloud was explicitly hidden.
func (o DisplayOptions) TagCloudVisible() bool {
	return o.TagCloudOptions.Show == nil || *o.TagCloudOptions.Show
}

// BorderRadius is either one radius for all corners or one per corner.
// On the wire it is a number or an object {tl, tr, br, bl}.
type BorderRadius struct {
	Uniform     bool
	All         float64
	TopLeft     float64
	TopRight    float64
	BottomRight float64
	BottomLeft  float64
}

type cornerRadius struct {
	TL float64 `json:"tl"`
	TR float64 `json:"tr"`
	BR float64 `json:"br"`
	BL float64 `json:"bl"`
}

func (b BorderRadius) MarshalJSON() ([]byte, error) {
	if b.Uniform {
		return json.Marshal(b.All)
	}
	return json.Marshal(cornerRadius{TL: b.TopLeft, TR: b.TopRight, BR: b.BottomRight, BL: b.BottomLeft})
}

func (b *BorderRadius) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = BorderRadius{Uniform: true, All: n}
		return nil
	}

	var c cornerRadius
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("border radius must be a number or {tl,tr,br,bl}: %w", err)
	}
	*b = BorderRadius{TopLeft: c.TL, TopRight: c.TR, BottomRight: c.BR, BottomLeft: c.BL}
	return nil
}

// CSS returns the border-radius declaration value, e.g. "8px" or "1px 2px 3px 4px".
func (b BorderRadius) CSS() string {
	if b.Uniform {
		return fmt.Sprintf("%gpx", b.All)
	}
	return fmt.Sprintf("%gpx %gpx %gpx %gpx", b.TopLeft, b.TopRight, b.BottomRight, b.BottomLeft)
}
