package effect

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/ardnew/fxc/pkg"
)

// TextureSpec describes a texture to allocate. A zero Width or Height
// follows the viewport; Depth applies to 3D textures only.
type TextureSpec struct {
	Format    gputypes.TextureFormat
	Dimension gputypes.TextureDimension
	Width     int
	Height    int
	Depth     int
	Usage     gputypes.TextureUsage
}

// DefaultUsage lets a texture be sampled, rendered to and copied.
const DefaultUsage = gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageCopySrc |
	gputypes.TextureUsageCopyDst

// Default3DSize is the edge length of a 3D texture that does not declare
// one.
const Default3DSize = 64

var formatNames = map[string]gputypes.TextureFormat{
	"rgba8unorm":  gputypes.TextureFormatRGBA8Unorm,
	"bgra8unorm":  gputypes.TextureFormatBGRA8Unorm,
	"r8unorm":     gputypes.TextureFormatR8Unorm,
	"r32float":    gputypes.TextureFormatR32Float,
	"rgba16float": gputypes.TextureFormatRGBA16Float,
	"rgba32float": gputypes.TextureFormatRGBA32Float,
}

// Surface2D is the spec of output, feedback and intermediate textures.
func Surface2D() TextureSpec {
	return TextureSpec{
		Format:    gputypes.TextureFormatRGBA8Unorm,
		Dimension: gputypes.TextureDimension2D,
		Usage:     DefaultUsage,
	}
}

// Volume3D is the default spec of a 3D texture.
func Volume3D() TextureSpec {
	return TextureSpec{
		Format:    gputypes.TextureFormatRGBA16Float,
		Dimension: gputypes.TextureDimension3D,
		Width:     Default3DSize,
		Height:    Default3DSize,
		Depth:     Default3DSize,
		Usage:     gputypes.TextureUsageTextureBinding | gputypes.TextureUsageStorageBinding,
	}
}

// FormatName returns the catalog spelling of f.
func FormatName(f gputypes.TextureFormat) string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}

	return "format(" + strconv.Itoa(int(f)) + ")"
}

// ParseFormat parses a catalog format name.
func ParseFormat(s string) (gputypes.TextureFormat, bool) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(s))]

	return f, ok
}

// Is3D reports whether s is a volume texture.
func (s TextureSpec) Is3D() bool {
	return s.Dimension == gputypes.TextureDimension3D
}

// Follows reports whether s takes its size from the viewport.
func (s TextureSpec) Follows() bool {
	return s.Width == 0 || s.Height == 0
}

// Sized returns s with viewport-relative dimensions resolved against a
// w×h viewport.
func (s TextureSpec) Sized(w, h int) TextureSpec {
	if s.Width == 0 {
		s.Width = w
	}

	if s.Height == 0 {
		s.Height = h
	}

	if s.Depth == 0 {
		s.Depth = 1
	}

	return s
}

// Key identifies the allocation class of s: textures with equal keys
// may share physical storage.
func (s TextureSpec) Key() string {
	var sb strings.Builder

	sb.WriteString(FormatName(s.Format))

	if s.Is3D() {
		sb.WriteString("-3d")
	}

	if !s.Follows() {
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(s.Width))
		sb.WriteByte('x')
		sb.WriteString(strconv.Itoa(s.Height))

		if s.Is3D() {
			sb.WriteByte('x')
			sb.WriteString(strconv.Itoa(s.Depth))
		}
	}

	return sb.String()
}

type textureYAML struct {
	Format string `yaml:"format,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
	Depth  int    `yaml:"depth,omitempty"`
}

func (s *TextureSpec) decode(raw textureYAML, volume bool) *pkg.Error {
	base := Surface2D()
	if volume {
		base = Volume3D()
	}

	if raw.Format != "" {
		f, ok := ParseFormat(raw.Format)
		if !ok {
			return ErrInvalidTexture.With(slog.String("format", raw.Format))
		}

		base.Format = f
	}

	if raw.Width < 0 || raw.Height < 0 || raw.Depth < 0 {
		return ErrInvalidTexture.With(slog.String("reason", "negative size"))
	}

	if raw.Width > 0 {
		base.Width = raw.Width
	}

	if raw.Height > 0 {
		base.Height = raw.Height
	}

	if raw.Depth > 0 {
		base.Depth = raw.Depth
	}

	*s = base

	return nil
}

func (s TextureSpec) encode() textureYAML {
	raw := textureYAML{Format: FormatName(s.Format), Width: s.Width, Height: s.Height}
	if s.Is3D() {
		raw.Depth = s.Depth
	}

	return raw
}

// MarshalYAML implements the goccy/go-yaml InterfaceMarshaler.
func (s TextureSpec) MarshalYAML() (any, error) { return s.encode(), nil }

// Textures is a set of named 2D texture specs.
type Textures map[string]TextureSpec

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (t *Textures) UnmarshalYAML(unmarshal func(any) error) error {
	return decodeTextures(unmarshal, (*map[string]TextureSpec)(t), false)
}

// Volumes is a set of named 3D texture specs.
type Volumes map[string]TextureSpec

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (t *Volumes) UnmarshalYAML(unmarshal func(any) error) error {
	return decodeTextures(unmarshal, (*map[string]TextureSpec)(t), true)
}

func decodeTextures(unmarshal func(any) error, dst *map[string]TextureSpec, volume bool) error {
	var raw map[string]textureYAML
	if err := unmarshal(&raw); err != nil {
		return err
	}

	out := make(map[string]TextureSpec, len(raw))

	for name, r := range raw {
		var s TextureSpec
		if err := s.decode(r, volume); err != nil {
			return err.With(slog.String("texture", name))
		}

		out[name] = s
	}

	*dst = out

	return nil
}
