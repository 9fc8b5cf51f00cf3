package text

// DefaultRunes is the rune set rasterized when WithRunes is not given:
// printable ASCII and the Latin-1 supplement.
const DefaultRunes = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~" +
	"¡¢£¤¥¦§¨©ª«¬®¯°±²³´µ¶·¸¹º»¼½¾¿ÀÁÂÃÄÅÆÇÈÉÊËÌÍÎÏÐÑÒÓÔÕÖ×ØÙÚÛÜÝÞßàáâãäåæçèéêëìíîïðñòóôõö÷øùúûüýþÿ"

const (
	defaultAtlasWidth = 512
	defaultPadding    = 1
)

// Option configures a Font.
type Option func(*options)

type options struct {
	runes      string
	atlasWidth int
	padding    int
	language   string
}

func defaultOptions() options {
	return options{
		runes:      DefaultRunes,
		atlasWidth: defaultAtlasWidth,
		padding:    defaultPadding,
		language:   "en",
	}
}

// WithRunes sets the runes whose glyphs are rasterized into the atlas.
// Glyphs produced by shaping that are not in the atlas advance the pen
// but are not drawn.
func WithRunes(runes string) Option {
	return func(o *options) {
		o.runes = runes
	}
}

// WithAtlasWidth sets the atlas texture width in pixels. The height is
// whatever the packed glyphs need.
func WithAtlasWidth(w int) Option {
	return func(o *options) {
		if w > 0 {
			o.atlasWidth = w
		}
	}
}

// WithPadding sets the transparent gap in pixels between packed glyphs.
func WithPadding(px int) Option {
	return func(o *options) {
		if px >= 0 {
			o.padding = px
		}
	}
}

// WithLanguage sets the BCP 47 language tag passed to the shaper.
func WithLanguage(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.language = tag
		}
	}
}
