package render

import "pcaptree/internal/models"

// OptionSeparator opens the option tokens of a metadata line.
const OptionSeparator = "--"

// Options renders an option set as a flat token list meant to be joined
// with single spaces. Keys and values keep their insertion order.
func (r *Renderer) Options(opts *models.Options) []string {
	if opts.Len() == 0 {
		return nil
	}
	tokens := []string{OptionSeparator}
	for _, key := range opts.Keys() {
		for _, value := range opts.Values(key) {
			tokens = append(tokens,
				r.painter.Paint(key+":", StyleOptionKey),
				r.painter.Paint(Escape(value), StyleOptionValue),
			)
		}
	}
	return tokens
}
