package render

// Styles used for capture output.
var (
	StyleBadge       = Style{FG: MustCode("345"), BG: MustCode("001")}
	StyleIfName      = Style{FG: MustCode("140")}
	StyleTimestamp   = Style{FG: MustCode("455")}
	StyleLabel       = Style{Bold: true}
	StyleIfID        = Style{FG: MustCode("145")}
	StyleSize        = Style{FG: MustCode("025")}
	StyleCaptured    = Style{FG: MustCode("145")}
	StyleOptionKey   = Style{FG: MustCode("453"), Bold: true}
	StyleOptionValue = Style{FG: MustCode("340")}
	StyleLayerName   = Style{FG: MustCode("501")}
	StyleFieldName   = Style{FG: MustCode("542")}
	StyleFieldValue  = Style{FG: MustCode("352")}
)
