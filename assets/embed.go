package assets

import _ "embed"

// Level is the default dungeon document compiled into every binary.
//
//go:embed level.ldtk
var Level []byte
