package appfs

import "embed"

// FS embeds static app files (DB migrations).
//go:embed migrations
var FS embed.FS
