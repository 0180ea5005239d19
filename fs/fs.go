package appfs

import "embed"

// FS embeds the database migrations and the email templates so the binaries
// do not depend on the working directory at runtime.
//go:embed migrations templates
var FS embed.FS
