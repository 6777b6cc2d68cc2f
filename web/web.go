// Package web holds the embedded browser form.
package web

import "embed"

//go:embed static
var Static embed.FS
