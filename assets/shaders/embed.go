// Package shaders embeds the engine's built-in WGSL shaders so they resolve without a shader directory on disk.
package shaders

import "embed"

// FS holds every .wgsl file of this directory, keyed by file name.
//
//go:embed *.wgsl
var FS embed.FS

// Default is the identifier of the built-in lit object shader.
const Default = "default_3d.wgsl"
