package shaders

import (
	_ "embed"
)

//go:embed emit.wgsl
var EmitWGSL string

//go:embed update.wgsl
var UpdateWGSL string

//go:embed compact.wgsl
var CompactWGSL string

//go:embed clear.wgsl
var ClearWGSL string

//go:embed render.wgsl
var RenderWGSL string

//go:embed text.wgsl
var TextWGSL string
