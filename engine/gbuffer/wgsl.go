package gbuffer

import (
	"fmt"
	"strings"
)

// WGSL returns shader source declaring the layout as constants together with
// gbuffer_pack, gbuffer_unpack and gbuffer_covered. Each field constant is a
// vec3<u32> of (word, shift, mask).
//
// Returns:
//   - string: WGSL source to include ahead of the geometry and resolve shaders
func (l Layout) WGSL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "const GBUFFER_VERSION: u32 = %du;\n", l.Version)
	fmt.Fprintf(&b, "const GBUFFER_FLAG_COVERED: u32 = %du;\n", FlagCovered)
	for i, r := range l.Ranges {
		fmt.Fprintf(&b, "const GB_FIELD_%s: vec3<u32> = vec3<u32>(%du, %du, 0x%xu);\n",
			strings.ToUpper(Field(i).String()), r.Word, r.Offset, r.Mask())
	}
	b.WriteString(wgslFunctions)
	return b.String()
}

const wgslFunctions = `
struct GSurface {
    normal: vec3<f32>,
    albedo: vec3<f32>,
    roughness: f32,
    metallic: f32,
    materialId: u32,
};

fn gb_get(e: vec4<u32>, f: vec3<u32>) -> u32 {
    return (e[f.x] >> f.y) & f.z;
}

fn gb_put(e: ptr<function, vec4<u32>>, f: vec3<u32>, value: u32) {
    (*e)[f.x] = (*e)[f.x] | ((value & f.z) << f.y);
}

fn gb_unorm(x: f32, scale: f32) -> u32 {
    return u32(round(clamp(x, 0.0, 1.0) * scale));
}

fn gb_sign_not_zero(v: vec2<f32>) -> vec2<f32> {
    return select(vec2<f32>(-1.0), vec2<f32>(1.0), v >= vec2<f32>(0.0));
}

fn gb_oct_encode(n: vec3<f32>) -> vec2<f32> {
    let sum = abs(n.x) + abs(n.y) + abs(n.z);
    if (!(sum > 0.0)) {
        return vec2<f32>(0.0);
    }
    var p = n.xy / sum;
    if (n.z < 0.0) {
        p = (vec2<f32>(1.0) - abs(p.yx)) * gb_sign_not_zero(p);
    }
    return p;
}

fn gb_oct_decode(p: vec2<f32>) -> vec3<f32> {
    var n = vec3<f32>(p, 1.0 - abs(p.x) - abs(p.y));
    if (n.z < 0.0) {
        n = vec3<f32>((vec2<f32>(1.0) - abs(p.yx)) * gb_sign_not_zero(p), n.z);
    }
    return normalize(n);
}

fn gbuffer_pack(s: GSurface) -> vec4<u32> {
    var e = vec4<u32>(0u);
    let oct = gb_oct_encode(s.normal) * 0.5 + vec2<f32>(0.5);
    gb_put(&e, GB_FIELD_NORMAL_U, gb_unorm(oct.x, 65535.0));
    gb_put(&e, GB_FIELD_NORMAL_V, gb_unorm(oct.y, 65535.0));
    gb_put(&e, GB_FIELD_ALBEDO_R, gb_unorm(s.albedo.r, 255.0));
    gb_put(&e, GB_FIELD_ALBEDO_G, gb_unorm(s.albedo.g, 255.0));
    gb_put(&e, GB_FIELD_ALBEDO_B, gb_unorm(s.albedo.b, 255.0));
    gb_put(&e, GB_FIELD_ROUGHNESS, gb_unorm(s.roughness, 255.0));
    gb_put(&e, GB_FIELD_METALLIC, gb_unorm(s.metallic, 255.0));
    gb_put(&e, GB_FIELD_MATERIAL_ID, s.materialId);
    gb_put(&e, GB_FIELD_VERSION, GBUFFER_VERSION);
    gb_put(&e, GB_FIELD_FLAGS, GBUFFER_FLAG_COVERED);
    return e;
}

fn gbuffer_covered(e: vec4<u32>) -> bool {
    return gb_get(e, GB_FIELD_VERSION) == GBUFFER_VERSION
        && (gb_get(e, GB_FIELD_FLAGS) & GBUFFER_FLAG_COVERED) != 0u;
}

fn gbuffer_unpack(e: vec4<u32>) -> GSurface {
    var s: GSurface;
    let oct = vec2<f32>(f32(gb_get(e, GB_FIELD_NORMAL_U)), f32(gb_get(e, GB_FIELD_NORMAL_V))) / 65535.0;
    s.normal = gb_oct_decode(oct * 2.0 - vec2<f32>(1.0));
    s.albedo = vec3<f32>(
        f32(gb_get(e, GB_FIELD_ALBEDO_R)),
        f32(gb_get(e, GB_FIELD_ALBEDO_G)),
        f32(gb_get(e, GB_FIELD_ALBEDO_B)),
    ) / 255.0;
    s.roughness = f32(gb_get(e, GB_FIELD_ROUGHNESS)) / 255.0;
    s.metallic = f32(gb_get(e, GB_FIELD_METALLIC)) / 255.0;
    s.materialId = gb_get(e, GB_FIELD_MATERIAL_ID);
    return s;
}
`
