package shader

// Attribute locations shared by the world shaders and gldev's vertex layout.
const (
	AttribPosition = 0
	AttribNormal   = 1
	AttribTexCoord = 2
	AttribColor    = 3
	// AttribWorld is the first of four consecutive vec4 columns.
	AttribWorld         = 4
	AttribInstanceColor = 8
)

// WorldVertexSource draws both instanced and immediate geometry. Immediate
// draws pass their transform through uWorld and set uInstanced to 0.
const WorldVertexSource = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in vec4 aColor;
layout (location = 4) in mat4 aWorld;
layout (location = 8) in vec4 aInstanceColor;

uniform mat4 uViewProj;
uniform mat4 uWorld;
uniform vec4 uColor;
uniform int uInstanced;

out vec2 vTexCoord;
out vec4 vColor;
out vec3 vNormal;

void main() {
	mat4 world = uInstanced != 0 ? aWorld : uWorld;
	vec4 tint = uInstanced != 0 ? aInstanceColor : uColor;
	gl_Position = uViewProj * world * vec4(aPosition, 1.0);
	vTexCoord = aTexCoord;
	vColor = aColor * tint;
	vNormal = mat3(world) * aNormal;
}
`

// WorldFragmentSource applies a half-lambert sun term and the alpha mask.
const WorldFragmentSource = `
#version 410 core

in vec2 vTexCoord;
in vec4 vColor;
in vec3 vNormal;

uniform sampler2D uTexture;
uniform int uTextured;
uniform int uAlphaTest;

out vec4 FragColor;

const vec3 sunDir = normalize(vec3(0.3, 1.0, 0.2));

void main() {
	vec4 base = vColor;
	if (uTextured != 0) {
		base *= texture(uTexture, vTexCoord);
	}
	if (uAlphaTest != 0 && base.a < 0.5) {
		discard;
	}
	float ndl = dot(normalize(vNormal), sunDir) * 0.5 + 0.5;
	FragColor = vec4(base.rgb * ndl, base.a);
}
`
