package main

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const quadVertexShader = `#version 410 core
layout (location = 0) in vec2 position;
layout (location = 1) in vec2 texCoord;
layout (location = 2) in vec4 colour;

out vec2 TexCoord;
out vec4 Colour;

uniform mat4 projection;

void main()
{
    TexCoord = texCoord;
    Colour = colour;
    gl_Position = projection * vec4(position, 0.0, 1.0);
}
`

const quadFragmentShader = `#version 410 core
in vec2 TexCoord;
in vec4 Colour;
out vec4 FragColor;

uniform sampler2D image;

void main()
{
    FragColor = Colour * texture(image, TexCoord);
}
`

type Shader struct {
	id uint32
}

func NewShader(vertexShaderSource, fragmentShaderSource string) (*Shader, error) {
	vertexShader, err := compile(gl.VERTEX_SHADER, vertexShaderSource, "VERTEX")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vertexShader)

	fragmentShader, err := compile(gl.FRAGMENT_SHADER, fragmentShaderSource, "FRAGMENT")
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fragmentShader)

	// Link all shaders together to form a shader program, which is used during rendering.
	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
		infoLog := strings.Repeat("\x00", int(n+1))
		gl.GetProgramInfoLog(id, n, nil, gl.Str(infoLog))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("failed to link program: %v", strings.TrimRight(infoLog, "\x00"))
	}
	return &Shader{id: id}, nil
}

func compile(kind uint32, source, name string) (uint32, error) {
	shader := gl.CreateShader(kind)
	// The source must be a null-terminated string in C flavor.
	sourceString, free := gl.Strs(source + "\x00")
	defer free()
	gl.ShaderSource(shader, 1, sourceString, nil)
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &n)
		infoLog := strings.Repeat("\x00", int(n+1))
		gl.GetShaderInfoLog(shader, n, nil, gl.Str(infoLog))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile %v shader: %v", name, strings.TrimRight(infoLog, "\x00"))
	}
	return shader, nil
}

func (s *Shader) use() *Shader {
	gl.UseProgram(s.id)
	return s
}

func (s *Shader) setInt(name string, value int32) {
	gl.Uniform1i(gl.GetUniformLocation(s.id, gl.Str(name+"\x00")), value)
}

func (s *Shader) setMat4(name string, value mgl32.Mat4) {
	gl.UniformMatrix4fv(gl.GetUniformLocation(s.id, gl.Str(name+"\x00")), 1, false, &value[0])
}

func (s *Shader) delete() {
	gl.DeleteProgram(s.id)
}
