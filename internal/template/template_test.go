package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirteen37/slate/internal/value"
)

func tree() value.Value {
	server := value.NewMapping()
	server.SetString("host", value.String("localhost"))
	server.SetString("port", value.Int(8080))

	m := value.NewMapping()
	m.SetString("server", server)
	m.SetString("names", value.Sequence{value.String("a"), value.String("b")})
	return m
}

func TestRenderTree(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"field access", "{{ .server.host }}:{{ .server.port }}", "localhost:8080"},
		{"range", "{{ range .names }}[{{ . }}]{{ end }}", "[a][b]"},
		{"sprig", "{{ .server.host | upper }}", "LOCALHOST"},
		{"toJson", "{{ toJson .server }}", `{"host":"localhost","port":8080}`},
		{"toYaml", "{{ toYaml .names }}", "- a\n- b"},
		{"toToml", "{{ toToml .server }}", "host = \"localhost\"\nport = 8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTree("test", tt.src, tree())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderTree_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"parse error", "{{ .server.host "},
		{"missing key", "{{ .nope.host }}"},
		{"unknown function", "{{ frobnicate .server }}"},
		{"helper failure", "{{ toToml .names }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderTree("test.tmpl", tt.src, tree())
			var te *Error
			require.True(t, errors.As(err, &te), "error = %v", err)
			assert.Equal(t, "test.tmpl", te.Name)
		})
	}
}

func TestRenderInput(t *testing.T) {
	t.Setenv("SLATE_TEST_HOST", "example.org")

	got, err := RenderInput("input", `host: {{ .Env.SLATE_TEST_HOST }}`)
	require.NoError(t, err)
	assert.Equal(t, "host: example.org", got)
}
