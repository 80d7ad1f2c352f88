package client

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app.Stdout = &out
	app.Stderr = &errOut
	err := app.Run(context.Background(), args)
	return out.String(), err
}

func TestApp_LoginStoresToken(t *testing.T) {
	_, srv := newStubServer(t)
	tokenFile := filepath.Join(t.TempDir(), "cfg", "token")

	out, err := runApp(t, &App{Password: "pw1"}, "-server", srv.URL, "-token-file", tokenFile, "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as alice")

	token, err := LoadToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-alice", token)

	info, err := os.Stat(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestApp_PromptsForPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("pw1"), nil }

	_, srv := newStubServer(t)
	tokenFile := filepath.Join(t.TempDir(), "token")

	_, err := runApp(t, &App{}, "-server", srv.URL, "-token-file", tokenFile, "login", "alice")
	require.NoError(t, err)
}

func TestApp_PasswordPromptError(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return nil, errors.New("not a terminal") }

	_, srv := newStubServer(t)
	_, err := runApp(t, &App{}, "-server", srv.URL, "-token-file", filepath.Join(t.TempDir(), "token"), "login", "alice")
	assert.ErrorContains(t, err, "not a terminal")
}

func TestApp_Commands(t *testing.T) {
	stub, srv := newStubServer(t)
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, SaveToken(tokenFile, "tok-alice"))

	base := []string{"-server", srv.URL, "-token-file", tokenFile}
	run := func(args ...string) (string, error) {
		return runApp(t, &App{}, append(append([]string{}, base...), args...)...)
	}

	img := filepath.Join(t.TempDir(), "cat.gif")
	require.NoError(t, os.WriteFile(img, []byte("GIF89a"), 0644))

	out, err := run("upload", img)
	require.NoError(t, err)
	assert.Contains(t, out, "1700000000000000000.jpg")
	assert.Contains(t, stub.uploads, "cat.gif")

	_, err = run("send", "hello", "there")
	require.NoError(t, err)

	out, err = run("messages")
	require.NoError(t, err)
	assert.Contains(t, out, "alice: hello there")

	out, err = run("add-time", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "90s")

	_, err = run("clear")
	require.NoError(t, err)
	assert.Empty(t, stub.messages)

	out, err = run("health")
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
}

func TestApp_InvalidUsage(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "token")
	base := []string{"-server", "http://127.0.0.1:1", "-token-file", tokenFile}

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"dance"}},
		{"login without username", []string{"login"}},
		{"upload without files", []string{"upload"}},
		{"upload of a text file", []string{"upload", "/etc/hostname"}},
		{"send without text", []string{"send"}},
		{"add-time not a number", []string{"add-time", "soon"}},
		{"add-time negative", []string{"add-time", "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, &App{Password: "x"}, append(append([]string{}, base...), tt.args...)...)
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}
