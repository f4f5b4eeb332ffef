package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterNotifier_Plain(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	require.NoError(t, n.Send(context.Background(), "cli", "hola\n¿edad?"))
	assert.Equal(t, "nutri> hola\nnutri> ¿edad?\n", buf.String())
}

func TestWriterNotifier_Rendered(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, WithRenderer(func(s string) (string, error) {
		return "<" + s + ">\n", nil
	}))

	require.NoError(t, n.Send(context.Background(), "cli", "hola"))
	assert.Equal(t, "<hola>\n", buf.String())
}

func TestWriterNotifier_RenderFailureFallsBack(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf, WithPrefix("> "), WithRenderer(func(string) (string, error) {
		return "", errors.New("boom")
	}))

	require.NoError(t, n.Send(context.Background(), "cli", "hola"))
	assert.Equal(t, "> hola\n", buf.String())
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer(0)
	require.NoError(t, err)

	out, err := render("**Desayuno**: 195 kcal")
	require.NoError(t, err)
	assert.Contains(t, out, "Desayuno")
	assert.Contains(t, out, "195 kcal")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_| |_|")
}
