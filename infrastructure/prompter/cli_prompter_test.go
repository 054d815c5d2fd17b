package prompter_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/reglet-oscall/domain/entities"
	"github.com/reglet-dev/reglet-oscall/infrastructure/prompter"
)

func TestCliPrompter_PromptForNative(t *testing.T) {
	req := entities.NativeRequest{Module: "libc.so.6", Symbol: "getpid"}

	t.Run("Grant", func(t *testing.T) {
		in := bytes.NewBufferString("y\n")
		out := &bytes.Buffer{}
		p := prompter.NewCliPrompter(in, out)

		granted, always, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		assert.True(t, granted)
		assert.False(t, always)
		assert.Contains(t, out.String(), "plugin wants to call native libc.so.6!getpid")
	})

	t.Run("Grant Always", func(t *testing.T) {
		in := bytes.NewBufferString("always\n")
		p := prompter.NewCliPrompter(in, &bytes.Buffer{})

		granted, always, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		assert.True(t, granted)
		assert.True(t, always)
	})

	t.Run("Deny", func(t *testing.T) {
		in := bytes.NewBufferString("n\n")
		p := prompter.NewCliPrompter(in, &bytes.Buffer{})

		granted, always, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		assert.False(t, granted)
		assert.False(t, always)
	})

	t.Run("Answer Without Newline", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString("yes"), &bytes.Buffer{})

		granted, _, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		assert.True(t, granted)
	})

	t.Run("Consecutive Prompts", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString("n\ny\n"), &bytes.Buffer{})

		first, _, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		second, _, err := p.PromptForNative("plugin", req)
		require.NoError(t, err)
		assert.False(t, first)
		assert.True(t, second)
	})

	t.Run("Closed Input", func(t *testing.T) {
		p := prompter.NewCliPrompter(bytes.NewBufferString(""), &bytes.Buffer{})

		_, _, err := p.PromptForNative("plugin", req)
		assert.ErrorIs(t, err, io.EOF)
	})
}

func TestCliPrompter_IsInteractive(t *testing.T) {
	p := prompter.NewCliPrompter(bytes.NewBufferString(""), nil)
	assert.False(t, p.IsInteractive())
}

func TestCliPrompter_FormatNonInteractiveError(t *testing.T) {
	p := prompter.NewCliPrompter(nil, nil)

	err := p.FormatNonInteractiveError("plugin", entities.NativeRequest{Module: "user32.dll", Ordinal: 2})
	assert.ErrorContains(t, err, "guest plugin: native user32.dll!#2 is not granted")
}
