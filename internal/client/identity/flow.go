package identity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PromptFlow is the terminal consent flow: it prints the provider's sign-in
// URL and waits for the user to paste the identity token issued there.
// Pressing enter on an empty line, EOF, or context cancellation all resolve
// as cancellation.
type PromptFlow struct {
	In  io.Reader
	Out io.Writer

	// SignInURL maps a provider to the URL the user should open; empty
	// entries fall back to the provider's public sign-in page.
	SignInURL map[Provider]string
}

var defaultSignInURLs = map[Provider]string{
	ProviderGoogle:   "https://accounts.google.com",
	ProviderFacebook: "https://www.facebook.com/login",
}

func (f *PromptFlow) Authorize(ctx context.Context, provider Provider) (string, error) {
	in := f.In
	if in == nil {
		in = os.Stdin
	}
	out := f.Out
	if out == nil {
		out = os.Stdout
	}

	target := f.SignInURL[provider]
	if target == "" {
		target = defaultSignInURLs[provider]
	}

	fmt.Fprintf(out, "Open this URL, sign in with %s, and copy the identity token:\n  %s\n", provider, target)
	fmt.Fprint(out, "Paste identity token (empty to cancel): ")

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(in)
		line, err := reader.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", fmt.Errorf("read identity token: %w", res.err)
		}
		token := strings.TrimSpace(res.line)
		if token == "" {
			return "", ErrUserCancelled
		}
		return token, nil
	}
}

// FileCacheResetter drops the cached federated state file, forcing the next
// consent flow to start from account selection.
type FileCacheResetter struct {
	Dir string
}

func (f *FileCacheResetter) Reset(Provider) error {
	dir := f.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".config", "pipersmart")
	}
	path := filepath.Join(dir, "federated-state.json")
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var (
	_ Flow          = (*PromptFlow)(nil)
	_ CacheResetter = (*FileCacheResetter)(nil)
)
