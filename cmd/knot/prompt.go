package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassphrase prompts for a passphrase without echo when stdin is a
// terminal. Piped input is read one line at a time.
func readPassphrase(cmd *cobra.Command, prompt string, confirm bool) (string, error) {
	in := cmd.InOrStdin()
	f, isFile := in.(*os.File)
	if isFile && term.IsTerminal(int(f.Fd())) {
		return readTerminalPassphrase(cmd.ErrOrStderr(), int(f.Fd()), prompt, confirm)
	}

	r := bufio.NewReader(in)
	pass, err := readLine(r)
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := readLine(r)
		if err != nil {
			return "", err
		}
		if again != pass {
			return "", errors.New("passphrases do not match")
		}
	}
	return pass, nil
}

func readTerminalPassphrase(w io.Writer, fd int, prompt string, confirm bool) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if confirm {
		fmt.Fprint(w, "Confirm passphrase: ")
		again, err := term.ReadPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(again) != string(b) {
			return "", errors.New("passphrases do not match")
		}
	}
	return string(b), nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
