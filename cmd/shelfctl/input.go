package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

// Test seams over the terminal.
var (
	readPassword           = term.ReadPassword
	isTerminal             = term.IsTerminal
	stdin        io.Reader = os.Stdin
)

// promptPassword reads a password without echo. When stdin is not a
// terminal the first line of input is used, which lets scripts pipe it in.
func promptPassword(w io.Writer, prompt string) (string, error) {
	fd := stdinFd()
	if !isTerminal(fd) {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func stdinFd() int { return int(os.Stdin.Fd()) }
