package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// promptLine asks for one line of input and rejects an empty answer.
func promptLine(label string) (string, error) {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", errors.New("empty input")
	}
	return value, nil
}

// promptPassword reads a password without echoing it. When stdin is not a
// terminal it falls back to a plain line read.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(label)
	}

	fmt.Print(label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

// chooseStationCode presents the detected candidates and returns the
// user's pick.
func chooseStationCode(candidates []string) (string, error) {
	fmt.Println("Multiple station codes detected:")
	for i, code := range candidates {
		fmt.Printf("  [%d] %s\n", i+1, code)
	}

	answer, err := promptLine("Enter the number of the station code to use: ")
	if err != nil {
		return "", err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(candidates) {
		return "", fmt.Errorf("invalid selection %q", answer)
	}
	return candidates[idx-1], nil
}
