package session

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// DefaultShell is used when no other source names a shell.
const DefaultShell = "/bin/sh"

var errNoPasswdShell = errors.New("no login shell in passwd")

// ResolveShell picks the program to run: the explicit override, the current
// user's passwd entry, $SHELL, then DefaultShell.
func ResolveShell(override string) string {
	if override != "" {
		return override
	}
	if u, err := user.Current(); err == nil && u != nil && u.Uid != "" {
		if shell, err := shellFromPasswd("/etc/passwd", u.Uid); err == nil {
			return shell
		}
	}
	if shell := os.Getenv("SHELL"); usableShell(shell) {
		return shell
	}
	return DefaultShell
}

func shellFromPasswd(path, uid string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()
	return shellFromPasswdReader(f, uid)
}

func shellFromPasswdReader(r io.Reader, uid string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 || fields[2] != uid {
			continue
		}
		if !usableShell(fields[6]) {
			return "", errNoPasswdShell
		}
		return fields[6], nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", errNoPasswdShell
}

// usableShell rejects empty entries and the nologin/false placeholders
// service accounts carry.
func usableShell(path string) bool {
	if path == "" {
		return false
	}
	switch filepath.Base(path) {
	case "nologin", "false":
		return false
	}
	return true
}
