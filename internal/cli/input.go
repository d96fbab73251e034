package cli

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// getPassword prompts on w and reads a password without echo. When stdin is
// not a terminal the first line of in is used instead.
func getPassword(w io.Writer, in io.Reader, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}

	fd := int(os.Stdin.Fd())
	if in == os.Stdin && term.IsTerminal(fd) {
		pw, err := readPassword(fd)
		fmt.Fprintln(w)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	var line string
	if _, err := fmt.Fscanln(in, &line); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// loadFiles reads each path into a studyai.File, guessing the MIME type from
// the extension and falling back to content sniffing.
func loadFiles(paths []string) ([]studyai.File, error) {
	files := make([]studyai.File, 0, len(paths))
	for _, p := range paths {
		f, err := loadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func loadFile(path string) (studyai.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return studyai.File{}, err
	}

	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return studyai.File{Name: filepath.Base(path), MIMEType: mt, Data: data}, nil
}

// readOptional returns the contents of path, or "" when path is empty.
func readOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
