// Package manifest reads the test manifest that maps test-case names to the
// reference/output image pairs they compare.
//
// The document is shaped as
//
//	{"<test case>": {"files": [{"ref": "<path>", "output": "<path>"}, ...]}, ...}
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

const DefaultPath = "tests.json"

// Entry is one reference/output pair. It has no identity beyond its position.
type Entry struct {
	Reference string
	Output    string
}

type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	ParseFailed
	TestCaseNotFound
	MalformedEntry
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "manifest not found"
	case ParseFailed:
		return "manifest parse error"
	case TestCaseNotFound:
		return "test case not found"
	case MalformedEntry:
		return "malformed entry"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by Load. Index is only meaningful for MalformedEntry.
type Error struct {
	Kind     ErrorKind
	Path     string
	TestCase string
	Index    int
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Path)
	switch e.Kind {
	case TestCaseNotFound:
		fmt.Fprintf(&b, ": %q", e.TestCase)
	case MalformedEntry:
		fmt.Fprintf(&b, ": %q files[%d]", e.TestCase, e.Index)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads the manifest at path once and returns the entries of testCaseName
// in document order.
func Load(path string, testCaseName string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: NotFound, Path: path, Err: err}
	}
	return Parse(data, path, testCaseName)
}

// Parse is Load without the read; path is only used in errors. Keys are
// matched exactly.
func Parse(data []byte, path string, testCaseName string) ([]Entry, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, &Error{Kind: ParseFailed, Path: path, Err: err}
	}
	if document == nil {
		return nil, &Error{Kind: ParseFailed, Path: path, Err: xerrors.New("top level is not an object")}
	}

	raw, ok := document[testCaseName]
	if !ok {
		return nil, &Error{Kind: TestCaseNotFound, Path: path, TestCase: testCaseName}
	}

	var testCase map[string]json.RawMessage
	if err := json.Unmarshal(raw, &testCase); err != nil {
		return nil, &Error{Kind: TestCaseNotFound, Path: path, TestCase: testCaseName, Err: err}
	}
	var files []json.RawMessage
	if rawFiles, ok := testCase["files"]; ok {
		if err := json.Unmarshal(rawFiles, &files); err != nil {
			return nil, &Error{Kind: TestCaseNotFound, Path: path, TestCase: testCaseName, Err: err}
		}
	}
	if files == nil {
		return nil, &Error{Kind: TestCaseNotFound, Path: path, TestCase: testCaseName}
	}

	entries := make([]Entry, 0, len(files))
	for i, rawFile := range files {
		var file map[string]json.RawMessage
		if err := json.Unmarshal(rawFile, &file); err != nil {
			return nil, &Error{Kind: MalformedEntry, Path: path, TestCase: testCaseName, Index: i, Err: err}
		}
		reference, err := stringField(file, "ref")
		if err != nil {
			return nil, &Error{Kind: MalformedEntry, Path: path, TestCase: testCaseName, Index: i, Err: err}
		}
		output, err := stringField(file, "output")
		if err != nil {
			return nil, &Error{Kind: MalformedEntry, Path: path, TestCase: testCaseName, Index: i, Err: err}
		}
		entries = append(entries, Entry{
			Reference: reference,
			Output:    output,
		})
	}

	return entries, nil
}

func stringField(object map[string]json.RawMessage, key string) (string, error) {
	raw, ok := object[key]
	if !ok {
		return "", xerrors.Errorf("missing %q", key)
	}
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", xerrors.Errorf("%q is not a string: %w", key, err)
	}
	if value == nil {
		return "", xerrors.Errorf("%q is null", key)
	}
	return *value, nil
}

// Paths returns every path the entries refer to, references first.
func Paths(entries []Entry) []string {
	paths := make([]string, 0, len(entries)*2)
	for _, e := range entries {
		paths = append(paths, e.Reference)
	}
	for _, e := range entries {
		paths = append(paths, e.Output)
	}
	return paths
}
