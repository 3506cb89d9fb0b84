package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrConflictingSources = errors.New("identifiers given both as flags and on stdin")
	ErrNoIdentifierSource = errors.New("choose identifiers via flag or --stdin")
)

// IdentifierInput is where a run's identifiers come from: FlagInput or
// StreamInput.
type IdentifierInput interface {
	Identifiers() ([]string, error)
	isIdentifierInput()
}

// FlagInput holds repeated or comma-separated flag values.
type FlagInput struct {
	Values []string
}

// StreamInput reads one identifier per line. Blank lines and # comments are
// skipped. An empty stream yields an empty list.
type StreamInput struct {
	Reader io.Reader
}

func (FlagInput) isIdentifierInput()   {}
func (StreamInput) isIdentifierInput() {}

func (in FlagInput) Identifiers() ([]string, error) {
	var ids []string
	for _, v := range in.Values {
		for _, part := range strings.Split(v, ",") {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (in StreamInput) Identifiers() ([]string, error) {
	if in.Reader == nil {
		return nil, nil
	}
	var ids []string
	scanner := bufio.NewScanner(in.Reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w", err)
	}
	return ids, nil
}

// SelectInput picks the identifier source. Exactly one of flag values or
// stdin must be given.
func SelectInput(values []string, useStdin bool, stdin io.Reader) (IdentifierInput, error) {
	hasFlags := len(values) > 0
	switch {
	case hasFlags && useStdin:
		return nil, ErrConflictingSources
	case useStdin:
		return StreamInput{Reader: stdin}, nil
	case hasFlags:
		return FlagInput{Values: values}, nil
	default:
		return nil, ErrNoIdentifierSource
	}
}
