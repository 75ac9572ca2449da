// Package extract isolates the key-value blocks that SteamCMD prints in the
// middle of its console chatter and merges them into one document keyed by
// app id.
//
// The scan is line based: a block starts on a line beginning with a double
// quote that is followed by an opening brace, and ends when a closing brace
// brings the brace depth back to zero. Everything outside a block is treated
// as noise, including quoted lines that never open a brace, such as the
// convar echoes SteamCMD prints at startup.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/acfgen/pkg/acfgen/vdf"
)

// ErrUnparseableOutput is matched by *UnparseableOutputError.
var ErrUnparseableOutput = errors.New("no key-value block found in tool output")

// UnparseableOutputError carries the raw output when no block could be used.
type UnparseableOutputError struct {
	// Raw is the complete tool output.
	Raw string

	// Causes holds the parse failures of blocks that were found but rejected.
	Causes []error
}

// Error implements the error interface.
func (e *UnparseableOutputError) Error() string {
	if len(e.Causes) == 0 {
		return ErrUnparseableOutput.Error()
	}
	return fmt.Sprintf("%s: %v", ErrUnparseableOutput, errors.Join(e.Causes...))
}

// Is reports whether target is ErrUnparseableOutput.
func (e *UnparseableOutputError) Is(target error) bool {
	return target == ErrUnparseableOutput
}

// Unwrap returns the block parse failures.
func (e *UnparseableOutputError) Unwrap() []error {
	return e.Causes
}

// Blocks returns the candidate documents found in raw, in output order.
// A block still open at the end of the output is returned unchanged so the
// codec can report the truncation.
func Blocks(raw string) []string {
	var (
		blocks  []string
		current strings.Builder
		inside  bool
		opened  bool
		depth   int
	)

	reset := func() {
		current.Reset()
		inside, opened, depth = false, false, 0
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if inside && !opened {
			// Only blank lines or the opening brace may follow a block key.
			trimmed := strings.TrimSpace(line)
			if trimmed != "" && !strings.HasPrefix(trimmed, "{") {
				reset()
			}
		}

		if !inside {
			if !strings.HasPrefix(line, `"`) {
				continue
			}
			inside = true
		}

		current.WriteString(line)
		current.WriteByte('\n')

		delta, sawOpen := braceDelta(line)
		depth += delta
		if sawOpen {
			opened = true
		}

		if opened && depth <= 0 {
			blocks = append(blocks, current.String())
			reset()
		}
	}

	if opened {
		blocks = append(blocks, current.String())
	}
	return blocks
}

// braceDelta returns the net brace depth change of line, ignoring braces
// inside quoted strings, and whether an opening brace was seen.
func braceDelta(line string) (delta int, sawOpen bool) {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && inQuote:
			i++
		case c == '"':
			inQuote = !inQuote
		case c == '{' && !inQuote:
			delta++
			sawOpen = true
		case c == '}' && !inQuote:
			delta--
		}
	}
	return delta, sawOpen
}

// Merge parses each block and merges their top-level keys into one mapping.
// A later block for the same key replaces the earlier one. Blocks that fail
// to parse are skipped and reported.
func Merge(blocks []string) (*vdf.Node, []error) {
	aggregate := vdf.NewMap()
	var errs []error

	for i, block := range blocks {
		doc, err := vdf.Parse(block)
		if err != nil {
			errs = append(errs, fmt.Errorf("block %d: %w", i+1, err))
			continue
		}
		for _, e := range doc.Entries() {
			aggregate.Set(e.Key, e.Node)
		}
	}
	return aggregate, errs
}

// Extract isolates and merges every block in raw. Blocks that failed to
// parse are returned alongside the aggregate. It fails with
// *UnparseableOutputError when nothing usable was found.
func Extract(raw string) (*vdf.Node, []error, error) {
	aggregate, skipped := Merge(Blocks(raw))
	if aggregate.Len() == 0 {
		return nil, skipped, &UnparseableOutputError{Raw: raw, Causes: skipped}
	}
	return aggregate, skipped, nil
}
