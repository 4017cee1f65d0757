package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/padsynth/internal/engine"
)

// marshalOp converts the op's arguments to JSON TEXT for storage.
// The kind is stored in its own column. Parameter names are NFC-normalized
// so visually identical names compare equal on replay.
func marshalOp(op engine.Op) (string, error) {
	op.Param = norm.NFC.String(op.Param)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(op); err != nil {
		return "", fmt.Errorf("marshal op: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalOp rebuilds an op from its kind column and JSON arguments.
func unmarshalOp(kind, args string) (engine.Op, error) {
	k, err := engine.ParseKind(kind)
	if err != nil {
		return engine.Op{}, fmt.Errorf("unmarshal op: %w", err)
	}
	op := engine.Op{}
	if args != "" && args != "{}" {
		if err := json.Unmarshal([]byte(args), &op); err != nil {
			return engine.Op{}, fmt.Errorf("unmarshal op %s: %w", kind, err)
		}
	}
	op.Kind = k
	return op, nil
}
